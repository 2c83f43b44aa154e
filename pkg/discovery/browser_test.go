package discovery

import (
	"net"
	"reflect"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func TestHubAddr(t *testing.T) {
	tests := []struct {
		name string
		hub  Hub
		want string
	}{
		{
			"first address wins",
			Hub{Host: "hub.local.", Port: 9000, Addresses: []string{"192.168.1.10", "fe80::1"}},
			"192.168.1.10:9000",
		},
		{
			"hostname fallback",
			Hub{Host: "hub.local.", Port: 9000},
			"hub.local.:9000",
		},
		{
			"ipv6 bracketed",
			Hub{Host: "hub.local.", Port: 9000, Addresses: []string{"fe80::1"}},
			"[fe80::1]:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hub.Addr(); got != tt.want {
				t.Errorf("Addr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntryToHub(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "hub.local.",
		Port:     9000,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.10")},
		AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
	}
	entry.Instance = "Music Library"

	hub := entryToHub(entry)
	if hub == nil {
		t.Fatal("entryToHub() = nil")
	}
	if hub.InstanceName != "Music Library" {
		t.Errorf("InstanceName = %q", hub.InstanceName)
	}
	if hub.Host != "hub.local." {
		t.Errorf("Host = %q", hub.Host)
	}
	if hub.Port != 9000 {
		t.Errorf("Port = %d", hub.Port)
	}
	want := []string{"192.168.1.10", "fe80::1"}
	if !reflect.DeepEqual(hub.Addresses, want) {
		t.Errorf("Addresses = %v, want %v", hub.Addresses, want)
	}
}

func TestEntryToHubInvalid(t *testing.T) {
	if hub := entryToHub(nil); hub != nil {
		t.Errorf("entryToHub(nil) = %v", hub)
	}
	if hub := entryToHub(&zeroconf.ServiceEntry{HostName: "hub.local."}); hub != nil {
		t.Errorf("entryToHub(no port) = %v", hub)
	}
}

func TestMergeAddresses(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		want     []string
	}{
		{"disjoint", []string{"a"}, []string{"b"}, []string{"a", "b"}},
		{"duplicates dropped", []string{"a", "b"}, []string{"b", "c"}, []string{"a", "b", "c"}},
		{"empty incoming", []string{"a"}, nil, []string{"a"}},
		{"empty existing", nil, []string{"a", "a"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeAddresses(tt.existing, tt.incoming); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mergeAddresses() = %v, want %v", got, tt.want)
			}
		})
	}
}
