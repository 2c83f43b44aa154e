package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS service parameters for slim hubs.
const (
	// ServiceType is the mDNS service type hubs advertise their HTTP
	// (and CometD) port under.
	ServiceType = "_slimhttp._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// BrowseTimeout is the default timeout for browse operations.
	BrowseTimeout = 10 * time.Second
)

// ErrNoHubFound indicates no hub answered within the browse timeout.
var ErrNoHubFound = errors.New("no hub found")

// Hub describes a discovered slim hub.
type Hub struct {
	// InstanceName is the mDNS instance name (usually the hub's library name).
	InstanceName string

	// Host is the hub's mDNS hostname.
	Host string

	// Port is the hub's HTTP/CometD port.
	Port int

	// Addresses are the hub's IP addresses (string form), aggregated
	// across interfaces.
	Addresses []string
}

// Addr returns the first address as "<ip>:<port>", or the hostname when no
// address was resolved.
func (h *Hub) Addr() string {
	host := h.Host
	if len(h.Addresses) > 0 {
		host = h.Addresses[0]
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", h.Port))
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for FindFirst.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// Browser searches for slim hubs via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a new hub browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse searches for hubs until the context is cancelled.
// Hubs are aggregated by instance name - addresses from multiple
// interfaces are combined into a single entry, emitted once.
func (b *Browser) Browse(ctx context.Context) (<-chan *Hub, error) {
	out := make(chan *Hub)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		hubs := make(map[string]*Hub)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				hub := entryToHub(entry)
				if hub == nil {
					continue
				}

				existing, found := hubs[hub.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, hub.Addresses)
				} else {
					hubs[hub.InstanceName] = hub
					select {
					case out <- hub:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(hubs, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindFirst returns the first hub that answers, or ErrNoHubFound when the
// browse timeout (or the context) expires first.
func (b *Browser) FindFirst(ctx context.Context) (*Hub, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	hubs, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case hub, ok := <-hubs:
		if !ok {
			return nil, ErrNoHubFound
		}
		return hub, nil
	case <-ctx.Done():
		return nil, ErrNoHubFound
	}
}

// browserOptions builds zeroconf client options from the config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToHub converts a zeroconf entry to a Hub.
func entryToHub(entry *zeroconf.ServiceEntry) *Hub {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Hub{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         int(entry.Port),
		Addresses:    addrs,
	}
}

// mergeAddresses combines two address lists, dropping duplicates.
func mergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	for _, a := range incoming {
		if _, ok := seen[a]; !ok {
			existing = append(existing, a)
			seen[a] = struct{}{}
		}
	}
	return existing
}
