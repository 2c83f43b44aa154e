// Package discovery locates slim hubs on the local network via mDNS.
//
// Hubs advertise their web/CometD port as an _slimhttp._tcp service. The
// Browser aggregates announcements from multiple interfaces into a single
// Hub entry per instance name.
//
// Discovery is optional: a driver configured with an explicit hub host
// never browses. When the host is empty, the driver uses FindFirst to
// adopt the first hub that answers within the browse timeout.
package discovery
