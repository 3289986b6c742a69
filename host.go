package pulseagent

import (
	"context"
	"net"
	"os"
	"strings"
	"time"
)

const (
	fallbackHostname = "localhost"
	fallbackIP       = "127.0.0.1"

	defaultLookupTimeout = 2 * time.Second
)

// HostInfo is the host identity reported with every decorated document.
type HostInfo struct {
	// Host is the unqualified hostname (everything before the first dot).
	Host string

	// IP is the local address the hostname resolves to.
	IP string

	// DNSName is the fully qualified hostname.
	DNSName string
}

// HostDecorator adds host, ip and dnsName to a document.
//
// Resolution never fails: each field falls back to localhost / 127.0.0.1
// when the hostname cannot be determined or resolved.
type HostDecorator struct {
	hostname func() (string, error)
	resolver *net.Resolver
	timeout  time.Duration
}

// NewHostDecorator returns a [HostDecorator] using the OS hostname and the
// default resolver.
func NewHostDecorator() *HostDecorator {
	return &HostDecorator{
		hostname: os.Hostname,
		resolver: net.DefaultResolver,
		timeout:  defaultLookupTimeout,
	}
}

// Decorate implements [Decorator].
func (h *HostDecorator) Decorate(doc *Document) error {
	info := h.Lookup(context.Background())
	doc.Set("host", info.Host)
	doc.Set("ip", info.IP)
	doc.Set("dnsName", info.DNSName)
	return nil
}

// Lookup resolves the current host identity, applying fallbacks.
func (h *HostDecorator) Lookup(ctx context.Context) HostInfo {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	name, err := h.hostname()
	if err != nil || name == "" {
		return HostInfo{Host: fallbackHostname, IP: fallbackIP, DNSName: fallbackHostname}
	}

	info := HostInfo{
		Host:    unqualified(name),
		IP:      fallbackIP,
		DNSName: name,
	}

	if ip := h.resolveIP(ctx, name); ip != "" {
		info.IP = ip
		// reverse lookup gives the fully qualified name when DNS is set up
		if names, err := h.resolver.LookupAddr(ctx, ip); err == nil && len(names) > 0 {
			if fqdn := strings.TrimSuffix(names[0], "."); fqdn != "" {
				info.DNSName = fqdn
			}
		}
	}

	return info
}

// resolveIP returns the first non-loopback address for name, or the address
// of the outbound interface, or "".
func (h *HostDecorator) resolveIP(ctx context.Context, name string) string {
	addrs, err := h.resolver.LookupIPAddr(ctx, name)
	if err == nil {
		for _, a := range addrs {
			if !a.IP.IsLoopback() && a.IP.To4() != nil {
				return a.IP.String()
			}
		}
		for _, a := range addrs {
			if !a.IP.IsLoopback() {
				return a.IP.String()
			}
		}
	}

	// UDP dial sends no packets; it only selects the outbound interface
	conn, err := net.Dial("udp", "192.0.2.1:80")
	if err != nil {
		return ""
	}
	defer func() { _ = conn.Close() }()
	if udp, ok := conn.LocalAddr().(*net.UDPAddr); ok && !udp.IP.IsUnspecified() {
		return udp.IP.String()
	}
	return ""
}

// unqualified returns the part of name before the first dot.
func unqualified(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// UnqualifiedHostname returns the OS hostname up to the first dot, or
// "localhost" if it cannot be determined.
func UnqualifiedHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return fallbackHostname
	}
	return unqualified(name)
}
