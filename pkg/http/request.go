package http

import (
	"net/http"
	"net/netip"
	"strings"
	"sync"

	"github.com/BradenHooton/autentica/internal/models"
)

// MaxUserAgentLength caps the user agent carried into the security core
const MaxUserAgentLength = 512

// forwardedHeaders are the only request headers the core looks at
var forwardedHeaders = []string{"Accept", "Accept-Language", "Accept-Encoding"}

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges or bare addresses of trusted proxies

	once     sync.Once
	prefixes []netip.Prefix
}

// trusted parses TrustedProxies on first use. Invalid entries are skipped.
func (c *IPConfig) trusted() []netip.Prefix {
	c.once.Do(func() {
		for _, entry := range c.TrustedProxies {
			entry = strings.TrimSpace(entry)
			if prefix, err := netip.ParsePrefix(entry); err == nil {
				c.prefixes = append(c.prefixes, prefix.Masked())
				continue
			}
			if addr, err := netip.ParseAddr(entry); err == nil {
				c.prefixes = append(c.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			}
		}
	})
	return c.prefixes
}

// ExtractClientIP extracts the real client IP address from the request.
// X-Forwarded-For and X-Real-IP are honored only when the direct peer is a
// trusted proxy; otherwise RemoteAddr wins.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.trusted()) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isValidIP(ip) {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); isValidIP(xri) {
		return xri
	}

	return remoteIP
}

// NewRequestContext reduces an inbound request to what the security core
// needs: client address, a bounded user agent and the fingerprint headers.
func NewRequestContext(r *http.Request, config *IPConfig) models.RequestContext {
	ua := r.UserAgent()
	if len(ua) > MaxUserAgentLength {
		ua = ua[:MaxUserAgentLength]
	}

	headers := make(http.Header, len(forwardedHeaders))
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			headers.Set(name, v)
		}
	}

	return models.RequestContext{
		IP:        ExtractClientIP(r, config),
		UserAgent: ua,
		Headers:   headers,
	}
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().Unmap().String()
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, prefixes []netip.Prefix) bool {
	if len(prefixes) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func isValidIP(ip string) bool {
	_, err := netip.ParseAddr(ip)
	return err == nil
}
