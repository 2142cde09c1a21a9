package logger

import (
	"log/slog"
	"net/netip"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask domain: keep TLD, mask the rest
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		// Mask all but the TLD
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizedPhone keeps only the last two digits (e.g., "********42")
func SanitizedPhone(phone string) string {
	if len(phone) <= 2 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}

// SanitizedDestination masks an email address or phone number
func SanitizedDestination(destination string) string {
	if strings.Contains(destination, "@") {
		return SanitizedEmail(destination)
	}
	return SanitizedPhone(destination)
}

// RedactedIP returns an attribute for ip. With redact set, only the network
// is kept: /24 for IPv4 and /48 for IPv6 (e.g., "203.0.113.0/24").
func RedactedIP(key, ip string, redact bool) slog.Attr {
	if !redact {
		return slog.String(key, ip)
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return slog.String(key, "[REDACTED]")
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, _ := addr.Prefix(bits)
	return slog.String(key, prefix.String())
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := map[string]bool{
		"password": true,
		"token":    true,
		"secret":   true,
		"api_key":  true,
		"apikey":   true,
		"email":    true,
		"apitoken": true,
		"auth":     true,
		"code":     true,
		"state":    true,
	}

	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
