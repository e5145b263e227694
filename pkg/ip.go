package pkg

import (
	"net"
	"net/http"
	"strings"
)

// FallbackIP is reported when the client address cannot be determined.
const FallbackIP = "127.0.0.1"

// IPIsLocal reports whether addr (with or without a port) is a loopback,
// private (docker, LAN) or otherwise non-routable address.
func IPIsLocal(addr string) bool {
	ip := net.ParseIP(stripPort(addr))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// ReadUserIP returns the client IP as seen behind the reverse proxy.
// The first X-Forwarded-For entry wins, then X-Real-Ip, then the connection
// address. FallbackIP is returned when none of them parse.
func ReadUserIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	if ip := parseIP(r.RemoteAddr); ip != "" {
		return ip
	}
	return FallbackIP
}

func parseIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ip := net.ParseIP(stripPort(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
