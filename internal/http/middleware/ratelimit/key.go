package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIDHeader lets trusted callers such as the dispatcher UI share one
// bucket across several addresses.
const ClientIDHeader = "X-Client-ID"

func clientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" {
		return "id:" + id
	}
	return "ip:" + remoteHost(r.RemoteAddr)
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
