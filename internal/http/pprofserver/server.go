// Package pprofserver serves runtime profiles on a side port.
package pprofserver

import (
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const realm = "pprof"

var namedProfiles = []string{"heap", "goroutine", "allocs", "block", "mutex", "threadcreate"}

// Config stores the basic auth credentials required from non-local callers.
type Config struct {
	Addr string
	User string
	Pass string
}

// NewServer returns the side server. It is not started.
func NewServer(cfg Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Handler mounts the pprof endpoints under /debug/pprof. Loopback callers
// skip authentication; everyone else needs basic auth, and with no
// credentials configured they are always refused.
func Handler(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(localOr(middleware.BasicAuth(realm, credentials(cfg))))

	r.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		for _, name := range namedProfiles {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
	return r
}

func credentials(cfg Config) map[string]string {
	if cfg.User == "" || cfg.Pass == "" {
		return map[string]string{}
	}
	return map[string]string{cfg.User: cfg.Pass}
}

func localOr(auth func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		guarded := auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

func isLoopback(remoteAddr string) bool {
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
