package metrics

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves Prometheus metrics over HTTP
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	addr       string
	path       string
	logger     *slog.Logger
	allowedIPs []*net.IPNet
}

// NewServer creates a metrics HTTP server. allowedIPs takes single addresses
// or CIDRs; empty means no filtering.
func NewServer(m *Metrics, addr, path string, allowedIPs []string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":9090"
	}
	if path == "" {
		path = "/metrics"
	}

	s := &Server{
		metrics: m,
		addr:    addr,
		path:    path,
		logger:  logger.With("component", "metrics"),
	}

	for _, ipStr := range allowedIPs {
		ipStr = strings.TrimSpace(ipStr)
		if ipStr == "" {
			continue
		}
		if !strings.Contains(ipStr, "/") {
			if ip := net.ParseIP(ipStr); ip != nil && ip.To4() != nil {
				ipStr += "/32"
			} else {
				ipStr += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(ipStr)
		if err != nil {
			s.logger.Warn("invalid entry in allowed_ips", "entry", ipStr, "error", err)
			continue
		}
		s.allowedIPs = append(s.allowedIPs, ipNet)
	}

	return s
}

// ListenAndServe starts the metrics HTTP server
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()

	handler := promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
	mux.Handle(s.path, s.ipFilter(handler))

	// No IP filtering, load balancers probe this.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	s.logger.Info("starting metrics server", "addr", s.addr, "path", s.path)
	return s.httpServer.ListenAndServe()
}

func (s *Server) ipFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedIPs) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if ip == nil || !s.allowed(ip) {
			s.logger.Warn("metrics access denied", "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowed(ip net.IP) bool {
	for _, ipNet := range s.allowedIPs {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}
