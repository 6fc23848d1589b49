package middleware

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Maintenance is a switch that takes the public screens offline.
type Maintenance struct {
	enabled atomic.Bool
}

func (m *Maintenance) Set(on bool)    { m.enabled.Store(on) }
func (m *Maintenance) Enabled() bool { return m.enabled.Load() }

// MaintenanceMode blocks wrapped routes with a 503 while m is enabled.
func MaintenanceMode(m *Maintenance, tmpl *template.Template) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "120")
			if strings.Contains(r.Header.Get("Accept"), "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"service unavailable"}`))
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			if err := tmpl.ExecuteTemplate(w, "maintenance.html", nil); err != nil {
				slog.Error("maintenance: template error", "err", err)
			}
		})
	}
}
