package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wlcheck/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Instrument records request counts and durations per route.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := routeLabel(r.URL.Path)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

var knownRoutes = map[string]bool{
	"/v1/validations": true, "/v1/validations/events": true, "/v1/admin/webhook-deliveries": true,
	"/healthz": true, "/readyz": true, "/metrics": true, "/debug/info": true,
}

// routeLabel collapses run ids and unknown paths so the label stays bounded.
func routeLabel(p string) string {
	if knownRoutes[p] {
		return p
	}
	if !strings.HasPrefix(p, "/v1/validations/") {
		return "other"
	}
	if strings.HasSuffix(strings.TrimSuffix(p, "/"), "/report") {
		return "/v1/validations/{id}/report"
	}
	return "/v1/validations/{id}"
}
