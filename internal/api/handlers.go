package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wlcheck/internal/metrics"
	"wlcheck/internal/store"
)

// ValidationsHandler handles POST/GET /v1/validations
func (s *Server) ValidationsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createValidation(w, r)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListRuns(r.Context(), tenant, cursor, limit)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "unknown cursor "+cursor, r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List validations failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createValidation(w http.ResponseWriter, r *http.Request) {
	if s.Limiter != nil && !s.Limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "validation rate limit exceeded", r.URL.Path)
		return
	}
	if s.Cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.Cfg.MaxBodyBytes)
	}
	var req validationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateValidationRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid validation request", err.Error(), r.URL.Path)
		return
	}

	start := time.Now()
	res, err := runValidation(req)
	if err != nil {
		metrics.ObserveValidation("rejected", nil, time.Since(start))
		writeProblem(w, http.StatusUnprocessableEntity, "Malformed input", err.Error(), r.URL.Path)
		return
	}
	byKind := make(map[string]int, len(res.Report.ByKind))
	for k, n := range res.Report.ByKind {
		byKind[string(k)] = n
	}
	outcome := "infeasible"
	if res.Report.Feasible() {
		outcome = "feasible"
	}
	metrics.ObserveValidation(outcome, byKind, time.Since(start))

	ctx, tenant := s.withTenant(r)
	run := store.Run{
		ID:        uuid.New().String(),
		TenantID:  tenant,
		CreatedAt: time.Now().UTC(),
		Notation:  string(res.Notation),
		Report:    res.Report,
		Text:      res.Text,
	}
	if err := s.Store.SaveRun(ctx, run); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save validation failed", err.Error(), r.URL.Path)
		return
	}

	data := map[string]any{
		"runId":          run.ID,
		"cost":           res.Report.Cost,
		"violationCount": res.Report.ViolationCount,
		"feasible":       res.Report.Feasible(),
	}
	s.Broker.Publish(tenant, Event{Type: EventValidationCompleted, Data: data})
	s.Pub.Emit(ctx, tenant, EventValidationCompleted, data)

	writeJSON(w, http.StatusCreated, run)
}

// ValidationByIDHandler handles GET /v1/validations/{id} and /v1/validations/{id}/report
func (s *Server) ValidationByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/validations/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "report") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	run, err := s.Store.GetRun(r.Context(), tenant, parts[0])
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "validation "+parts[0]+" not found", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get validation failed", err.Error(), r.URL.Path)
		return
	}
	if len(parts) == 2 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(run.Text))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// WebhookDeliveriesHandler lists the caller's webhook deliveries, optionally by status.
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	status := r.URL.Query().Get("status")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, err := s.Store.ListWebhookDeliveries(r.Context(), tenant, status, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

// MetricsHandler exposes the service registry in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
