package store

import (
	"context"
	"errors"
	"time"

	"wlcheck/internal/validate"
)

// Run is one stored validation: the report plus the text the command line
// tool would have printed.
type Run struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	CreatedAt time.Time       `json:"createdAt"`
	Notation  string          `json:"notation,omitempty"`
	Report    validate.Report `json:"report"`
	Text      string          `json:"-"`
}

// Store is the persistence interface used by the API server.
type Store interface {
	// Validation runs
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, tenantID, id string) (Run, error)
	// ListRuns pages in creation order. A cursor that is not a run of
	// tenantID yields ErrNotFound.
	ListRuns(ctx context.Context, tenantID, cursor string, limit int) (items []Run, nextCursor string, err error)

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status string, limit int) ([]WebhookDelivery, error)
}

var ErrNotFound = errors.New("not found")

const defaultLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultLimit
	}
	return limit
}
