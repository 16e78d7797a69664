package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS validation_runs (
        id uuid PRIMARY KEY,
        tenant_id text NOT NULL,
        created_at timestamptz NOT NULL DEFAULT now(),
        notation text,
        cost bigint NOT NULL,
        violation_count integer NOT NULL,
        report jsonb NOT NULL,
        report_text text NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS validation_runs_tenant_created ON validation_runs (tenant_id, created_at, id)`,
	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
        id uuid PRIMARY KEY,
        tenant_id text NOT NULL,
        event_type text NOT NULL,
        url text NOT NULL,
        secret text,
        payload bytea NOT NULL,
        status text NOT NULL,
        attempts integer NOT NULL DEFAULT 0,
        next_attempt_at timestamptz NOT NULL DEFAULT now(),
        last_error text,
        response_code integer,
        latency_ms integer,
        delivered_at timestamptz,
        updated_at timestamptz NOT NULL DEFAULT now(),
        dedup_key text NOT NULL,
        UNIQUE (tenant_id, event_type, url, dedup_key)
    )`,
}

// Migrate creates the tables used by the store if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	rep, err := json.Marshal(run.Report)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO validation_runs (id, tenant_id, created_at, notation, cost, violation_count, report, report_text)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO UPDATE SET report=EXCLUDED.report, report_text=EXCLUDED.report_text, cost=EXCLUDED.cost, violation_count=EXCLUDED.violation_count`,
		run.ID, run.TenantID, run.CreatedAt, nullIfEmpty(run.Notation), run.Report.Cost, run.Report.ViolationCount, rep, run.Text)
	return err
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Run{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT id::text, tenant_id, created_at, COALESCE(notation,''), report, report_text
        FROM validation_runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]Run, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		if _, perr := uuid.Parse(cursor); perr != nil {
			return nil, "", ErrNotFound
		}
		var after time.Time
		err = p.db.QueryRowContext(ctx, `SELECT created_at FROM validation_runs WHERE tenant_id=$1 AND id=$2`, tenantID, cursor).Scan(&after)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		if err != nil {
			return nil, "", err
		}
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, tenant_id, created_at, COALESCE(notation,''), report, report_text
            FROM validation_runs
            WHERE tenant_id=$1 AND (created_at, id) > ($2, $3::uuid)
            ORDER BY created_at, id LIMIT $4`, tenantID, after, cursor, limit+1)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, tenant_id, created_at, COALESCE(notation,''), report, report_text
            FROM validation_runs WHERE tenant_id=$1 ORDER BY created_at, id LIMIT $2`, tenantID, limit+1)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var rep []byte
	if err := row.Scan(&r.ID, &r.TenantID, &r.CreatedAt, &r.Notation, &rep, &r.Text); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal(rep, &r.Report); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
        ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`, id, tenantID, eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, event_type, url, COALESCE(secret,''), payload, status, attempts, COALESCE(last_error,''), next_attempt_at,
        COALESCE(response_code,0), COALESCE(latency_ms,0), delivered_at
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(1 * time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$3`,
			nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status string, limit int) ([]WebhookDelivery, error) {
	limit = clampLimit(limit)
	q := `SELECT id::text, tenant_id, event_type, url, COALESCE(secret,''), payload, status, attempts, COALESCE(last_error,''), next_attempt_at,
        COALESCE(response_code,0), COALESCE(latency_ms,0), delivered_at
        FROM webhook_deliveries WHERE tenant_id=$1`
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = p.db.QueryContext(ctx, q+` AND status=$2 ORDER BY updated_at DESC LIMIT $3`, tenantID, status, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, q+` ORDER BY updated_at DESC LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

func scanDeliveries(rows *sql.Rows) ([]WebhookDelivery, error) {
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		var delivered sql.NullTime
		if err := rows.Scan(&d.ID, &d.TenantID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.LastError, &d.NextAttemptAt,
			&d.ResponseCode, &d.LatencyMs, &delivered); err != nil {
			return nil, err
		}
		if delivered.Valid {
			d.DeliveredAt = &delivered.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// computeDedupKey prefers the event id of a JSON payload and falls back to
// a short content hash.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
