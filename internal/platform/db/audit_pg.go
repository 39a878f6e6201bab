package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opencare/opencare/internal/platform/middleware"
)

// Execer is the subset of pgxpool.Pool the audit recorder needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertAuditSQL = `INSERT INTO extraction_audit
    (request_id, user_id, user_roles, resource_type, action, method, path, ip_address, user_agent, status_code, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// PGAuditRecorder writes audit entries to the extraction_audit table.
type PGAuditRecorder struct {
	db      Execer
	timeout time.Duration
}

func NewPGAuditRecorder(db Execer) *PGAuditRecorder {
	return &PGAuditRecorder{db: db, timeout: 3 * time.Second}
}

// RecordAccess runs detached from the request context so a client
// disconnect does not drop the audit row.
func (r *PGAuditRecorder) RecordAccess(entry middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	roles := entry.UserRoles
	if roles == nil {
		roles = []string{}
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, insertAuditSQL,
		entry.RequestID,
		entry.UserID,
		roles,
		entry.ResourceType,
		entry.Action,
		entry.Method,
		entry.Path,
		entry.IPAddress,
		entry.UserAgent,
		entry.StatusCode,
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
