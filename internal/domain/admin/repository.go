package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists the audit trail and aggregates dashboard stats
type Repository interface {
	CreateAuditLog(ctx context.Context, entry *AuditLog) error
	ListAuditLogs(ctx context.Context, limit, offset int) ([]AuditLog, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates admin repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (id, admin_id, action, entity_type, entity_id, details, created_at)
		VALUES (:id, :admin_id, :action, :entity_type, :entity_id, :details, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, entry)
	return err
}

func (r *repository) ListAuditLogs(ctx context.Context, limit, offset int) ([]AuditLog, error) {
	query := `SELECT * FROM audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	logs := []AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, limit, offset); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetDashboardStats runs best-effort counts; a failed count leaves its
// field at zero rather than failing the whole snapshot.
func (r *repository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	r.db.GetContext(ctx, &stats.Users.Total, `SELECT COUNT(*) FROM users`)
	r.db.GetContext(ctx, &stats.Users.Suspended, `SELECT COUNT(*) FROM users WHERE status = 'suspended'`)
	r.db.GetContext(ctx, &stats.Users.NewToday, `SELECT COUNT(*) FROM users WHERE created_at >= CURRENT_DATE`)

	r.db.GetContext(ctx, &stats.Jobs.Total, `SELECT COUNT(*) FROM generation_jobs`)
	r.db.GetContext(ctx, &stats.Jobs.Queued, `SELECT COUNT(*) FROM generation_jobs WHERE status IN ('queued', 'processing')`)
	r.db.GetContext(ctx, &stats.Jobs.FailedWeek, `SELECT COUNT(*) FROM generation_jobs WHERE status = 'failed' AND created_at >= CURRENT_DATE - INTERVAL '7 days'`)

	r.db.GetContext(ctx, &stats.Payments.PaidTotal, `SELECT COUNT(*) FROM payments WHERE status = 'paid'`)
	r.db.GetContext(ctx, &stats.Payments.RevenueMonth, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'paid' AND paid_at >= DATE_TRUNC('month', CURRENT_DATE)`)

	r.db.GetContext(ctx, &stats.Subscriptions.Active, `SELECT COUNT(*) FROM subscriptions WHERE status = 'active' AND current_period_end > NOW()`)

	return stats, nil
}
