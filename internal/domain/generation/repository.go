package generation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines generation job data access
type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Job, error)
	CountQueuedByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// ClaimProcessing flips queued -> processing. Returns false if the job was
	// not queued, so two workers never process the same job.
	ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, resultURL, thumbnailURL string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, refunded bool) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates generation repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const jobColumns = `id, user_id, kind, prompt, cost_credits, status, result_url, thumbnail_url,
	       error_message, refunded, started_at, finished_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, j *Job) error {
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (id, user_id, kind, prompt, cost_credits, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, j.ID, j.UserID, j.Kind, j.Prompt, j.CostCredits, j.Status, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("generation repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := r.db.GetContext(ctx, &j, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Job, error) {
	jobs := []Job{}
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT `+jobColumns+`
		FROM generation_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return jobs, err
}

func (r *repository) CountQueuedByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM generation_jobs
		WHERE user_id = $1 AND status IN ('queued', 'processing')
	`, userID)
	return count, err
}

func (r *repository) ClaimProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = 'processing', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repository) MarkSucceeded(ctx context.Context, id uuid.UUID, resultURL, thumbnailURL string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = 'succeeded', result_url = $2, thumbnail_url = $3,
		    finished_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, id, resultURL, thumbnailURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, refunded bool) error {
	if len(errMsg) > 2000 {
		errMsg = errMsg[:2000]
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = 'failed', error_message = $2, refunded = $3,
		    finished_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'processing')
	`, id, errMsg, refunded)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}
