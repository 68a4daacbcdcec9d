package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// BucketRepository stores credit buckets in Postgres.
type BucketRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *BucketRepository {
	return &BucketRepository{db: db}
}

func (r *BucketRepository) CreateBucket(ctx context.Context, b *CreditBucket) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO credit_buckets (
			id, user_id, credits, bucket_type, expires_at, source_transaction_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.UserID, b.Credits, b.Type, b.ExpiresAt, b.SourceTransactionID, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert bucket", ErrInternal)
	}

	return nil
}

func (r *BucketRepository) SumActive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	err := r.db.GetContext(ctx2, &total, `
		SELECT COALESCE(SUM(credits), 0)
		FROM credit_buckets
		WHERE user_id = $1 AND credits > 0 AND (expires_at IS NULL OR expires_at > $2)
	`, userID, now)
	if err != nil {
		return 0, fmt.Errorf("%w: sum active buckets", ErrInternal)
	}

	return total, nil
}

func (r *BucketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]CreditBucket, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	buckets := make([]CreditBucket, 0)
	err := r.db.SelectContext(ctx2, &buckets, `
		SELECT id, user_id, credits, bucket_type, expires_at, source_transaction_id, created_at
		FROM credit_buckets
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list buckets", ErrInternal)
	}

	return buckets, nil
}

// Deduct removes amount from the user's buckets inside one transaction.
// FOR UPDATE on the user's bucket rows serializes concurrent deductions per
// user; the drain order itself comes from PlanDeduction so the policy stays
// out of SQL.
func (r *BucketRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int, now time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	// Lock every bucket row for the user, not just the active ones, so two
	// deductions racing over the same buckets cannot interleave.
	var buckets []CreditBucket
	err = tx.SelectContext(ctx2, &buckets, `
		SELECT id, user_id, credits, bucket_type, expires_at, source_transaction_id, created_at
		FROM credit_buckets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return fmt.Errorf("%w: lock buckets", ErrInternal)
	}

	plan, err := PlanDeduction(buckets, amount, now)
	if err != nil {
		// Insufficient balance: the deferred rollback releases the locks
		// with no rows modified.
		return err
	}

	for _, d := range plan {
		result, err := tx.ExecContext(ctx2, `
			UPDATE credit_buckets
			SET credits = credits - $2
			WHERE id = $1 AND credits >= $2
		`, d.BucketID, d.Amount)
		if err != nil {
			return fmt.Errorf("%w: update bucket", ErrInternal)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: rows affected", ErrInternal)
		}
		if rows == 0 {
			// Cannot happen while the lock is held; treat as a fault rather
			// than let a bucket go negative.
			return fmt.Errorf("%w: bucket changed under lock", ErrInternal)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}
