package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// service implements the Service interface
type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a ledger service on top of any Repository. The store is
// injected rather than constructed here so tests can run against an in-memory
// repository.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.SumActive(ctx, userID, s.now())
}

func (s *service) HasSufficientBalance(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	balance, err := s.repo.SumActive(ctx, userID, s.now())
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

func (s *service) Grant(ctx context.Context, userID uuid.UUID, amount int, params GrantParams) (uuid.UUID, error) {
	if amount <= 0 {
		// Zero and negative grants are a deliberate no-op so call sites can
		// pass through computed bonus amounts without guarding.
		return uuid.Nil, nil
	}
	if !IsValidBucketType(string(params.Type)) {
		return uuid.Nil, ErrInvalidBucketType
	}

	now := s.now()
	b := &CreditBucket{
		ID:        uuid.New(),
		UserID:    userID,
		Credits:   amount,
		Type:      params.Type,
		CreatedAt: now,
	}
	if params.ExpiresInDays != nil {
		b.ExpiresAt = sql.NullTime{Time: now.AddDate(0, 0, *params.ExpiresInDays), Valid: true}
	}
	if params.SourceTransactionID != nil {
		b.SourceTransactionID = sql.NullString{String: *params.SourceTransactionID, Valid: true}
	}

	if err := s.repo.CreateBucket(ctx, b); err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("bucket_id", b.ID.String()).
		Int("amount", amount).
		Str("type", string(params.Type)).
		Msg("credits granted")

	return b.ID, nil
}

func (s *service) Deduct(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if err := s.repo.Deduct(ctx, userID, amount, s.now()); err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("amount", amount).
		Msg("credits deducted")

	return nil
}

func (s *service) ListBuckets(ctx context.Context, userID uuid.UUID) ([]CreditBucket, error) {
	return s.repo.ListByUser(ctx, userID)
}
