package admin

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/user"
)

// Service exposes the back-office operations: credit grants, user
// moderation and the audit trail behind both.
type Service struct {
	repo   Repository
	users  user.Repository
	ledger ledger.Service
}

// NewService creates admin service
func NewService(repo Repository, users user.Repository, ledgerSvc ledger.Service) *Service {
	return &Service{repo: repo, users: users, ledger: ledgerSvc}
}

// GrantCredits credits a user by admin decision. The grant is promotional
// and sourced to the acting admin for the audit trail.
func (s *Service) GrantCredits(ctx context.Context, adminID, userID uuid.UUID, amount int, expiresInDays *int, reason string) (int, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, user.ErrUserNotFound
	}

	source := "admin:" + adminID.String()
	if _, err := s.ledger.Grant(ctx, userID, amount, ledger.GrantParams{
		Type:                ledger.BucketTypePromotional,
		ExpiresInDays:       expiresInDays,
		SourceTransactionID: &source,
	}); err != nil {
		return 0, err
	}

	s.audit(adminID, "credits.grant", "user", userID, map[string]interface{}{
		"amount": amount,
		"reason": reason,
	})

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to read balance after admin grant")
		balance = 0
	}
	return balance, nil
}

// ListUsers returns a page of users with the total count
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]user.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListUserBuckets returns every credit bucket a user has, for support and
// audit. Includes exhausted and expired buckets.
func (s *Service) ListUserBuckets(ctx context.Context, userID uuid.UUID) ([]ledger.CreditBucket, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrUserNotFound
	}
	return s.ledger.ListBuckets(ctx, userID)
}

// SetUserStatus suspends or reinstates a user
func (s *Service) SetUserStatus(ctx context.Context, adminID, userID uuid.UUID, status user.Status, reason string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return user.ErrUserNotFound
	}

	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		return err
	}

	s.audit(adminID, "user."+string(status), "user", userID, map[string]interface{}{
		"reason": reason,
	})
	return nil
}

// Dashboard returns the overview stats snapshot
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx)
}

// ListAuditLogs returns the newest audit entries
func (s *Service) ListAuditLogs(ctx context.Context, limit, offset int) ([]AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAuditLogs(ctx, limit, offset)
}

// audit writes the trail asynchronously; a lost entry is logged, never
// blocks or fails the admin action itself.
func (s *Service) audit(adminID uuid.UUID, action, entityType string, entityID uuid.UUID, details map[string]interface{}) {
	go func() {
		payload, _ := json.Marshal(details)
		entry := &AuditLog{
			AdminID:    adminID,
			Action:     action,
			EntityType: entityType,
			EntityID:   uuid.NullUUID{UUID: entityID, Valid: true},
			Details:    payload,
		}
		if err := s.repo.CreateAuditLog(context.Background(), entry); err != nil {
			log.Error().Err(err).Str("action", action).Msg("Failed to write audit log")
		}
	}()
}
