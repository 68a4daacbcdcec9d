package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/pkg/email"
	"github.com/lumenai/lumen-api/internal/pkg/jwt"
	"github.com/lumenai/lumen-api/internal/pkg/password"
)

// Signup and referral promotions. Promotional buckets expire so unused
// giveaway credits do not accumulate forever.
const (
	welcomeCredits      = 25
	welcomeCreditsDays  = 30
	referralCredits     = 50
	referralCreditsDays = 90
)

// Service handles authentication business logic
type Service struct {
	userRepo   user.Repository
	ledger     ledger.Service
	jwtService *jwt.Service
	redis      *redis.Client // nil if Redis disabled
	emails     email.Sender
}

// NewService creates auth service
func NewService(userRepo user.Repository, ledgerSvc ledger.Service, jwtService *jwt.Service, redisClient *redis.Client, emails email.Sender) *Service {
	if emails == nil {
		emails = email.NopSender{}
	}
	return &Service{
		userRepo:   userRepo,
		ledger:     ledgerSvc,
		jwtService: jwtService,
		redis:      redisClient,
		emails:     emails,
	}
}

// Register creates new user account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	existing, _ := s.userRepo.GetByEmail(ctx, req.Email)
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	// Resolve the referrer before creating anything so a bad code fails fast
	var referrer *user.User
	if req.ReferralCode != "" {
		ref, err := s.userRepo.GetByReferralCode(ctx, normalizeReferralCode(req.ReferralCode))
		if err != nil {
			return nil, err
		}
		if ref == nil {
			return nil, ErrInvalidReferralCode
		}
		referrer = ref
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	code, err := generateReferralCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:            uuid.New(),
		Email:         req.Email,
		PasswordHash:  hash,
		DisplayName:   req.DisplayName,
		Role:          user.RoleUser,
		Status:        user.StatusActive,
		EmailVerified: false,
		ReferralCode:  code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if referrer != nil {
		u.ReferredBy = uuid.NullUUID{UUID: referrer.ID, Valid: true}
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.grantSignupCredits(ctx, u, referrer)

	s.emails.SendTemplate(u.Email, u.DisplayName, "welcome", "Welcome to Lumen", map[string]interface{}{
		"Name":    u.DisplayName,
		"Credits": welcomeCredits,
	})

	return s.generateTokens(ctx, u)
}

// grantSignupCredits issues the welcome bucket and, when the signup came
// through a referral link, the referrer's bonus bucket. Grant failures are
// logged but never fail the registration.
func (s *Service) grantSignupCredits(ctx context.Context, u *user.User, referrer *user.User) {
	welcomeDays := welcomeCreditsDays
	if _, err := s.ledger.Grant(ctx, u.ID, welcomeCredits, ledger.GrantParams{
		Type:          ledger.BucketTypePromotional,
		ExpiresInDays: &welcomeDays,
	}); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("welcome credit grant failed")
	}

	if referrer == nil {
		return
	}

	refDays := referralCreditsDays
	sourceID := "referral:" + u.ID.String()
	if _, err := s.ledger.Grant(ctx, referrer.ID, referralCredits, ledger.GrantParams{
		Type:                ledger.BucketTypePromotional,
		ExpiresInDays:       &refDays,
		SourceTransactionID: &sourceID,
	}); err != nil {
		log.Error().Err(err).Str("referrer_id", referrer.ID.String()).Msg("referral credit grant failed")
	}
}

// Login authenticates user
func (s *Service) Login(ctx context.Context, req *LoginRequest, ip string) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if u.IsSuspended() {
		return nil, ErrAccountSuspended
	}

	_ = s.userRepo.UpdateLastLogin(ctx, u.ID, ip)

	return s.generateTokens(ctx, u)
}

// Refresh refreshes access token using refresh token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}

	refreshHash := jwt.HashRefreshToken(refreshToken)
	userID, err := s.getRefreshToken(ctx, refreshHash)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if u.IsSuspended() {
		return nil, ErrAccountSuspended
	}

	// Token rotation: the old refresh token dies with its first use
	_ = s.deleteRefreshToken(ctx, refreshHash)

	return s.generateTokens(ctx, u)
}

// Logout invalidates refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	refreshHash := jwt.HashRefreshToken(refreshToken)
	return s.deleteRefreshToken(ctx, refreshHash)
}

// GetCurrentUser returns current user by ID
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}

	resp := NewUserResponse(u.ID, u.Email, u.DisplayName, string(u.Role), u.EmailVerified, u.ReferralCode, u.CreatedAt)
	return &resp, nil
}

// generateTokens creates access and refresh tokens
func (s *Service) generateTokens(ctx context.Context, u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(u.ID, string(u.Role), u.IsSuspended())
	if err != nil {
		return nil, err
	}

	refreshToken, _, _, err := s.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	// Store hash(refresh) in Redis
	refreshHash := jwt.HashRefreshToken(refreshToken)
	if err := s.storeRefreshToken(ctx, refreshHash, u.ID); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User: NewUserResponse(u.ID, u.Email, u.DisplayName, string(u.Role), u.EmailVerified, u.ReferralCode, u.CreatedAt),
		Tokens: TokensResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(s.jwtService.GetAccessTTL().Seconds()),
		},
	}, nil
}

// Redis helpers (handle nil redis gracefully)
func (s *Service) storeRefreshToken(ctx context.Context, token string, userID uuid.UUID) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Set(ctx, "refresh:"+token, userID.String(), s.jwtService.GetRefreshTTL()).Err()
}

func (s *Service) getRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	if s.redis == nil {
		// Without Redis, refresh tokens don't work
		return uuid.Nil, ErrInvalidRefreshToken
	}
	val, err := s.redis.Get(ctx, "refresh:"+token).Result()
	if err != nil {
		return uuid.Nil, ErrInvalidRefreshToken
	}
	return uuid.Parse(val)
}

func (s *Service) deleteRefreshToken(ctx context.Context, token string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, "refresh:"+token).Err()
}
