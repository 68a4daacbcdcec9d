package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/pkg/email"
)

// ServiceConfig carries the tunables for job admission
type ServiceConfig struct {
	// MaxQueuedPerUser caps queued+processing jobs a single user may hold
	MaxQueuedPerUser int

	// LowBalanceThreshold triggers a warning email when the balance after a
	// deduction drops below it. 0 disables the warning.
	LowBalanceThreshold int

	// FrontendURL is used in email links
	FrontendURL string
}

// Service owns the generation job lifecycle. Credits are deducted before a
// job is accepted and granted back if the pipeline fails, so a job in the
// queue is always paid for.
type Service struct {
	repo   Repository
	queue  Enqueuer
	ledger ledger.Service
	users  user.Repository
	emails email.Sender
	events EventPublisher
	cfg    ServiceConfig
	now    func() time.Time
}

// NewService creates generation service
func NewService(repo Repository, queue Enqueuer, ledgerSvc ledger.Service, users user.Repository, emails email.Sender, events EventPublisher, cfg ServiceConfig) *Service {
	if emails == nil {
		emails = email.NopSender{}
	}
	if cfg.MaxQueuedPerUser <= 0 {
		cfg.MaxQueuedPerUser = 10
	}
	return &Service{
		repo:   repo,
		queue:  queue,
		ledger: ledgerSvc,
		users:  users,
		emails: emails,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Create admits a new job: validates the kind, enforces the per-user queue
// cap, deducts the cost, persists the job and enqueues it for a worker.
// The deduction happens before the job row exists, so an insufficient
// balance never leaves a half-created job behind.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateJobRequest) (*CreateJobResponse, error) {
	if !IsValidKind(req.Kind) {
		return nil, ErrInvalidKind
	}
	kind := Kind(req.Kind)

	queued, err := s.repo.CountQueuedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count queued jobs: %w", err)
	}
	if queued >= s.cfg.MaxQueuedPerUser {
		return nil, ErrTooManyQueued
	}

	cost := CostFor(kind)
	if err := s.ledger.Deduct(ctx, userID, cost); err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			return nil, err
		}
		return nil, fmt.Errorf("deduct credits: %w", err)
	}

	job := &Job{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        kind,
		Prompt:      req.Prompt,
		CostCredits: cost,
		Status:      StatusQueued,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		s.refund(ctx, job, "job persistence failed")
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, QueueMessage{JobID: job.ID, Kind: kind}); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to enqueue job")
		if markErr := s.repo.MarkFailed(ctx, job.ID, "could not be queued", true); markErr != nil {
			log.Error().Err(markErr).Str("job_id", job.ID.String()).Msg("Failed to mark job failed")
		}
		s.refund(ctx, job, "enqueue failed")
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to read balance after deduct")
		balance = 0
	} else if s.cfg.LowBalanceThreshold > 0 && balance < s.cfg.LowBalanceThreshold {
		s.sendLowBalanceEmail(ctx, userID, balance)
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("user_id", userID.String()).
		Str("kind", string(kind)).
		Int("cost", cost).
		Msg("Generation job accepted")

	return &CreateJobResponse{Job: job, RemainingCredits: balance}, nil
}

// Get returns a job, restricted to its owner
func (s *Service) Get(ctx context.Context, userID, jobID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.UserID != userID {
		return nil, ErrNotJobOwner
	}
	return job, nil
}

// List returns the user's jobs, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Start transitions a job to processing. Called by workers; returns the job
// only when this worker won the claim, nil when another worker already did.
func (s *Service) Start(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	claimed, err := s.repo.ClaimProcessing(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, nil
	}

	job.Status = StatusProcessing
	s.publish(job.UserID, JobEvent{JobID: job.ID, Status: StatusProcessing})
	return job, nil
}

// CompleteSuccess finalizes a successful job with its artifact URLs
func (s *Service) CompleteSuccess(ctx context.Context, jobID uuid.UUID, resultURL, thumbnailURL string) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}

	if err := s.repo.MarkSucceeded(ctx, jobID, resultURL, thumbnailURL); err != nil {
		return err
	}

	s.publish(job.UserID, JobEvent{
		JobID:        jobID,
		Status:       StatusSucceeded,
		ResultURL:    resultURL,
		ThumbnailURL: thumbnailURL,
	})

	log.Info().Str("job_id", jobID.String()).Msg("Generation job succeeded")
	return nil
}

// CompleteFailure finalizes a failed job and refunds its cost. The refund is
// a compensating grant tagged with the job id, so the audit trail shows both
// the deduction's job and the money coming back.
func (s *Service) CompleteFailure(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.IsTerminal() {
		return nil
	}

	if err := s.repo.MarkFailed(ctx, jobID, errMsg, true); err != nil {
		return err
	}

	s.refund(ctx, job, errMsg)
	s.publish(job.UserID, JobEvent{JobID: jobID, Status: StatusFailed, Error: errMsg})
	s.sendFailureEmail(ctx, job)

	log.Warn().
		Str("job_id", jobID.String()).
		Str("error", errMsg).
		Msg("Generation job failed, credits refunded")
	return nil
}

// refund grants the job's cost back as never-expiring promotional credits
func (s *Service) refund(ctx context.Context, job *Job, reason string) {
	source := "refund:" + job.ID.String()
	_, err := s.ledger.Grant(ctx, job.UserID, job.CostCredits, ledger.GrantParams{
		Type:                ledger.BucketTypePromotional,
		SourceTransactionID: &source,
	})
	if err != nil {
		// A failed refund must never be silent
		log.Error().Err(err).
			Str("job_id", job.ID.String()).
			Str("user_id", job.UserID.String()).
			Int("amount", job.CostCredits).
			Str("reason", reason).
			Msg("Failed to refund credits for failed job")
	}
}

func (s *Service) publish(userID uuid.UUID, event JobEvent) {
	if s.events == nil {
		return
	}
	s.events.PublishJobEvent(userID, event)
}

func (s *Service) sendLowBalanceEmail(ctx context.Context, userID uuid.UUID, balance int) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return
	}
	s.emails.SendTemplate(u.Email, u.DisplayName, "low_balance", "You're running low on credits", map[string]interface{}{
		"Balance": balance,
		"URL":     s.cfg.FrontendURL + "/credits",
	})
}

func (s *Service) sendFailureEmail(ctx context.Context, job *Job) {
	u, err := s.users.GetByID(ctx, job.UserID)
	if err != nil || u == nil {
		return
	}
	s.emails.SendTemplate(u.Email, u.DisplayName, "generation_failed", "Your generation could not be completed", map[string]interface{}{
		"Credits": job.CostCredits,
		"URL":     s.cfg.FrontendURL + "/create",
	})
}
