package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/user"
)

type fakeRepo struct {
	jobs map[uuid.UUID]*Job
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*Job)}
}

func (f *fakeRepo) Create(_ context.Context, j *Job) error {
	cp := *j
	f.jobs[j.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]Job, error) {
	var out []Job
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountQueuedByUser(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, j := range f.jobs {
		if j.UserID == userID && (j.Status == StatusQueued || j.Status == StatusProcessing) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ClaimProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	j, ok := f.jobs[id]
	if !ok || j.Status != StatusQueued {
		return false, nil
	}
	j.Status = StatusProcessing
	return true, nil
}

func (f *fakeRepo) MarkSucceeded(_ context.Context, id uuid.UUID, resultURL, thumbnailURL string) error {
	j, ok := f.jobs[id]
	if !ok || j.Status != StatusProcessing {
		return nil
	}
	j.Status = StatusSucceeded
	j.ResultURL.String, j.ResultURL.Valid = resultURL, true
	j.ThumbnailURL.String, j.ThumbnailURL.Valid = thumbnailURL, true
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, refunded bool) error {
	j, ok := f.jobs[id]
	if !ok {
		return nil
	}
	j.Status = StatusFailed
	j.ErrorMessage.String, j.ErrorMessage.Valid = errMsg, true
	j.Refunded = refunded
	return nil
}

type fakeQueue struct {
	messages []QueueMessage
	failErr  error
}

func (f *fakeQueue) Enqueue(_ context.Context, msg QueueMessage) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.messages = append(f.messages, msg)
	return nil
}

type recordedGrant struct {
	UserID uuid.UUID
	Amount int
	Params ledger.GrantParams
}

type recordedDeduct struct {
	UserID uuid.UUID
	Amount int
}

type fakeLedger struct {
	balance int
	grants  []recordedGrant
	deducts []recordedDeduct
}

func (f *fakeLedger) GetBalance(context.Context, uuid.UUID) (int, error) { return f.balance, nil }
func (f *fakeLedger) HasSufficientBalance(_ context.Context, _ uuid.UUID, amount int) (bool, error) {
	return f.balance >= amount, nil
}
func (f *fakeLedger) Grant(_ context.Context, userID uuid.UUID, amount int, params ledger.GrantParams) (uuid.UUID, error) {
	f.grants = append(f.grants, recordedGrant{UserID: userID, Amount: amount, Params: params})
	f.balance += amount
	return uuid.New(), nil
}
func (f *fakeLedger) Deduct(_ context.Context, userID uuid.UUID, amount int) error {
	if f.balance < amount {
		return ledger.ErrInsufficientCredits
	}
	f.balance -= amount
	f.deducts = append(f.deducts, recordedDeduct{UserID: userID, Amount: amount})
	return nil
}
func (f *fakeLedger) ListBuckets(context.Context, uuid.UUID) ([]ledger.CreditBucket, error) {
	return nil, nil
}

type fakeUsers struct {
	byID map[uuid.UUID]*user.User
}

func (f *fakeUsers) Create(context.Context, *user.User) error { return nil }
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return f.byID[id], nil
}
func (f *fakeUsers) GetByEmail(context.Context, string) (*user.User, error)        { return nil, nil }
func (f *fakeUsers) GetByReferralCode(context.Context, string) (*user.User, error) { return nil, nil }
func (f *fakeUsers) Update(context.Context, *user.User) error                      { return nil }
func (f *fakeUsers) UpdateEmailVerified(context.Context, uuid.UUID, bool) error    { return nil }
func (f *fakeUsers) UpdatePassword(context.Context, uuid.UUID, string) error       { return nil }
func (f *fakeUsers) UpdateStatus(context.Context, uuid.UUID, user.Status) error    { return nil }
func (f *fakeUsers) UpdateLastLogin(context.Context, uuid.UUID, string) error      { return nil }
func (f *fakeUsers) List(context.Context, int, int) ([]user.User, error)           { return nil, nil }
func (f *fakeUsers) Count(context.Context) (int, error)                            { return 0, nil }

type recordedEvent struct {
	UserID uuid.UUID
	Event  JobEvent
}

type fakeEvents struct {
	events []recordedEvent
}

func (f *fakeEvents) PublishJobEvent(userID uuid.UUID, event JobEvent) {
	f.events = append(f.events, recordedEvent{UserID: userID, Event: event})
}

func newTestService(repo *fakeRepo, queue *fakeQueue, led *fakeLedger, events *fakeEvents) *Service {
	users := &fakeUsers{byID: make(map[uuid.UUID]*user.User)}
	return NewService(repo, queue, led, users, nil, events, ServiceConfig{
		MaxQueuedPerUser: 3,
	})
}

func TestCreateDeductsAndEnqueues(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{}
	led := &fakeLedger{balance: 100}
	svc := newTestService(repo, queue, led, &fakeEvents{})

	userID := uuid.New()
	result, err := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "image_hd", Prompt: "a fox"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if result.Job.Status != StatusQueued {
		t.Errorf("status = %s, want queued", result.Job.Status)
	}
	if result.Job.CostCredits != 12 {
		t.Errorf("cost = %d, want 12", result.Job.CostCredits)
	}
	if result.RemainingCredits != 88 {
		t.Errorf("remaining = %d, want 88", result.RemainingCredits)
	}
	if len(led.deducts) != 1 || led.deducts[0].Amount != 12 {
		t.Fatalf("deducts = %+v, want one of 12", led.deducts)
	}
	if len(queue.messages) != 1 || queue.messages[0].JobID != result.Job.ID {
		t.Fatalf("queue messages = %+v", queue.messages)
	}
}

func TestCreateInsufficientCredits(t *testing.T) {
	repo := newFakeRepo()
	led := &fakeLedger{balance: 2}
	svc := newTestService(repo, &fakeQueue{}, led, &fakeEvents{})

	_, err := svc.Create(context.Background(), uuid.New(), &CreateJobRequest{Kind: "image", Prompt: "a fox"})
	if !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if len(repo.jobs) != 0 {
		t.Errorf("job was created despite insufficient credits")
	}
}

func TestCreateUnknownKind(t *testing.T) {
	led := &fakeLedger{balance: 100}
	svc := newTestService(newFakeRepo(), &fakeQueue{}, led, &fakeEvents{})

	_, err := svc.Create(context.Background(), uuid.New(), &CreateJobRequest{Kind: "hologram", Prompt: "a fox"})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
	if len(led.deducts) != 0 {
		t.Errorf("credits were deducted for an unknown kind")
	}
}

func TestCreateQueueCap(t *testing.T) {
	repo := newFakeRepo()
	led := &fakeLedger{balance: 1000}
	svc := newTestService(repo, &fakeQueue{}, led, &fakeEvents{})

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "image", Prompt: "a fox"}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	_, err := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "image", Prompt: "a fox"})
	if !errors.Is(err, ErrTooManyQueued) {
		t.Fatalf("err = %v, want ErrTooManyQueued", err)
	}
	if len(led.deducts) != 3 {
		t.Errorf("deducts = %d, want 3", len(led.deducts))
	}
}

func TestCreateEnqueueFailureRefunds(t *testing.T) {
	repo := newFakeRepo()
	queue := &fakeQueue{failErr: errors.New("redis down")}
	led := &fakeLedger{balance: 100}
	svc := newTestService(repo, queue, led, &fakeEvents{})

	userID := uuid.New()
	_, err := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "video", Prompt: "a fox"})
	if err == nil {
		t.Fatal("expected error when enqueue fails")
	}

	if led.balance != 100 {
		t.Errorf("balance = %d, want 100 after refund", led.balance)
	}
	if len(led.grants) != 1 {
		t.Fatalf("grants = %d, want 1 refund", len(led.grants))
	}
	g := led.grants[0]
	if g.Amount != 60 || g.Params.Type != ledger.BucketTypePromotional {
		t.Errorf("refund grant = %+v", g)
	}
	if g.Params.ExpiresInDays != nil {
		t.Errorf("refund grant should never expire")
	}

	var job *Job
	for _, j := range repo.jobs {
		job = j
	}
	if job == nil || job.Status != StatusFailed || !job.Refunded {
		t.Errorf("job = %+v, want failed and refunded", job)
	}
}

func TestStartClaimsOnce(t *testing.T) {
	repo := newFakeRepo()
	events := &fakeEvents{}
	led := &fakeLedger{balance: 100}
	svc := newTestService(repo, &fakeQueue{}, led, events)

	userID := uuid.New()
	result, err := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "image", Prompt: "a fox"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	job, err := svc.Start(context.Background(), result.Job.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job == nil || job.Status != StatusProcessing {
		t.Fatalf("job = %+v, want processing", job)
	}

	again, err := svc.Start(context.Background(), result.Job.ID)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if again != nil {
		t.Error("second Start should lose the claim")
	}

	if len(events.events) != 1 || events.events[0].Event.Status != StatusProcessing {
		t.Errorf("events = %+v, want one processing event", events.events)
	}
}

func TestCompleteSuccessPublishesResult(t *testing.T) {
	repo := newFakeRepo()
	events := &fakeEvents{}
	led := &fakeLedger{balance: 100}
	svc := newTestService(repo, &fakeQueue{}, led, events)

	userID := uuid.New()
	result, _ := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "image", Prompt: "a fox"})
	if _, err := svc.Start(context.Background(), result.Job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := svc.CompleteSuccess(context.Background(), result.Job.ID, "https://cdn/img.png", "https://cdn/thumb.png"); err != nil {
		t.Fatalf("CompleteSuccess: %v", err)
	}

	job := repo.jobs[result.Job.ID]
	if job.Status != StatusSucceeded || job.ResultURL.String != "https://cdn/img.png" {
		t.Errorf("job = %+v", job)
	}
	last := events.events[len(events.events)-1]
	if last.UserID != userID || last.Event.Status != StatusSucceeded || last.Event.ResultURL != "https://cdn/img.png" {
		t.Errorf("last event = %+v", last)
	}
	if len(led.grants) != 0 {
		t.Errorf("success must not grant refunds")
	}
}

func TestCompleteFailureRefundsOnce(t *testing.T) {
	repo := newFakeRepo()
	events := &fakeEvents{}
	led := &fakeLedger{balance: 100}
	svc := newTestService(repo, &fakeQueue{}, led, events)

	userID := uuid.New()
	result, _ := svc.Create(context.Background(), userID, &CreateJobRequest{Kind: "upscale", Prompt: "a fox"})
	if _, err := svc.Start(context.Background(), result.Job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := svc.CompleteFailure(context.Background(), result.Job.ID, "render crashed"); err != nil {
		t.Fatalf("CompleteFailure: %v", err)
	}

	if led.balance != 100 {
		t.Errorf("balance = %d, want full refund back to 100", led.balance)
	}
	g := led.grants[0]
	wantSource := "refund:" + result.Job.ID.String()
	if g.Params.SourceTransactionID == nil || *g.Params.SourceTransactionID != wantSource {
		t.Errorf("refund source = %v, want %s", g.Params.SourceTransactionID, wantSource)
	}

	// A second failure report on a terminal job must not refund again
	if err := svc.CompleteFailure(context.Background(), result.Job.ID, "render crashed"); err != nil {
		t.Fatalf("second CompleteFailure: %v", err)
	}
	if len(led.grants) != 1 {
		t.Errorf("grants = %d, want exactly one refund", len(led.grants))
	}

	last := events.events[len(events.events)-1]
	if last.Event.Status != StatusFailed || last.Event.Error != "render crashed" {
		t.Errorf("last event = %+v", last)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newFakeRepo()
	led := &fakeLedger{balance: 100}
	svc := newTestService(repo, &fakeQueue{}, led, &fakeEvents{})

	owner := uuid.New()
	result, _ := svc.Create(context.Background(), owner, &CreateJobRequest{Kind: "image", Prompt: "a fox"})

	if _, err := svc.Get(context.Background(), owner, result.Job.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := svc.Get(context.Background(), uuid.New(), result.Job.ID); !errors.Is(err, ErrNotJobOwner) {
		t.Fatalf("err = %v, want ErrNotJobOwner", err)
	}
	if _, err := svc.Get(context.Background(), owner, uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}
