package generation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Kind represents what a job produces
type Kind string

const (
	KindImage   Kind = "image"
	KindImageHD Kind = "image_hd"
	KindUpscale Kind = "upscale"
	KindVideo   Kind = "video"
)

// Credit cost per job kind. Deducted up front when the job is accepted,
// refunded if the pipeline fails.
var kindCosts = map[Kind]int{
	KindImage:   5,
	KindImageHD: 12,
	KindUpscale: 3,
	KindVideo:   60,
}

// CostFor returns the credit cost for a kind, 0 for unknown kinds
func CostFor(kind Kind) int {
	return kindCosts[kind]
}

// IsValidKind checks if kind is supported
func IsValidKind(kind string) bool {
	_, ok := kindCosts[Kind(kind)]
	return ok
}

// Status represents job status
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Job represents one generation request
type Job struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	UserID       uuid.UUID      `db:"user_id" json:"user_id"`
	Kind         Kind           `db:"kind" json:"kind"`
	Prompt       string         `db:"prompt" json:"prompt"`
	CostCredits  int            `db:"cost_credits" json:"cost_credits"`
	Status       Status         `db:"status" json:"status"`
	ResultURL    sql.NullString `db:"result_url" json:"result_url,omitempty"`
	ThumbnailURL sql.NullString `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message,omitempty"`
	Refunded     bool           `db:"refunded" json:"refunded"`
	StartedAt    sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	FinishedAt   sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the job reached a final state
func (j *Job) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}
