package generation

// CreateJobRequest is the payload for submitting a new job
type CreateJobRequest struct {
	Kind   string `json:"kind" validate:"required"`
	Prompt string `json:"prompt" validate:"required,min=1,max=2000"`
}

// CreateJobResponse returns the accepted job and the balance after deduction
type CreateJobResponse struct {
	Job              *Job `json:"job"`
	RemainingCredits int  `json:"remaining_credits"`
}

// ListJobsResponse is a page of the user's jobs
type ListJobsResponse struct {
	Jobs   []Job `json:"jobs"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
