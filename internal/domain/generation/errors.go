package generation

import "errors"

var (
	ErrJobNotFound   = errors.New("generation job not found")
	ErrNotJobOwner   = errors.New("job belongs to another user")
	ErrInvalidKind   = errors.New("unsupported generation kind")
	ErrTooManyQueued = errors.New("too many queued jobs")
)
