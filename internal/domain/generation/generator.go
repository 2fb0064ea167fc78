package generation

import (
	"context"

	"github.com/google/uuid"
)

// ProgressFunc receives progress reports from a running generation.
type ProgressFunc func(progress int)

// Job is one generation handed to a Generator.
type Job struct {
	SessionID uuid.UUID
	Execution uint64
	Request   *Request
	Profile   Profile
}

// Generator produces media for a validated request. Implementations must
// return promptly once ctx is done and must not call onProgress after returning.
type Generator interface {
	Generate(ctx context.Context, job Job, onProgress ProgressFunc) (*Result, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, job Job, onProgress ProgressFunc) (*Result, error)

// Generate calls f(ctx, job, onProgress).
func (f GeneratorFunc) Generate(ctx context.Context, job Job, onProgress ProgressFunc) (*Result, error) {
	return f(ctx, job, onProgress)
}
