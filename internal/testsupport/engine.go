package testsupport

import (
	"context"
	"sync"

	"ionbatch/internal/identify"
)

// StubEngine answers identification requests from a function and records
// every handle it saw.
type StubEngine struct {
	Answer func(ctx context.Context, handle identify.Handle) ([]identify.Candidate, error)

	mu      sync.Mutex
	handles []identify.Handle
}

// Identify implements identify.Engine.
func (e *StubEngine) Identify(_ context.Context, handle identify.Handle) (identify.Job, error) {
	e.mu.Lock()
	e.handles = append(e.handles, handle)
	e.mu.Unlock()
	return identify.JobFunc(func(ctx context.Context) ([]identify.Candidate, error) {
		if e.Answer == nil {
			return nil, nil
		}
		return e.Answer(ctx, handle)
	}), nil
}

// Handles returns a copy of the recorded handles in submission order.
func (e *StubEngine) Handles() []identify.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]identify.Handle(nil), e.handles...)
}
