package logging

// ProgressSampler suppresses repetitive progress logs by emitting only when a
// running count crosses a bucket boundary.
type ProgressSampler struct {
	every      int
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits every `every` items
// (default 100).
func NewProgressSampler(every int) *ProgressSampler {
	if every <= 0 {
		every = 100
	}
	return &ProgressSampler{every: every}
}

// ShouldLog reports whether progress at count done should be logged.
func (s *ProgressSampler) ShouldLog(done int) bool {
	if s == nil {
		return true
	}
	bucket := done / s.every
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = 0
}
