// Package scheduler runs one identification job per instance while keeping
// the number of instances held in memory between an initial and a maximum
// buffer size.
//
// The goroutine calling Run owns ingestion, job preparation and
// reconciliation; workers only execute jobs and hand completions back over a
// buffered channel. That keeps the outcome sink single-writer without extra
// locking in the reconciler.
package scheduler
