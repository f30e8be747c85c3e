// Package services defines shared utilities consumed by the pipeline
// components and the external identification engine.
//
// Key responsibilities:
//   - Context helpers that stamp instance indices, source files, run and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the pipeline tell
//     fatal input problems apart from per-instance failures.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the pipeline.
package services
