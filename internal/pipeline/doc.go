// Package pipeline runs one batch: it opens the project store, streams
// instances from ingestion through ion type resolution into the bounded
// scheduler, and reconciles every completion into the configured sinks.
//
// Fatal problems (configuration, preflight, missing inputs, unopenable
// outputs) are returned before any job is submitted. Once jobs run, failures
// are per instance and end up as outcome records. The sinks are closed exactly
// once and a final timing line is always written.
package pipeline
