// Package preflight provides readiness checks for the filesystem paths and
// external binaries a run depends on.
//
// RunAll is called by the pipeline before any input is read; a failed check
// aborts the run with a configuration error so no job is submitted against a
// project that cannot be written or an engine that cannot be started.
package preflight
