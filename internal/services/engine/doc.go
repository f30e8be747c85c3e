// Package engine runs the external identification binary for one job at a
// time. The job request is written to the process as JSON on stdin and the
// ranked candidates are read back as JSON from stdout.
//
// Tests inject a stub Executor via WithExecutor to avoid spawning processes.
package engine
