// Package reconcile classifies finished jobs into outcome records, prints a
// ranked summary per instance and hands each record to the outcome sink.
//
// Reconcile is called once per completion on the scheduling goroutine, so the
// sink sees a single writer. Sink write failures are logged and counted; they
// never stop the run.
package reconcile
