// Package instance defines the compound record that flows through ingestion,
// ion type resolution, scheduling and reconciliation.
//
// Annotations are a fixed struct of typed slots rather than an open map so
// every consumer knows at compile time which hints may be present.
package instance
