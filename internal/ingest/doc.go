// Package ingest turns input files into a single forward pass over
// normalized instances.
//
// Batch inputs are expanded (directories are listed without recursion),
// sorted, and handed to the format parser registered for their extension.
// Each parser yields its own lazy record stream; Source flattens those
// streams in file order, skipping unknown formats, unreadable files and
// instances above the configured m/z limit. Direct inputs (explicit MS1/MS2
// peak lists with one ion type) are merged into a single instance up front so
// that contradictions fail the run before any job is submitted.
package ingest
