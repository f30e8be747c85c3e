// Package project persists outcome records.
//
// A project is a directory holding an SQLite database (outcomes, ranked
// candidates and run bookkeeping) guarded by a lock file so that only one run
// writes to it at a time. The package also provides a TSV summary sink and a
// fan-out sink that writes every record to several sinks in turn.
package project
