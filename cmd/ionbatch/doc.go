// Command ionbatch identifies compounds from batches of mass spectra.
//
// `ionbatch run` streams every instance of the given inputs through the
// identification engine and records one outcome per instance in the project
// store. `ionbatch show` and `ionbatch runs` read the store back; `ionbatch
// config` creates and inspects configuration files.
package main
