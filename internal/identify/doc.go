// Package identify describes the contract between the pipeline and the
// identification engine: the job handle built for each instance, the ranked
// candidates a job yields, and the engine and job interfaces the scheduler
// drives.
package identify
