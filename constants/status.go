package constants

// JobStatus is the canonical status for a filing job in batch runs.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"    // waiting for a worker
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusSucceeded JobStatus = "SUCCEEDED" // report produced
	JobStatusSkipped   JobStatus = "SKIPPED"   // duplicate content, not analyzed again
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)
