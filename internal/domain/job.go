package domain

import "fmt"

// JobStatus enumerates the lifecycle states of an asynchronous generation job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// ParseJobStatus maps an upstream status string onto a JobStatus. Anything that
// is not a terminal state is treated as still running.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case JobStatusSucceeded:
		return JobStatusSucceeded
	case JobStatusFailed:
		return JobStatusFailed
	default:
		return JobStatusRunning
	}
}

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// GenerationJob tracks a job submitted to the asynchronous provider. It is only
// mutated by status reads from the poller.
type GenerationJob struct {
	ID     string
	Status JobStatus
	Checks int
}

// NewGenerationJob returns a freshly submitted job.
func NewGenerationJob(id string) *GenerationJob {
	return &GenerationJob{ID: id, Status: JobStatusRunning}
}

// Transition moves the job to next. Terminal jobs reject every transition.
func (j *GenerationJob) Transition(next JobStatus) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s: already %s, cannot move to %s", j.ID, j.Status, next)
	}
	j.Status = next
	return nil
}

// RecordCheck counts one status query and applies the status it reported.
func (j *GenerationJob) RecordCheck(status JobStatus) error {
	j.Checks++
	return j.Transition(status)
}
