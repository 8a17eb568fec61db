package ingest

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// JobStatus tracks an asynchronous extraction.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one asynchronous extraction request and, eventually, its result.
type Job struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Status    JobStatus      `json:"status"`
	Result    *ExtractResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorCode ErrorCode      `json:"error_code,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// JobStore keeps jobs in memory with a TTL. Finished jobs linger long
// enough for the client to poll the result and then expire on their own.
type JobStore struct {
	jobs *cache.Cache
}

// NewJobStore creates a store whose entries expire ttl after creation.
func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{jobs: cache.New(ttl, 10*time.Minute)}
}

// Create registers a new pending job and returns a snapshot of it.
func (s *JobStore) Create(filename string) *Job {
	job := Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		Status:    JobPending,
		CreatedAt: time.Now(),
	}
	s.jobs.SetDefault(job.ID, job)
	return &job
}

// Get returns a snapshot of the job with the given id, or false when
// unknown or expired. Jobs are stored by value so pollers never share
// memory with the worker goroutine.
func (s *JobStore) Get(id string) (*Job, bool) {
	v, ok := s.jobs.Get(id)
	if !ok {
		return nil, false
	}
	job := v.(Job)
	return &job, true
}

// SetRunning marks the job as in progress.
func (s *JobStore) SetRunning(id string) {
	if job, ok := s.Get(id); ok {
		job.Status = JobRunning
		s.jobs.SetDefault(id, *job)
	}
}

// Complete stores the job's result.
func (s *JobStore) Complete(id string, result *ExtractResult) {
	if job, ok := s.Get(id); ok {
		job.Status = JobCompleted
		job.Result = result
		s.jobs.SetDefault(id, *job)
	}
}

// Fail records the job's terminal error.
func (s *JobStore) Fail(id string, err error) {
	if job, ok := s.Get(id); ok {
		job.Status = JobFailed
		job.Error = err.Error()
		job.ErrorCode = CodeOf(err)
		s.jobs.SetDefault(id, *job)
	}
}
