// Package jobs implements the in-memory job registry that serializes work
// per (task type, company) key. The registry is the single source of truth
// for duplicate and cooldown decisions; state is lost on process restart.
package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskType identifies one of the fixed flows.
type TaskType string

const (
	TaskEnrichment    TaskType = "datos"
	TaskProspeccion   TaskType = "llamada_prospeccion"
	TaskCalificarLead TaskType = "calificar_lead"
	TaskHacerTareas   TaskType = "hacer_tareas"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is Completed or Failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Sentinel errors returned by the store. Callers match with errors.Is.
var (
	ErrDuplicate         = errors.New("jobs: active job exists for this company")
	ErrCooldown          = errors.New("jobs: company was processed recently")
	ErrNotFound          = errors.New("jobs: job not found")
	ErrInvalidTransition = errors.New("jobs: invalid status transition")
	ErrCapacity          = errors.New("jobs: registry full with in-flight jobs")
)

// Job is one tracked execution of a flow against one company.
type Job struct {
	ID         string     `json:"job_id"`
	TaskType   TaskType   `json:"task_type"`
	CompanyID  string     `json:"company_id,omitempty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

const (
	defaultMaxJobs  = 1000
	defaultCooldown = 30 * time.Minute
)

// Store is the process-wide job registry. All methods are safe for
// concurrent use; Create performs its duplicate and cooldown checks inside
// the same critical section as the insert.
type Store struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	maxJobs  int
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxJobs overrides the registry capacity.
func WithMaxJobs(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

// WithCooldown overrides the recently-completed rejection window.
func WithCooldown(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a job registry with a 1000-job capacity and a 30-minute
// cooldown window unless overridden.
func NewStore(opts ...Option) *Store {
	s := &Store{
		jobs:     make(map[string]*Job),
		maxJobs:  defaultMaxJobs,
		cooldown: defaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveJob returns a snapshot of the Pending or Running job for the key,
// or nil.
func (s *Store) ActiveJob(task TaskType, companyID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.findActive(task, companyID))
}

// RecentlyCompleted returns a snapshot of a job for the key that reached a
// terminal status within the cooldown window, or nil.
func (s *Store) RecentlyCompleted(task TaskType, companyID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.findRecent(task, companyID))
}

// Create inserts a new Pending job for the key. It fails with ErrDuplicate
// when an active job exists, ErrCooldown when a terminal job finished within
// the cooldown window, and ErrCapacity when the registry is full of
// in-flight jobs. The checks and the insert are atomic.
func (s *Store) Create(task TaskType, companyID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findActive(task, companyID) != nil {
		return nil, ErrDuplicate
	}
	if s.findRecent(task, companyID) != nil {
		return nil, ErrCooldown
	}
	if len(s.jobs) >= s.maxJobs {
		if !s.evictOldestFinished() {
			return nil, ErrCapacity
		}
	}

	job := &Job{
		ID:        uuid.NewString(),
		TaskType:  task,
		CompanyID: companyID,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	s.jobs[job.ID] = job
	return snapshot(job), nil
}

// Get returns a snapshot of the job, or ErrNotFound.
func (s *Store) Get(jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(job), nil
}

// MarkRunning transitions Pending → Running.
func (s *Store) MarkRunning(jobID string) error {
	return s.transition(jobID, StatusRunning, nil, "")
}

// MarkCompleted transitions Running → Completed with the flow result.
func (s *Store) MarkCompleted(jobID string, result any) error {
	return s.transition(jobID, StatusCompleted, result, "")
}

// MarkFailed transitions Pending|Running → Failed with an error description.
func (s *Store) MarkFailed(jobID string, errMsg string) error {
	return s.transition(jobID, StatusFailed, nil, errMsg)
}

// legalTransitions maps a current status to its allowed successors.
var legalTransitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

func (s *Store) transition(jobID string, next Status, result any, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}

	allowed := false
	for _, st := range legalTransitions[job.Status] {
		if st == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidTransition
	}

	job.Status = next
	if next.Terminal() {
		now := s.now()
		job.FinishedAt = &now
		job.Result = result
		job.Error = errMsg
	}
	return nil
}

// findActive returns the Pending/Running job for the key. Caller holds mu.
func (s *Store) findActive(task TaskType, companyID string) *Job {
	for _, job := range s.jobs {
		if job.TaskType == task && job.CompanyID == companyID && !job.Status.Terminal() {
			return job
		}
	}
	return nil
}

// findRecent returns a terminal job for the key inside the cooldown window.
// Caller holds mu.
func (s *Store) findRecent(task TaskType, companyID string) *Job {
	cutoff := s.now().Add(-s.cooldown)
	for _, job := range s.jobs {
		if job.TaskType != task || job.CompanyID != companyID {
			continue
		}
		if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.After(cutoff) {
			return job
		}
	}
	return nil
}

// evictOldestFinished removes the oldest terminal job to make room. Returns
// false when every job is still in flight. Caller holds mu.
func (s *Store) evictOldestFinished() bool {
	var oldest *Job
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return false
	}
	delete(s.jobs, oldest.ID)
	return true
}

// snapshot copies a job so callers never observe concurrent mutation.
func snapshot(job *Job) *Job {
	if job == nil {
		return nil
	}
	cp := *job
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
