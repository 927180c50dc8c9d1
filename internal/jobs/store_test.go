package jobs

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for cooldown tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestCreate_DuplicateActive(t *testing.T) {
	s := NewStore()

	first, err := s.Create(TaskEnrichment, "111")
	require.NoError(t, err)
	require.Equal(t, StatusPending, first.Status)

	_, err = s.Create(TaskEnrichment, "111")
	assert.ErrorIs(t, err, ErrDuplicate)

	// A different task type for the same company is an independent key.
	_, err = s.Create(TaskProspeccion, "111")
	assert.NoError(t, err)

	// Still duplicate while Running.
	require.NoError(t, s.MarkRunning(first.ID))
	_, err = s.Create(TaskEnrichment, "111")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreate_ConcurrentSameKey(t *testing.T) {
	s := NewStore()

	const n = 16
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(TaskEnrichment, "222")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, dup := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case err == ErrDuplicate:
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestCreate_Cooldown(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	job, err := s.Create(TaskEnrichment, "333")
	require.NoError(t, err)
	require.NoError(t, s.MarkRunning(job.ID))
	require.NoError(t, s.MarkCompleted(job.ID, nil))

	clock.Advance(29 * time.Minute)
	_, err = s.Create(TaskEnrichment, "333")
	assert.ErrorIs(t, err, ErrCooldown)

	clock.Advance(2 * time.Minute)
	_, err = s.Create(TaskEnrichment, "333")
	assert.NoError(t, err)
}

func TestCreate_CooldownAppliesToFailed(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	job, err := s.Create(TaskCalificarLead, "444")
	require.NoError(t, err)
	require.NoError(t, s.MarkRunning(job.ID))
	require.NoError(t, s.MarkFailed(job.ID, "provider down"))

	_, err = s.Create(TaskCalificarLead, "444")
	assert.ErrorIs(t, err, ErrCooldown)
}

func TestTransitions(t *testing.T) {
	s := NewStore()

	job, err := s.Create(TaskEnrichment, "555")
	require.NoError(t, err)

	// Pending → Completed is not legal.
	assert.ErrorIs(t, s.MarkCompleted(job.ID, nil), ErrInvalidTransition)

	require.NoError(t, s.MarkRunning(job.ID))
	require.NoError(t, s.MarkCompleted(job.ID, map[string]string{"status": "enriched"}))

	// Terminal jobs reject further transitions.
	assert.ErrorIs(t, s.MarkRunning(job.ID), ErrInvalidTransition)
	assert.ErrorIs(t, s.MarkFailed(job.ID, "late"), ErrInvalidTransition)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
}

func TestMarkFailed_FromPending(t *testing.T) {
	s := NewStore()

	job, err := s.Create(TaskHacerTareas, "")
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(job.ID, "flag write failed"))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "flag write failed", got.Error)
}

func TestGet_NotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapacity_EvictsOldestFinished(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithMaxJobs(3), WithClock(clock.Now))

	finish := func(companyID string) *Job {
		job, err := s.Create(TaskEnrichment, companyID)
		require.NoError(t, err)
		require.NoError(t, s.MarkRunning(job.ID))
		require.NoError(t, s.MarkCompleted(job.ID, nil))
		return job
	}

	oldest := finish("c1")
	clock.Advance(time.Hour)
	newer := finish("c2")
	clock.Advance(time.Hour)
	finish("c3")

	clock.Advance(time.Hour)
	_, err := s.Create(TaskEnrichment, "c4")
	require.NoError(t, err)

	// The oldest finished job is gone; the newer one survives.
	_, err = s.Get(oldest.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(newer.ID)
	assert.NoError(t, err)
}

func TestCapacity_AllInFlight(t *testing.T) {
	s := NewStore(WithMaxJobs(3))

	for i := 0; i < 3; i++ {
		_, err := s.Create(TaskEnrichment, fmt.Sprintf("c%d", i))
		require.NoError(t, err)
	}

	_, err := s.Create(TaskEnrichment, "c99")
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()

	job, err := s.Create(TaskEnrichment, "777")
	require.NoError(t, err)
	require.NoError(t, s.MarkRunning(job.ID))

	// The snapshot returned by Create does not see later mutations.
	assert.Equal(t, StatusPending, job.Status)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
}
