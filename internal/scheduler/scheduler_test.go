package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	err  error

	mu   sync.Mutex
	runs int
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *fakeJob) runCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newTestScheduler() *Scheduler {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestAddJobAndRunNow(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "refresh"}

	require.NoError(t, s.AddJob("@every 1h", job))

	// RunNow works without the cron loop running.
	require.NoError(t, s.RunNow("refresh"))
	assert.Equal(t, 1, job.runCount())

	require.NoError(t, s.RunNow("refresh"))
	assert.Equal(t, 2, job.runCount())
}

func TestRunNowPropagatesJobError(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "broken", err: errors.New("boom")}

	require.NoError(t, s.AddJob("@every 1h", job))

	err := s.RunNow("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, job.runCount())
}

func TestRunNowUnknownJob(t *testing.T) {
	s := newTestScheduler()

	err := s.RunNow("no_such_job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job")
}

func TestAddJobRejectsDuplicateName(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob("@every 1h", &fakeJob{name: "refresh"}))

	err := s.AddJob("@every 5m", &fakeJob{name: "refresh"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob("not a schedule", &fakeJob{name: "refresh"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule job")
}

func TestJobsSorted(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob("@every 1h", &fakeJob{name: "zeta"}))
	require.NoError(t, s.AddJob("@every 1h", &fakeJob{name: "alpha"}))
	require.NoError(t, s.AddJob("@every 1h", &fakeJob{name: "mid"}))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Jobs())
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob("@every 1h", &fakeJob{name: "refresh"}))

	s.Start()
	s.Stop()
}
