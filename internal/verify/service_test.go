package verify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForJob(t *testing.T, s *Service, id string) Job {
	t.Helper()
	var got Job
	require.Eventually(t, func() bool {
		j, ok := s.Snapshot(id)
		if !ok {
			return false
		}
		got = j
		return j.Status == JobStatusDone || j.Status == JobStatusFailed
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestServiceSubmitAndComplete(t *testing.T) {
	d := newVerifiedRun(t)
	s := NewService(filepath.Dir(d.Path()))

	job, err := s.Submit(d.ID())
	require.NoError(t, err)
	assert.Equal(t, d.ID(), job.RunID)
	assert.NotEmpty(t, job.ID)

	done := waitForJob(t, s, job.ID)
	assert.Equal(t, JobStatusDone, done.Status)
	assert.Equal(t, "all checks passed", done.Message)
	require.NotNil(t, done.Report)
	assert.True(t, done.Report.OK)
}

func TestServiceReportsIssues(t *testing.T) {
	d := newVerifiedRun(t)
	require.NoError(t, os.WriteFile(d.Join("ohlcv_fakex_BTC-USDT_1m.parquet"), []byte("tampered"), 0o644))
	s := NewService(filepath.Dir(d.Path()))

	job, err := s.Submit(d.ID())
	require.NoError(t, err)

	done := waitForJob(t, s, job.ID)
	assert.Equal(t, JobStatusDone, done.Status)
	assert.Equal(t, "issues found", done.Message)
	require.NotNil(t, done.Report)
	assert.False(t, done.Report.OK)
}

func TestServiceSubmitUnknownRun(t *testing.T) {
	s := NewService(t.TempDir())

	_, err := s.Submit("20260101T000000Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify submit")
	assert.Empty(t, s.Jobs())
}

func TestServiceJobsAreCopies(t *testing.T) {
	d := newVerifiedRun(t)
	s := NewService(filepath.Dir(d.Path()))

	job, err := s.Submit(d.ID())
	require.NoError(t, err)
	waitForJob(t, s, job.ID)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	jobs[0].Status = "mutated"

	snap, ok := s.Snapshot(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobStatusDone, snap.Status)
}

func TestServiceSnapshotUnknown(t *testing.T) {
	s := NewService(t.TempDir())
	_, ok := s.Snapshot("nope")
	assert.False(t, ok)
}
