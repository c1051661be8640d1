package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jakecourtright/HayFlow/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCleaner struct {
	days  int
	calls int
	err   error
}

func (f *fakeCleaner) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	f.calls++
	f.days = retentionDays
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return 3, f.err
}

func TestAuditRetentionJob_Run(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := jobs.NewAuditRetentionJob(cleaner, 90, time.Minute, zap.NewNop())

	job.Run()
	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 90, cleaner.days)

	cleaner.err = errors.New("db down")
	job.Run()
	assert.Equal(t, 2, cleaner.calls)
}

func TestScheduler_AddRemove(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob(jobs.AuditRetentionJobName, "0 0 3 * * *", func() {}))
	assert.Error(t, s.AddJob(jobs.AuditRetentionJobName, "0 0 3 * * *", func() {}))
	assert.Error(t, s.AddJob("bad", "not a cron", func() {}))
	assert.Equal(t, []string{jobs.AuditRetentionJobName}, s.JobNames())

	require.NoError(t, s.RemoveJob(jobs.AuditRetentionJobName))
	assert.Error(t, s.RemoveJob(jobs.AuditRetentionJobName))
	assert.Empty(t, s.JobNames())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
