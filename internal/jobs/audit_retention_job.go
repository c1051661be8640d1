package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditRetentionJobName is the scheduler name of the audit log retention job
const AuditRetentionJobName = "audit_retention"

// AuditLogCleaner deletes audit entries older than a number of days
type AuditLogCleaner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

// AuditRetentionJob prunes the audit log across all orgs
type AuditRetentionJob struct {
	cleaner       AuditLogCleaner
	retentionDays int
	timeout       time.Duration
	logger        *zap.Logger
}

func NewAuditRetentionJob(cleaner AuditLogCleaner, retentionDays int, timeout time.Duration, logger *zap.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{
		cleaner:       cleaner,
		retentionDays: retentionDays,
		timeout:       timeout,
		logger:        logger,
	}
}

// Run is called by the scheduler
func (j *AuditRetentionJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := j.cleaner.CleanupOldLogs(ctx, j.retentionDays)
	if err != nil {
		j.logger.Error("audit retention job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
	j.logger.Info("audit retention job completed",
		zap.Int64("deleted", deleted),
		zap.Int("retention_days", j.retentionDays),
		zap.Duration("duration", time.Since(start)))
}
