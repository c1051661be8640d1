package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"go.uber.org/zap"
)

// AuditLogService handles audit logging operations
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// LogEntry represents the input for creating an audit log entry
type LogEntry struct {
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	NewValues  interface{}
}

// Log creates an audit log entry for the caller's org from context and request.
// Entries without an org are dropped.
func (s *AuditLogService) Log(ctx context.Context, r *http.Request, entry LogEntry) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok || !userCtx.HasOrg() {
		return nil
	}

	auditLog := &domain.AuditLog{
		OrgID:       userCtx.OrgID,
		UserID:      userCtx.UserID,
		UserName:    userCtx.DisplayName,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		PerformedAt: time.Now().UTC(),
	}

	if r != nil {
		auditLog.Method = r.Method
		auditLog.Path = r.URL.Path
		auditLog.IPAddress = clientIP(r)
		auditLog.RequestID = r.Header.Get("X-Request-ID")
	}

	if entry.NewValues != nil {
		if data, err := json.Marshal(entry.NewValues); err == nil {
			auditLog.NewValues = string(data)
		}
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns a page of the org's audit entries, newest first
func (s *AuditLogService) List(ctx context.Context, filters *domain.AuditLogFilters, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := requirePermission(ctx, domain.PermissionUsersManage); err != nil {
		return nil, err
	}
	page, pageSize = repository.NormalizePage(page, pageSize)

	logs, total, err := s.auditRepo.List(ctx, filters, page, pageSize)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// CleanupOldLogs removes logs older than the specified retention period
func (s *AuditLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, validationError("retention days must be positive")
	}
	before := time.Now().UTC().AddDate(0, 0, -retentionDays)
	count, err := s.auditRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("failed to cleanup old audit logs",
			zap.Int("retention_days", retentionDays),
			zap.Error(err))
		return 0, err
	}

	if count > 0 {
		s.logger.Info("cleaned up old audit logs",
			zap.Int64("deleted_count", count),
			zap.Int("retention_days", retentionDays))
	}
	return count, nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
