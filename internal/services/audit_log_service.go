package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

const (
	defaultAuditSeverity = "info"
	defaultActorType     = "unknown"
	auditHashPrefix      = "sha256:"
)

// AuditLogger defines the logging contract used by the audit writer service.
type AuditLogger interface {
	Warnf(format string, args ...any)
}

type noopAuditLogger struct{}

func (noopAuditLogger) Warnf(string, ...any) {}

// AuditLogServiceDeps bundles constructor inputs for the audit writer service.
type AuditLogServiceDeps struct {
	Repository repositories.AuditLogRepository
	Clock      func() time.Time
	Logger     AuditLogger
	HashSalt   string
}

type auditLogService struct {
	repo     repositories.AuditLogRepository
	clock    func() time.Time
	logger   AuditLogger
	hashSalt string
}

// NewAuditLogService creates an audit log writer backed by the supplied repository.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("audit log service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopAuditLogger{}
	}

	return &auditLogService{
		repo:     deps.Repository,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		hashSalt: deps.HashSalt,
	}, nil
}

// Record persists an audit log entry after sanitising sensitive fields.
// Repository failures are logged but never bubble up to callers, keeping the
// primary mutation flow intact.
func (s *auditLogService) Record(ctx context.Context, record AuditLogRecord) {
	if s.repo == nil {
		return
	}
	entry := s.buildEntry(record)
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warnf("audit log append failed: %v", err)
	}
}

// List delegates to the repository to retrieve paginated audit logs.
func (s *auditLogService) List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	if s.repo == nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, errors.New("audit log service: repository is required")
	}

	pager := filter.Pagination
	if pager.PageSize <= 0 {
		pager.PageSize = defaultListPageSize
	}
	if pager.PageSize > maxListPageSize {
		pager.PageSize = maxListPageSize
	}

	return s.repo.List(ctx, repositories.AuditLogFilter{
		TargetRef:  strings.TrimSpace(filter.TargetRef),
		Actor:      strings.TrimSpace(filter.Actor),
		Action:     strings.TrimSpace(filter.Action),
		DateRange:  filter.DateRange,
		Pagination: pager,
	})
}

func (s *auditLogService) buildEntry(record AuditLogRecord) domain.AuditLogEntry {
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	} else {
		occurred = occurred.UTC()
	}

	entry := domain.AuditLogEntry{
		Actor:     sanitizeText(record.Actor, 160),
		ActorType: normalizeActorType(record.ActorType, record.Actor),
		Action:    sanitizeText(record.Action, 120),
		TargetRef: sanitizeText(record.TargetRef, 200),
		Severity:  normalizeSeverity(record.Severity),
		RequestID: sanitizeText(record.RequestID, 128),
		CreatedAt: occurred,
	}

	if len(record.Metadata) > 0 {
		meta := make(map[string]any, len(record.Metadata))
		for key, value := range record.Metadata {
			trimmedKey := sanitizeText(key, 80)
			if trimmedKey == "" {
				continue
			}
			if str, ok := value.(string); ok {
				meta[trimmedKey] = sanitizeText(str, 512)
				continue
			}
			meta[trimmedKey] = value
		}
		entry.Metadata = meta
	}

	if ip := strings.TrimSpace(record.IPAddress); ip != "" {
		entry.IPHash = auditHashPrefix + s.hashString(ip)
	}

	return entry
}

func (s *auditLogService) hashString(value string) string {
	sum := sha256.Sum256([]byte(s.hashSalt + strings.TrimSpace(value)))
	return hex.EncodeToString(sum[:])
}

func normalizeActorType(actorType string, actor string) string {
	normalized := strings.ToLower(strings.TrimSpace(actorType))
	switch normalized {
	case "user", "staff", "system", "service":
		return normalized
	}
	actor = strings.ToLower(strings.TrimSpace(actor))
	switch {
	case strings.HasPrefix(actor, "/users/"), strings.HasPrefix(actor, "user:"):
		return "user"
	case strings.HasPrefix(actor, "/staff/"), strings.HasPrefix(actor, "staff:"):
		return "staff"
	case actor == "system" || strings.HasPrefix(actor, "system:"):
		return "system"
	default:
		return defaultActorType
	}
}

func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	default:
		return defaultAuditSeverity
	}
}

func sanitizeText(input string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var builder strings.Builder
	for _, r := range input {
		if r < 32 {
			continue
		}
		builder.WriteRune(r)
		if builder.Len() >= limit {
			break
		}
	}
	return builder.String()
}
