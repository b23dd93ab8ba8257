package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"qualityhair-hub/internal/model"
	"qualityhair-hub/internal/repository"
)

const (
	auditListDefaultPage = 1
	auditListDefaultSize = 20
	auditListMaxPageSize = 200
)

var ErrInvalidAuditInput = errors.New("invalid audit input")

type AuditEntry struct {
	ActorEmail   *string                `json:"actor_email,omitempty"`
	Action       string                 `json:"action"`
	ResourceType *string                `json:"resource_type,omitempty"`
	ResourceID   *string                `json:"resource_id,omitempty"`
	OldValue     map[string]interface{} `json:"old_value,omitempty"`
	NewValue     map[string]interface{} `json:"new_value,omitempty"`
	IPAddress    *string                `json:"ip_address,omitempty"`
	UserAgent    *string                `json:"user_agent,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type AuditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if s.auditRepo == nil {
		return errors.New("audit repository is nil")
	}

	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return ErrInvalidAuditInput
	}

	logItem := &model.AuditLog{
		ActorEmail:   trimAuditStringPtr(entry.ActorEmail),
		Action:       action,
		ResourceType: trimAuditStringPtr(entry.ResourceType),
		ResourceID:   trimAuditStringPtr(entry.ResourceID),
		OldValue:     entry.OldValue,
		NewValue:     entry.NewValue,
		IPAddress:    trimAuditStringPtr(entry.IPAddress),
		UserAgent:    trimAuditStringPtr(entry.UserAgent),
		CreatedAt:    entry.CreatedAt.UTC(),
	}
	if logItem.CreatedAt.IsZero() {
		logItem.CreatedAt = time.Now().UTC()
	}

	return s.auditRepo.Create(ctx, logItem)
}

func (s *AuditService) List(
	ctx context.Context,
	filter repository.AuditListFilter,
	page, pageSize int,
) ([]*model.AuditLog, error) {
	if s.auditRepo == nil {
		return nil, errors.New("audit repository is nil")
	}

	page, pageSize = normalizeAuditPagination(page, pageSize)
	filter.Pagination = repository.Pagination{
		Limit:  int32(pageSize),
		Offset: int32((page - 1) * pageSize),
	}

	return s.auditRepo.List(ctx, filter)
}

func normalizeAuditPagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = auditListDefaultPage
	}
	if pageSize <= 0 {
		pageSize = auditListDefaultSize
	}
	if pageSize > auditListMaxPageSize {
		pageSize = auditListMaxPageSize
	}
	return page, pageSize
}

func trimAuditStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
