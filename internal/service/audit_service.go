package service

import (
	"context"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/repository"
	"smartsahuji/pkg/pagination"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, userID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the caller's own entries, newest first.
func (s *auditService) GetAuditLogs(ctx context.Context, userID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error) {
	p := pagination.Clamp(page, limit)
	logs, total, err := s.repo.ListByUser(ctx, userID, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, apperr.Internal("failed to load audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return res, total, nil
}
