package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"members/internal/ids"
	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
	"members/internal/webmodel"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     *uint  `json:"user_id"`
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditEntry is one mutation to record.
type AuditEntry struct {
	UserID     *uint
	Action     string
	EntityType string
	EntityID   uint
	Details    any
}

type AuditService interface {
	Record(ctx context.Context, entry AuditEntry) error
	GetAuditLogs(ctx context.Context, actor permission.Actor, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo  repository.AuditRepository
	authz Authorizer
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, authz Authorizer) AuditService {
	return &auditService{repo: repo, authz: authz}
}

// Record appends an entry. Called with a transaction context it joins the
// caller's transaction.
func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	details := "{}"
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = string(raw)
	}
	return s.repo.Log(ctx, &model.AuditLog{
		ID:         ids.New(),
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   strconv.FormatUint(uint64(entry.EntityID), 10),
		Details:    details,
	})
}

func (s *auditService) GetAuditLogs(ctx context.Context, actor permission.Actor, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error) {
	if err := authorize(ctx, s.authz, actor, permission.Flag(model.PermAuditView)); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		name := "System"
		if l.User != nil {
			name = webmodel.DisplayName(l.User.FirstName, l.User.LastName)
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID,
			UserID:     l.UserID,
			UserName:   name,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}
