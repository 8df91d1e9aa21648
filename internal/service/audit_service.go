package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/observability"
	"github.com/guardline/workforce-service/internal/repository"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

const auditEntityUser = "user"

// AuditService appends entries to the workforce audit trail. Writes happen
// after the guarded mutation committed, so a failed write never rolls
// anything back; it is logged at error level and counted for operators
// instead.
type AuditService struct {
	repo    repository.AuditRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// AuditDependencies bundles collaborators.
type AuditDependencies struct {
	AuditRepo repository.AuditRepository
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	return &AuditService{
		repo:    deps.AuditRepo,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// RecordSupervisorChange writes one entry for a single reassigned user.
func (s *AuditService) RecordSupervisorChange(ctx context.Context, actorID string, target domain.User, oldSupervisorID, newSupervisorID *string) {
	s.record(ctx, &domain.AuditEntry{
		EntityName: auditEntityUser,
		EntityID:   target.ID,
		Action:     domain.AuditActionSupervisorChange,
		ActorID:    &actorID,
		OldValue: map[string]any{
			"supervisor_id": oldSupervisorID,
		},
		NewValue: map[string]any{
			"supervisor_id": newSupervisorID,
		},
	})
}

// RecordRoleChange writes one entry for a role transition. A deletion is
// recorded as its own action so retirements stand out in the trail.
func (s *AuditService) RecordRoleChange(ctx context.Context, actorID string, target domain.User, oldRole domain.Role, change domain.RoleChange) {
	action := domain.AuditActionRoleChange
	if change.IsUnassign() {
		action = domain.AuditActionUserDeleted
	}
	s.record(ctx, &domain.AuditEntry{
		EntityName: auditEntityUser,
		EntityID:   target.ID,
		Action:     action,
		ActorID:    &actorID,
		OldValue: map[string]any{
			"role": string(oldRole),
		},
		NewValue: map[string]any{
			"role":    string(change.ResultingRole()),
			"deleted": change.IsUnassign(),
		},
	})
}

// RecordProvisioned writes one entry when a user record is first created.
func (s *AuditService) RecordProvisioned(ctx context.Context, user domain.User) {
	s.record(ctx, &domain.AuditEntry{
		EntityName: auditEntityUser,
		EntityID:   user.ID,
		Action:     domain.AuditActionUserProvisioned,
		NewValue: map[string]any{
			"external_id": user.ExternalID,
			"email":       user.Email,
			"role":        string(user.Role),
		},
	})
}

// ListByEntity returns the trail for one entity, oldest first.
func (s *AuditService) ListByEntity(ctx context.Context, entityName, entityID string) ([]domain.AuditEntry, error) {
	entries, err := s.repo.ListByEntity(ctx, entityName, entityID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListForUser returns the trail for one user record, oldest first.
func (s *AuditService) ListForUser(ctx context.Context, userID string) ([]domain.AuditEntry, error) {
	return s.ListByEntity(ctx, auditEntityUser, userID)
}

// ListRecent returns the newest entries across all entities.
func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *AuditService) record(ctx context.Context, entry *domain.AuditEntry) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("entity_id", entry.EntityID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
		s.metrics.RecordAuditFailure()
	}
}
