package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/notify"
	"github.com/guardline/workforce-service/internal/observability"
	"github.com/guardline/workforce-service/internal/repository"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

var validate = validator.New()

// ReassignmentService performs validated, atomic bulk supervisor changes.
// Validation failures reject the whole batch before any write; the write
// itself is a single transaction, so readers never observe a half-applied
// batch. Notifications and audit run after commit and never undo it.
type ReassignmentService struct {
	users   repository.UserRepository
	authz   *AuthorizationService
	audit   *AuditService
	fanout  *notify.Fanout
	logger  *zap.Logger
	metrics *observability.Metrics
}

// ReassignmentDependencies bundles collaborators.
type ReassignmentDependencies struct {
	UserRepo repository.UserRepository
	Authz    *AuthorizationService
	Audit    *AuditService
	Fanout   *notify.Fanout
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewReassignmentService creates the service.
func NewReassignmentService(deps ReassignmentDependencies) *ReassignmentService {
	return &ReassignmentService{
		users:   deps.UserRepo,
		authz:   deps.Authz,
		audit:   deps.Audit,
		fanout:  deps.Fanout,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// Reassign points every target employee at the requested supervisor, or
// detaches them when the assignment carries no supervisor email. The caller
// is gated before any target is read. Repeating an identical assignment is
// a no-op that reports the same affected count.
func (s *ReassignmentService) Reassign(ctx context.Context, callerExternalID string, assignment domain.SupervisorAssignment) (*domain.SupervisorAssignmentResult, error) {
	caller, err := s.authz.RequireCapability(ctx, callerExternalID, domain.CapManageUsers, "reassign supervisor")
	if err != nil {
		s.metrics.RecordReassignment("denied", 0)
		return nil, err
	}

	normalized := assignment.Normalized()
	if err := validateTargetEmails(normalized.EmployeeEmails); err != nil {
		s.metrics.RecordReassignment("rejected", 0)
		return nil, err
	}

	supervisor, supervisorID, err := s.resolveSupervisor(ctx, normalized.SupervisorEmail)
	if err != nil {
		s.metrics.RecordReassignment("rejected", 0)
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, normalized.EmployeeEmails)
	if err != nil {
		s.metrics.RecordReassignment("rejected", 0)
		return nil, err
	}

	targetIDs := make([]string, len(targets))
	for i, target := range targets {
		targetIDs[i] = target.ID
	}

	affected, err := s.users.UpdateSupervisorBatch(ctx, targetIDs, supervisorID)
	if err != nil {
		s.logger.Error("supervisor batch failed",
			zap.String("actor_id", caller.ID),
			zap.Int("targets", len(targetIDs)),
			zap.Error(err))
		s.metrics.RecordReassignment("failed", 0)
		return nil, apperrors.NewSupervisorError(err)
	}

	s.logger.Info("supervisors reassigned",
		zap.String("actor_id", caller.ID),
		zap.Int64("affected", affected),
		zap.Bool("unassigned", supervisor == nil))
	s.metrics.RecordReassignment("applied", int(affected))

	s.fanout.NotifySupervisorChange(ctx, targets, supervisor)

	for _, target := range targets {
		s.audit.RecordSupervisorChange(ctx, caller.ID, target, target.SupervisorID, supervisorID)
	}
	for i := range targets {
		targets[i].SupervisorID = supervisorID
	}

	return &domain.SupervisorAssignmentResult{
		AffectedCount: int(affected),
		Supervisor:    supervisor,
		Targets:       targets,
	}, nil
}

func validateTargetEmails(emails []string) error {
	if len(emails) == 0 {
		return apperrors.NewValidationError(apperrors.CodeEmployeeEmailRequired,
			"at least one employee email is required", nil)
	}
	for i, email := range emails {
		if email == "" {
			return apperrors.NewValidationError(apperrors.CodeEmployeeEmailRequired,
				"employee email must not be blank",
				map[string]any{"position": i})
		}
		if err := validate.Var(email, "email"); err != nil {
			return apperrors.NewValidationError(apperrors.CodeInvalidEmailFormat,
				fmt.Sprintf("invalid email format: %s", email),
				map[string]any{"email": email})
		}
	}
	return nil
}

func (s *ReassignmentService) resolveSupervisor(ctx context.Context, email *string) (*domain.User, *string, error) {
	if email == nil {
		return nil, nil, nil
	}

	supervisor, err := s.users.FindActiveByEmail(ctx, *email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewValidationError(apperrors.CodeTargetUserNotFound,
				"supervisor not found",
				map[string]any{"email": *email})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !supervisor.IsSupervisor() {
		return nil, nil, apperrors.NewValidationError(apperrors.CodeTargetNotEmployee,
			"user does not hold the supervisor role",
			map[string]any{"email": *email, "role": string(supervisor.Role)})
	}
	return supervisor, &supervisor.ID, nil
}

// resolveTargets maps every email to an active employee. Any miss rejects
// the whole batch.
func (s *ReassignmentService) resolveTargets(ctx context.Context, emails []string) ([]domain.User, error) {
	found, err := s.users.FindActiveByEmails(ctx, emails)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byEmail := make(map[string]domain.User, len(found))
	for _, user := range found {
		byEmail[user.Email] = user
	}

	targets := make([]domain.User, 0, len(emails))
	for _, email := range emails {
		target, ok := byEmail[email]
		if !ok {
			return nil, apperrors.NewValidationError(apperrors.CodeTargetUserNotFound,
				"no active user for email",
				map[string]any{"email": email})
		}
		if !target.IsEmployee() {
			return nil, apperrors.NewValidationError(apperrors.CodeTargetNotEmployee,
				"target is not an employee",
				map[string]any{"email": email, "role": string(target.Role)})
		}
		targets = append(targets, target)
	}
	return targets, nil
}
