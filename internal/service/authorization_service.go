package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/repository"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

// Callers that cannot act resolve to the same external error so account
// existence is never leaked, but the two causes stay distinguishable for
// diagnostics through errors.Is.
var (
	ErrCallerUnknown     = errors.New("caller not found")
	ErrCallerDeactivated = errors.New("caller deactivated")
)

// AuthorizationService translates an opaque caller identity into an
// authorization decision.
type AuthorizationService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// AuthorizationDependencies bundles collaborators.
type AuthorizationDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// NewAuthorizationService creates the service.
func NewAuthorizationService(deps AuthorizationDependencies) *AuthorizationService {
	return &AuthorizationService{
		users:  deps.UserRepo,
		logger: deps.Logger,
	}
}

// ResolveCaller loads the active user behind an external identity. A missing
// or retired account both come back as USER_NOT_FOUND.
func (s *AuthorizationService) ResolveCaller(ctx context.Context, externalID string) (*domain.User, error) {
	caller, err := s.users.FindActiveByExternalID(ctx, externalID)
	if err == nil {
		return caller, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	// Tell apart "never existed" from "retired" for operators only.
	if retired, lookupErr := s.users.FindByExternalID(ctx, externalID); lookupErr == nil && !retired.IsActive() {
		s.logger.Info("rejected deactivated caller",
			zap.String("user_id", retired.ID),
			zap.String("external_id", externalID))
		return nil, apperrors.NewAuthErrorWithCause(apperrors.CodeUserNotFound, "user not found", ErrCallerDeactivated)
	}
	return nil, apperrors.NewAuthErrorWithCause(apperrors.CodeUserNotFound, "user not found", ErrCallerUnknown)
}

// RequireActive verifies the caller resolves to an active user.
func (s *AuthorizationService) RequireActive(ctx context.Context, externalID string) error {
	_, err := s.ResolveCaller(ctx, externalID)
	return err
}

// RequireCapability resolves the caller and checks a named capability. The
// operation label travels with the error so denied requests are attributable.
func (s *AuthorizationService) RequireCapability(ctx context.Context, externalID string, capability domain.Capability, operation string) (*domain.User, error) {
	caller, err := s.ResolveCaller(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !capability.Allows(caller.Role) {
		s.logger.Info("capability denied",
			zap.String("user_id", caller.ID),
			zap.String("role", string(caller.Role)),
			zap.String("capability", capability.Name),
			zap.String("operation", operation))
		return nil, apperrors.NewPrivilegeError(operation)
	}
	return caller, nil
}

// RequireRoleChangeAllowed checks that the caller may apply the given role
// change to another user. Supervisors may only demote to Employee or
// unassign; everyone else is bound by the role hierarchy.
func (s *AuthorizationService) RequireRoleChangeAllowed(ctx context.Context, externalID string, change domain.RoleChange) (*domain.User, error) {
	caller, err := s.RequireCapability(ctx, externalID, domain.CapManageUsers, "change role")
	if err != nil {
		return nil, err
	}

	if change.IsUnassign() {
		return caller, nil
	}

	target, ok := change.TargetRole()
	if !ok || !target.Valid() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidRole, "unknown role requested", nil)
	}

	if caller.Role == domain.RoleSupervisor && target != domain.RoleEmployee {
		return nil, apperrors.NewPrivilegeError("change role")
	}
	if !caller.Role.CanAssign(target) {
		return nil, apperrors.NewPrivilegeError("change role")
	}
	return caller, nil
}
