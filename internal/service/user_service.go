package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/notify"
	"github.com/guardline/workforce-service/internal/repository"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

// ProvisionInput carries the identity claims used to create a user record on
// first authenticated access.
type ProvisionInput struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
}

// UserService exposes directory reads and guarded user mutations.
type UserService struct {
	users  repository.UserRepository
	authz  *AuthorizationService
	audit  *AuditService
	fanout *notify.Fanout
	logger *zap.Logger
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	UserRepo repository.UserRepository
	Authz    *AuthorizationService
	Audit    *AuditService
	Fanout   *notify.Fanout
	Logger   *zap.Logger
}

// NewUserService creates the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:  deps.UserRepo,
		authz:  deps.Authz,
		audit:  deps.Audit,
		fanout: deps.Fanout,
		logger: deps.Logger,
	}
}

// EnsureProvisioned returns the user behind an external identity, creating
// an Unassigned record on first contact. Retired accounts are not revived;
// they come back as USER_NOT_FOUND like any unresolvable caller.
func (s *UserService) EnsureProvisioned(ctx context.Context, input ProvisionInput) (*domain.User, error) {
	user, err := s.users.FindByExternalID(ctx, input.ExternalID)
	switch {
	case err == nil && user.IsActive():
		return s.refreshClaims(ctx, user, input)
	case err == nil:
		return nil, apperrors.NewAuthErrorWithCause(apperrors.CodeUserNotFound, "user not found", ErrCallerDeactivated)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}

	fresh := &domain.User{
		ExternalID: input.ExternalID,
		Email:      domain.NormalizeEmail(input.Email),
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Role:       domain.RoleUnassigned,
	}
	if err := s.users.Create(ctx, fresh); err != nil {
		// two first requests can race on the unique index; the loser reads
		// the winner's row
		if existing, lookupErr := s.users.FindActiveByExternalID(ctx, input.ExternalID); lookupErr == nil {
			return existing, nil
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("provisioned user",
		zap.String("user_id", fresh.ID),
		zap.String("external_id", fresh.ExternalID))
	s.audit.RecordProvisioned(ctx, *fresh)
	return fresh, nil
}

// refreshClaims folds identity-provider profile drift back into the stored
// record. Claims win for email and name; empty claims leave stored values
// alone. A failed refresh never blocks the request.
func (s *UserService) refreshClaims(ctx context.Context, user *domain.User, input ProvisionInput) (*domain.User, error) {
	email, firstName, lastName := user.Email, user.FirstName, user.LastName
	if normalized := domain.NormalizeEmail(input.Email); normalized != "" {
		email = normalized
	}
	if input.FirstName != "" {
		firstName = input.FirstName
	}
	if input.LastName != "" {
		lastName = input.LastName
	}
	if email == user.Email && firstName == user.FirstName && lastName == user.LastName {
		return user, nil
	}

	updated, err := s.users.UpdateProfile(ctx, user.ID, email, firstName, lastName)
	if err != nil {
		s.logger.Warn("profile refresh failed",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return user, nil
	}
	return updated, nil
}

// Get returns one directory record. Callers may always read themselves;
// reading others takes the view capability.
func (s *UserService) Get(ctx context.Context, callerExternalID, userID string) (*domain.User, error) {
	caller, err := s.authz.ResolveCaller(ctx, callerExternalID)
	if err != nil {
		return nil, err
	}
	if caller.ID != userID {
		if _, err := s.authz.RequireCapability(ctx, callerExternalID, domain.CapViewWorkforce, "view user"); err != nil {
			return nil, err
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// List returns directory records matching the filter.
func (s *UserService) List(ctx context.Context, callerExternalID string, filter repository.UserFilter) ([]domain.User, error) {
	if _, err := s.authz.RequireCapability(ctx, callerExternalID, domain.CapViewWorkforce, "list users"); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Reports returns the active direct reports of a supervisor. Supervisors may
// always read their own reports.
func (s *UserService) Reports(ctx context.Context, callerExternalID, supervisorID string) ([]domain.User, error) {
	caller, err := s.authz.ResolveCaller(ctx, callerExternalID)
	if err != nil {
		return nil, err
	}
	if caller.ID != supervisorID {
		if _, err := s.authz.RequireCapability(ctx, callerExternalID, domain.CapViewWorkforce, "view reports"); err != nil {
			return nil, err
		}
	}

	reports, err := s.users.ListReports(ctx, supervisorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// AssignableRoles returns the roles the caller may grant to others.
func (s *UserService) AssignableRoles(ctx context.Context, callerExternalID string) ([]domain.Role, error) {
	caller, err := s.authz.ResolveCaller(ctx, callerExternalID)
	if err != nil {
		return nil, err
	}
	return caller.Role.AssignableRoles(), nil
}

// ChangeRole applies a role change to the target user after the caller
// passes the role change gate. The supervisor graph adjustments happen in
// the same transaction as the role write; notification and audit follow
// after commit and never fail the call.
func (s *UserService) ChangeRole(ctx context.Context, callerExternalID, targetUserID string, change domain.RoleChange) (*domain.User, error) {
	caller, err := s.authz.RequireRoleChangeAllowed(ctx, callerExternalID, change)
	if err != nil {
		return nil, err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetUserID})
		}
		return nil, apperrors.MapError(err)
	}
	if !target.IsActive() {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetUserID})
	}

	oldRole := target.Role
	updated, err := s.users.ApplyRoleChange(ctx, target.ID, change)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetUserID})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("role changed",
		zap.String("actor_id", caller.ID),
		zap.String("user_id", updated.ID),
		zap.String("old_role", string(oldRole)),
		zap.String("new_role", string(updated.Role)),
		zap.Bool("deleted", change.IsUnassign()))

	s.audit.RecordRoleChange(ctx, caller.ID, *updated, oldRole, change)
	if change.IsUnassign() {
		s.fanout.NotifyDeactivation(ctx, updated)
	} else {
		s.fanout.NotifyRoleChange(ctx, updated, oldRole, updated.Role)
	}
	return updated, nil
}
