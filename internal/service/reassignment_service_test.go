package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/notify"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

type reassignFixture struct {
	svc         *ReassignmentService
	repo        *memoryUserRepo
	audit       *memoryAuditRepo
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
}

func newReassignFixture(users ...*domain.User) *reassignFixture {
	repo := newMemoryUserRepo(users...)
	auditRepo := &memoryAuditRepo{}
	notifier := &recordingNotifier{}
	broadcaster := &recordingBroadcaster{}
	logger := zap.NewNop()

	authz := NewAuthorizationService(AuthorizationDependencies{UserRepo: repo, Logger: logger})
	audit := NewAuditService(AuditDependencies{AuditRepo: auditRepo, Logger: logger})
	fanout := notify.NewFanout(notify.FanoutDependencies{
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Logger:      logger,
	})

	svc := NewReassignmentService(ReassignmentDependencies{
		UserRepo: repo,
		Authz:    authz,
		Audit:    audit,
		Fanout:   fanout,
		Logger:   logger,
	})
	return &reassignFixture{svc: svc, repo: repo, audit: auditRepo, notifier: notifier, broadcaster: broadcaster}
}

func employee(externalID, email string) *domain.User {
	return activeUser(externalID, email, domain.RoleEmployee)
}

func strptr(s string) *string { return &s }

func TestReassignHappyPath(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
		employee("ext-a", "a@corp.test"),
		employee("ext-b", "b@corp.test"),
	)

	result, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
		EmployeeEmails:  []string{"a@corp.test", "b@corp.test"},
		SupervisorEmail: strptr("sup@corp.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AffectedCount)
	require.NotNil(t, result.Supervisor)

	supervisorID := result.Supervisor.ID
	for _, email := range []string{"a@corp.test", "b@corp.test"} {
		user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), email)
		require.NoError(t, lookupErr)
		require.NotNil(t, user.SupervisorID)
		assert.Equal(t, supervisorID, *user.SupervisorID)
	}

	// one direct notification per target plus one broadcast
	assert.Len(t, fx.notifier.delivered, 2)
	require.Len(t, fx.broadcaster.events, 1)
	assert.Equal(t, 2, fx.broadcaster.events[0].Data["affected_count"])

	// one audit entry per mutated user with before and after supervisor
	require.Len(t, fx.audit.entries, 2)
	for _, entry := range fx.audit.entries {
		assert.Equal(t, domain.AuditActionSupervisorChange, entry.Action)
		assert.Nil(t, entry.OldValue["supervisor_id"])
		assert.Equal(t, strptr(supervisorID), entry.NewValue["supervisor_id"])
	}
}

func TestReassignUnassignsOwnReports(t *testing.T) {
	sup := activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor)
	sup.ID = "sup-1"
	reportA := employee("ext-a", "a@corp.test")
	reportA.SupervisorID = strptr("sup-1")
	reportB := employee("ext-b", "b@corp.test")
	reportB.SupervisorID = strptr("sup-1")

	fx := newReassignFixture(sup, reportA, reportB)

	result, err := fx.svc.Reassign(context.Background(), "ext-sup", domain.SupervisorAssignment{
		EmployeeEmails: []string{"a@corp.test", "b@corp.test"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AffectedCount)
	assert.Nil(t, result.Supervisor)

	for _, email := range []string{"a@corp.test", "b@corp.test"} {
		user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), email)
		require.NoError(t, lookupErr)
		assert.Nil(t, user.SupervisorID)
	}

	require.Len(t, fx.broadcaster.events, 1)
	assert.Equal(t, "unassigned", fx.broadcaster.events[0].Data["supervisor_name"])
}

func TestReassignAuthGate(t *testing.T) {
	t.Run("employee caller is rejected before any target read", func(t *testing.T) {
		fx := newReassignFixture(
			employee("ext-emp", "emp@corp.test"),
			employee("ext-a", "a@corp.test"),
		)

		_, err := fx.svc.Reassign(context.Background(), "ext-emp", domain.SupervisorAssignment{
			EmployeeEmails: []string{"a@corp.test"},
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInsufficientPrivileges, apperrors.CodeOf(err))

		assert.False(t, fx.repo.calledAny("FindActiveByEmail", "FindActiveByEmails", "UpdateSupervisorBatch"),
			"target lookups must not run for an unauthorized caller")
		assert.Empty(t, fx.notifier.delivered)
		assert.Empty(t, fx.audit.entries)
	})

	t.Run("contact manager caller is rejected", func(t *testing.T) {
		fx := newReassignFixture(
			activeUser("ext-cm", "cm@corp.test", domain.RoleContactManager),
			employee("ext-a", "a@corp.test"),
		)

		_, err := fx.svc.Reassign(context.Background(), "ext-cm", domain.SupervisorAssignment{
			EmployeeEmails: []string{"a@corp.test"},
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInsufficientPrivileges, apperrors.CodeOf(err))
	})

	t.Run("unknown caller is rejected", func(t *testing.T) {
		fx := newReassignFixture(employee("ext-a", "a@corp.test"))

		_, err := fx.svc.Reassign(context.Background(), "ext-ghost", domain.SupervisorAssignment{
			EmployeeEmails: []string{"a@corp.test"},
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUserNotFound, apperrors.CodeOf(err))
	})
}

func TestReassignEmailValidation(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		employee("ext-a", "a@corp.test"),
	)
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		_, err := fx.svc.Reassign(ctx, "ext-admin", domain.SupervisorAssignment{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeEmployeeEmailRequired, apperrors.CodeOf(err))
	})

	t.Run("blank entry", func(t *testing.T) {
		_, err := fx.svc.Reassign(ctx, "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails: []string{"a@corp.test", "   "},
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeEmployeeEmailRequired, apperrors.CodeOf(err))
	})

	t.Run("malformed entry", func(t *testing.T) {
		_, err := fx.svc.Reassign(ctx, "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails: []string{"a@corp.test", "not-an-email"},
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidEmailFormat, apperrors.CodeOf(err))

		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, 400, domainErr.HTTPStatus)
		assert.Equal(t, "not-an-email", domainErr.Details["email"])
	})

	t.Run("nothing was written", func(t *testing.T) {
		assert.False(t, fx.repo.calledAny("UpdateSupervisorBatch"))
	})
}

func TestReassignSupervisorResolution(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		employee("ext-a", "a@corp.test"),
		employee("ext-b", "b@corp.test"),
	)
	ctx := context.Background()

	t.Run("unknown supervisor email", func(t *testing.T) {
		_, err := fx.svc.Reassign(ctx, "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails:  []string{"a@corp.test"},
			SupervisorEmail: strptr("nobody@corp.test"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeTargetUserNotFound, apperrors.CodeOf(err))
	})

	t.Run("supervisor email resolving to an employee", func(t *testing.T) {
		_, err := fx.svc.Reassign(ctx, "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails:  []string{"a@corp.test"},
			SupervisorEmail: strptr("b@corp.test"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeTargetNotEmployee, apperrors.CodeOf(err))
	})

	t.Run("no mutation occurred", func(t *testing.T) {
		user, err := fx.repo.FindActiveByEmail(ctx, "a@corp.test")
		require.NoError(t, err)
		assert.Nil(t, user.SupervisorID)
		assert.False(t, fx.repo.calledAny("UpdateSupervisorBatch"))
	})
}

func TestReassignAtomicity(t *testing.T) {
	t.Run("one ineligible target rejects the whole batch", func(t *testing.T) {
		fx := newReassignFixture(
			activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
			activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
			employee("ext-a", "a@corp.test"),
			activeUser("ext-b", "b@corp.test", domain.RoleContactManager),
			employee("ext-c", "c@corp.test"),
		)

		_, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails:  []string{"a@corp.test", "b@corp.test", "c@corp.test"},
			SupervisorEmail: strptr("sup@corp.test"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeTargetNotEmployee, apperrors.CodeOf(err))

		for _, email := range []string{"a@corp.test", "b@corp.test", "c@corp.test"} {
			user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), email)
			require.NoError(t, lookupErr)
			assert.Nil(t, user.SupervisorID, "no user may be mutated when the batch fails")
		}
		assert.Empty(t, fx.notifier.delivered)
		assert.Empty(t, fx.audit.entries)
	})

	t.Run("missing target rejects the whole batch", func(t *testing.T) {
		fx := newReassignFixture(
			activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
			activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
			employee("ext-a", "a@corp.test"),
		)

		_, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails:  []string{"a@corp.test", "ghost@corp.test"},
			SupervisorEmail: strptr("sup@corp.test"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeTargetUserNotFound, apperrors.CodeOf(err))

		user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), "a@corp.test")
		require.NoError(t, lookupErr)
		assert.Nil(t, user.SupervisorID)
	})

	t.Run("persistence failure surfaces as supervisor error", func(t *testing.T) {
		fx := newReassignFixture(
			activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
			activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
			employee("ext-a", "a@corp.test"),
		)
		fx.repo.failBatch = errors.New("connection reset")

		_, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
			EmployeeEmails:  []string{"a@corp.test"},
			SupervisorEmail: strptr("sup@corp.test"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeSupervisorAssignFailed, apperrors.CodeOf(err))

		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, 500, domainErr.HTTPStatus)

		assert.Empty(t, fx.notifier.delivered, "no notification for an uncommitted batch")
		assert.Empty(t, fx.audit.entries, "no audit for an uncommitted batch")
	})
}

func TestReassignIdempotency(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
		employee("ext-a", "a@corp.test"),
		employee("ext-b", "b@corp.test"),
	)
	assignment := domain.SupervisorAssignment{
		EmployeeEmails:  []string{"a@corp.test", "b@corp.test"},
		SupervisorEmail: strptr("sup@corp.test"),
	}

	first, err := fx.svc.Reassign(context.Background(), "ext-admin", assignment)
	require.NoError(t, err)
	second, err := fx.svc.Reassign(context.Background(), "ext-admin", assignment)
	require.NoError(t, err)

	assert.Equal(t, first.AffectedCount, second.AffectedCount)

	supervisorID := first.Supervisor.ID
	for _, email := range assignment.EmployeeEmails {
		user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), email)
		require.NoError(t, lookupErr)
		require.NotNil(t, user.SupervisorID)
		assert.Equal(t, supervisorID, *user.SupervisorID)
	}
}

func TestReassignDeduplicatesTargets(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
		employee("ext-a", "a@corp.test"),
	)

	result, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
		EmployeeEmails:  []string{"a@corp.test", "A@corp.test", " a@corp.test "},
		SupervisorEmail: strptr("sup@corp.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AffectedCount)
	assert.Len(t, fx.notifier.delivered, 1)
}

func TestReassignNotificationIsolation(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
		employee("ext-a", "a@corp.test"),
		employee("ext-b", "b@corp.test"),
		employee("ext-c", "c@corp.test"),
	)
	fx.notifier.failFor = map[string]error{"b@corp.test": errors.New("mailbox unreachable")}

	result, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
		EmployeeEmails:  []string{"a@corp.test", "b@corp.test", "c@corp.test"},
		SupervisorEmail: strptr("sup@corp.test"),
	})
	require.NoError(t, err, "notification failures must not fail the call")
	assert.Equal(t, 3, result.AffectedCount)

	// the other two notifications were still attempted
	require.Len(t, fx.notifier.delivered, 2)
	assert.Equal(t, "a@corp.test", fx.notifier.delivered[0].RecipientEmail)
	assert.Equal(t, "c@corp.test", fx.notifier.delivered[1].RecipientEmail)
	assert.Len(t, fx.broadcaster.events, 1)

	// persistence unaffected
	for _, email := range []string{"a@corp.test", "b@corp.test", "c@corp.test"} {
		user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), email)
		require.NoError(t, lookupErr)
		assert.NotNil(t, user.SupervisorID)
	}

	// audit still covers every mutated user
	assert.Len(t, fx.audit.entries, 3)
}

func TestReassignAuditFailureDoesNotFailCall(t *testing.T) {
	fx := newReassignFixture(
		activeUser("ext-admin", "admin@corp.test", domain.RoleAdmin),
		activeUser("ext-sup", "sup@corp.test", domain.RoleSupervisor),
		employee("ext-a", "a@corp.test"),
	)
	fx.audit.err = errors.New("audit store down")

	result, err := fx.svc.Reassign(context.Background(), "ext-admin", domain.SupervisorAssignment{
		EmployeeEmails:  []string{"a@corp.test"},
		SupervisorEmail: strptr("sup@corp.test"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AffectedCount)

	user, lookupErr := fx.repo.FindActiveByEmail(context.Background(), "a@corp.test")
	require.NoError(t, lookupErr)
	assert.NotNil(t, user.SupervisorID)
}
