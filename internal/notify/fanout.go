package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/observability"
)

// Fanout pushes workforce change notifications to users and sessions.
// Delivery is best effort: a failed delivery is logged, counted and skipped,
// and never surfaces to the caller. Committed state changes must not be
// undone by messaging trouble.
type Fanout struct {
	notifier    Notifier
	broadcaster PresenceBroadcaster
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// FanoutDependencies wires the fanout collaborators.
type FanoutDependencies struct {
	Notifier    Notifier
	Broadcaster PresenceBroadcaster
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewFanout creates the fanout.
func NewFanout(deps FanoutDependencies) *Fanout {
	return &Fanout{
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// NotifySupervisorChange sends one direct notification per reassigned user
// plus a single presence broadcast for the whole batch. A nil supervisor
// announces the targets as unassigned.
func (f *Fanout) NotifySupervisorChange(ctx context.Context, targets []domain.User, supervisor *domain.User) {
	supervisorName := "unassigned"
	data := map[string]any{}
	if supervisor != nil {
		supervisorName = supervisor.FullName()
		data["supervisor_id"] = supervisor.ID
	}
	data["supervisor_name"] = supervisorName

	for _, target := range targets {
		f.deliver(ctx, Notification{
			ID:             uuid.NewString(),
			Kind:           KindSupervisorChanged,
			RecipientID:    target.ID,
			RecipientEmail: target.Email,
			Title:          "Supervisor updated",
			Body:           fmt.Sprintf("Your supervisor is now %s.", supervisorName),
			Data:           data,
			CreatedAt:      time.Now().UTC(),
		})
	}

	f.broadcast(ctx, PresenceEvent{
		ID:   uuid.NewString(),
		Kind: KindPresenceSync,
		Data: map[string]any{
			"supervisor_name": supervisorName,
			"affected_count":  len(targets),
		},
		CreatedAt: time.Now().UTC(),
	})
}

// NotifyRoleChange informs a user their role changed.
func (f *Fanout) NotifyRoleChange(ctx context.Context, user *domain.User, oldRole, newRole domain.Role) {
	f.deliver(ctx, Notification{
		ID:             uuid.NewString(),
		Kind:           KindRoleChanged,
		RecipientID:    user.ID,
		RecipientEmail: user.Email,
		Title:          "Role updated",
		Body:           fmt.Sprintf("Your role changed from %s to %s.", oldRole, newRole),
		Data: map[string]any{
			"old_role": string(oldRole),
			"new_role": string(newRole),
		},
		CreatedAt: time.Now().UTC(),
	})
}

// NotifyDeactivation informs a user their account was retired.
func (f *Fanout) NotifyDeactivation(ctx context.Context, user *domain.User) {
	f.deliver(ctx, Notification{
		ID:             uuid.NewString(),
		Kind:           KindAccountDeactivated,
		RecipientID:    user.ID,
		RecipientEmail: user.Email,
		Title:          "Account deactivated",
		Body:           "Your account has been deactivated.",
		CreatedAt:      time.Now().UTC(),
	})
}

func (f *Fanout) deliver(ctx context.Context, notification Notification) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.NotifyUser(ctx, notification); err != nil {
		f.logger.Warn("user notification failed",
			zap.String("recipient_id", notification.RecipientID),
			zap.String("kind", string(notification.Kind)),
			zap.Error(err))
		f.metrics.RecordNotifyFailure("user")
	}
}

func (f *Fanout) broadcast(ctx context.Context, event PresenceEvent) {
	if f.broadcaster == nil {
		return
	}
	if err := f.broadcaster.Broadcast(ctx, event); err != nil {
		f.logger.Warn("presence broadcast failed",
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
		f.metrics.RecordNotifyFailure("presence")
	}
}
