package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/config"
	"github.com/guardline/workforce-service/internal/notify"
	"github.com/guardline/workforce-service/internal/observability"
	"github.com/guardline/workforce-service/internal/persistence"
)

// Gateway is the delivery surface the worker pumps into.
type Gateway interface {
	SendToUser(userID string, payload []byte)
	BroadcastAll(payload []byte)
}

// PresenceWorker pumps notification and presence messages from Redis into the
// websocket hub. One instance runs per process; Redis fans the same payload
// out to every instance so each delivers to its own connected sessions.
type PresenceWorker struct {
	hub     Gateway
	cfg     config.NotifyConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	cancel  context.CancelFunc
	done    chan struct{}
}

// StartPresenceWorker subscribes to the notify channels and starts the pump.
func StartPresenceWorker(ctx context.Context, rdb *persistence.Redis, cfg config.NotifyConfig, hub Gateway, logger *zap.Logger, metrics *observability.Metrics) (*PresenceWorker, error) {
	workerCtx, cancel := context.WithCancel(ctx)

	sub, err := rdb.Subscribe(workerCtx, cfg.UserChannel, cfg.PresenceChannel)
	if err != nil {
		cancel()
		return nil, err
	}

	w := &PresenceWorker{
		hub:     hub,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		defer func() { _ = sub.Close() }()

		messages := sub.Channel()
		for {
			select {
			case <-workerCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				w.dispatch(msg.Channel, []byte(msg.Payload))
			}
		}
	}()

	logger.Info("presence worker started",
		zap.String("user_channel", cfg.UserChannel),
		zap.String("presence_channel", cfg.PresenceChannel))
	return w, nil
}

// Stop cancels the subscription and waits for the pump to exit.
func (w *PresenceWorker) Stop() {
	if w == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *PresenceWorker) dispatch(channel string, payload []byte) {
	switch channel {
	case w.cfg.UserChannel:
		var notification notify.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			w.logger.Warn("discarding malformed notification", zap.Error(err))
			w.metrics.RecordNotifyFailure("gateway_decode")
			return
		}
		if notification.RecipientID == "" {
			w.logger.Warn("discarding notification without recipient",
				zap.String("notification_id", notification.ID))
			return
		}
		w.hub.SendToUser(notification.RecipientID, payload)
	case w.cfg.PresenceChannel:
		var event notify.PresenceEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			w.logger.Warn("discarding malformed presence event", zap.Error(err))
			w.metrics.RecordNotifyFailure("gateway_decode")
			return
		}
		w.hub.BroadcastAll(payload)
	default:
		w.logger.Debug("ignoring message on unexpected channel", zap.String("channel", channel))
	}
}
