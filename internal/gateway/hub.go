package gateway

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/guardline/workforce-service/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 16
)

// Hub tracks connected websocket sessions by user id and pushes payloads to
// them. A user may hold several sessions (multiple tabs, devices); a slow
// session gets dropped rather than block the rest.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
	logger   *zap.Logger
	metrics  *observability.Metrics
}

type session struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		sessions: make(map[string]map[*session]struct{}),
		logger:   logger,
		metrics:  metrics,
	}
}

// Serve owns a websocket connection until it closes. Inbound frames are
// discarded; the gateway is push-only.
func (h *Hub) Serve(userID string, conn *websocket.Conn) {
	sess := &session{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	h.register(sess)
	defer h.unregister(sess)

	go sess.writePump()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("session closed unexpectedly",
					zap.String("user_id", userID),
					zap.Error(err))
			}
			return
		}
	}
}

// SendToUser queues a payload for every session of one user.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sess := range h.sessions[userID] {
		sess.enqueue(payload, h.logger)
	}
}

// BroadcastAll queues a payload for every connected session.
func (h *Hub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sessions := range h.sessions {
		for sess := range sessions {
			sess.enqueue(payload, h.logger)
		}
	}
}

// SessionCount reports the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, sessions := range h.sessions {
		count += len(sessions)
	}
	return count
}

// Close terminates every session, typically during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sessions := range h.sessions {
		for sess := range sessions {
			sess.close()
		}
	}
	h.sessions = make(map[string]map[*session]struct{})
}

func (h *Hub) register(sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sess.userID] == nil {
		h.sessions[sess.userID] = make(map[*session]struct{})
	}
	h.sessions[sess.userID][sess] = struct{}{}
	h.metrics.GatewayConnected()
	h.logger.Debug("session registered", zap.String("user_id", sess.userID))
}

func (h *Hub) unregister(sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions, ok := h.sessions[sess.userID]; ok {
		if _, present := sessions[sess]; present {
			delete(sessions, sess)
			if len(sessions) == 0 {
				delete(h.sessions, sess.userID)
			}
			h.metrics.GatewayDisconnected()
		}
	}
	sess.close()
}

func (s *session) enqueue(payload []byte, logger *zap.Logger) {
	select {
	case s.send <- payload:
	default:
		logger.Warn("dropping payload for slow session", zap.String("user_id", s.userID))
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.send) })
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
