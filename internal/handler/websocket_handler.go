package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/broker"
	"github.com/Baaaki/gameshelf/internal/middleware"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxSessionLifetime = 15 * time.Minute
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4 * 1024 // clients only send control frames
	sendBuffer         = 32
)

type WSMessageType string

const (
	WSMessageLoanEvent      WSMessageType = "loan_event"
	WSMessageSessionExpired WSMessageType = "session_expired"
)

type WSMessage struct {
	Type  WSMessageType     `json:"type"`
	Event *broker.LoanEvent `json:"event,omitempty"`
	Error string            `json:"error,omitempty"`
}

// LoanFeedHandler streams loan events to connected users. Each user sees the
// loans they lend or borrow; admins see every loan.
type LoanFeedHandler struct {
	events  broker.EventBroker
	tokens  middleware.TokenAuthenticator
	clients map[*feedClient]struct{}
	mu      sync.RWMutex

	upgrader websocket.Upgrader

	sessionLifetime time.Duration
}

type feedClient struct {
	conn        *websocket.Conn
	principal   *auth.Principal
	send        chan WSMessage
	connectedAt time.Time
}

func NewLoanFeedHandler(events broker.EventBroker, tokens middleware.TokenAuthenticator, allowedOrigins []string) *LoanFeedHandler {
	h := &LoanFeedHandler{
		events:          events,
		tokens:          tokens,
		clients:         make(map[*feedClient]struct{}),
		sessionLifetime: maxSessionLifetime,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// SetSessionLifetime overrides the per-connection lifetime cap.
func (h *LoanFeedHandler) SetSessionLifetime(d time.Duration) {
	h.sessionLifetime = d
}

// Start subscribes to the broker and fans events out in the background
// until ctx is done.
func (h *LoanFeedHandler) Start(ctx context.Context) error {
	events, err := h.events.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for event := range events {
			h.dispatch(event)
		}
		logger.Log.Info("Loan feed stopped")
	}()

	logger.Log.Info("Loan feed listening for events")
	return nil
}

func (h *LoanFeedHandler) dispatch(event broker.LoanEvent) {
	msg := WSMessage{Type: WSMessageLoanEvent, Event: &event}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.principal.IsAdmin() && !event.Involves(client.principal.UserID) {
			continue
		}
		select {
		case client.send <- msg:
		default:
			logger.Log.Warn("Dropping loan event for slow client",
				zap.Uint("user_id", client.principal.UserID),
				zap.Uint("loan_id", event.LoanID),
			)
		}
	}
}

// ClientCount returns the number of open feed connections.
func (h *LoanFeedHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request. Browsers cannot set headers on websocket
// requests, so an access_token query parameter is accepted as well.
// GET /api/ws/loans
func (h *LoanFeedHandler) Serve(c *gin.Context) {
	p := auth.FromContext(c.Request.Context())
	if p == nil {
		if raw := strings.TrimSpace(c.Query("access_token")); raw != "" {
			resolved, err := h.tokens.Authenticate(c.Request.Context(), raw)
			if err != nil {
				respondError(c, err)
				return
			}
			p = resolved
		}
	}
	if p == nil {
		respondError(c, service.ErrUnauthenticated)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("Websocket upgrade failed", zap.Uint("user_id", p.UserID), zap.Error(err))
		return
	}

	client := &feedClient{
		conn:        conn,
		principal:   p,
		send:        make(chan WSMessage, sendBuffer),
		connectedAt: time.Now(),
	}
	h.addClient(client)

	done := make(chan struct{})
	go h.writePump(client, done)

	h.readPump(client)

	h.removeClient(client)
	close(done)
}

// readPump discards client frames and keeps the read deadline fresh on pong.
func (h *LoanFeedHandler) readPump(client *feedClient) {
	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Websocket read error", zap.Uint("user_id", client.principal.UserID), zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (h *LoanFeedHandler) writePump(client *feedClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sessionTimer := time.NewTimer(h.sessionLifetime)
	defer sessionTimer.Stop()

	defer client.conn.Close()

	for {
		select {
		case msg := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				logger.Log.Debug("Websocket write failed", zap.Uint("user_id", client.principal.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sessionTimer.C:
			h.closeGracefully(client, "session expired")
			return

		case <-done:
			return
		}
	}
}

func (h *LoanFeedHandler) closeGracefully(client *feedClient, reason string) {
	_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteJSON(WSMessage{Type: WSMessageSessionExpired, Error: reason}); err != nil {
		logger.Log.Debug("Failed to send session_expired", zap.Error(err))
	}

	_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
	); err != nil {
		logger.Log.Debug("Failed to send close frame", zap.Error(err))
	}

	logger.Log.Info("Closed loan feed session",
		zap.Uint("user_id", client.principal.UserID),
		zap.String("reason", reason),
	)
}

func (h *LoanFeedHandler) addClient(client *feedClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	logger.Log.Info("Loan feed client connected",
		zap.Uint("user_id", client.principal.UserID),
		zap.Int("total", total),
	)
}

func (h *LoanFeedHandler) removeClient(client *feedClient) {
	h.mu.Lock()
	delete(h.clients, client)
	remaining := len(h.clients)
	h.mu.Unlock()

	logger.Log.Info("Loan feed client disconnected",
		zap.Uint("user_id", client.principal.UserID),
		zap.Duration("session", time.Since(client.connectedAt).Round(time.Second)),
		zap.Int("remaining", remaining),
	)
}
