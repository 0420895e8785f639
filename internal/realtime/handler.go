package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/workroomapp/workroom-server/internal/auth"
	"github.com/workroomapp/workroom-server/internal/store"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long we tolerate silence before dropping a peer.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames.
	maxMessageSize = 64 * 1024
)

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*auth.AccessClaims, error)
}

// Handler upgrades workroom socket requests and pumps frames between the
// connection and the coordinator.
type Handler struct {
	upgrader    websocket.Upgrader
	coordinator *Coordinator
	store       store.WorkroomStore
	verifier    TokenVerifier
	logger      *slog.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(coordinator *Coordinator, st store.WorkroomStore, verifier TokenVerifier, logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from the app origin; tokens gate access.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		coordinator: coordinator,
		store:       st,
		verifier:    verifier,
		logger:      logger,
	}
}

// ServeWorkroom handles one websocket connection to a workroom. The
// access token rides in the `token` query parameter because browsers
// can't set headers on websocket dials. Admission failures are reported
// as an access_denied event before the socket closes, so clients can
// show the reason.
func (h *Handler) ServeWorkroom(w http.ResponseWriter, r *http.Request, workroomID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		}
		return
	}

	ctx := r.Context()

	claims, err := h.verifier.VerifyAccessToken(ctx, r.URL.Query().Get("token"))
	if err != nil {
		h.deny(conn, workroomID, "authentication required", "")
		return
	}
	userID := claims.UserID

	member, err := h.store.IsMember(ctx, userID, workroomID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("membership check failed", slog.Any("error", err))
		}
		_ = conn.Close()
		return
	}
	if !member {
		h.deny(conn, workroomID,
			"You do not have access to this workroom",
			"Please request access from the workroom owner")
		return
	}

	client, err := h.coordinator.Join(ctx, workroomID, userID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("join failed",
				slog.String("workroom_id", workroomID),
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
		_ = conn.Close()
		return
	}

	go h.writePump(conn, client)
	h.readPump(conn, client, workroomID, userID)
}

// readPump reads frames until the peer goes away, then runs the full
// disconnect cleanup. Cleanup uses a fresh context because the request
// context is already canceled once the client is gone.
func (h *Handler) readPump(conn *websocket.Conn, client *Client, workroomID, userID string) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.coordinator.Leave(ctx, workroomID, client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-client.Done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.logger != nil {
				h.logger.Debug("websocket closed unexpectedly",
					slog.String("user_id", userID),
					slog.Any("error", err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		h.coordinator.HandleMessage(ctx, workroomID, userID, raw)
		cancel()
	}
}

// writePump drains the client's send channel onto the socket and keeps
// the connection alive with pings.
func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-client.Done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deny reports a failed admission on the already-upgraded socket.
func (h *Handler) deny(conn *websocket.Conn, workroomID, message, suggestion string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(AccessDeniedEvent{
		Type:       EventAccessDenied,
		Message:    message,
		WorkroomID: workroomID,
		Suggestion: suggestion,
	})
	_ = conn.Close()
}
