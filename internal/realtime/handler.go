package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/example/medilink/internal/application"
	transport "github.com/example/medilink/internal/http"
	"github.com/example/medilink/internal/logging"
)

const (
	// joinTimeout bounds how long a connection may sit idle before sending
	// its join message.
	joinTimeout = 30 * time.Second
	// writeTimeout bounds a single alert push over the wire.
	writeTimeout = 5 * time.Second
)

const (
	eventJoinProviderRoom = "joinProviderRoom"
	eventJoined           = "joined"
	eventNewAlert         = "newAlert"
	eventError            = "error"
)

type clientMessage struct {
	Event      string `json:"event"`
	ProviderID string `json:"provider_id"`
}

type alertView struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type serverMessage struct {
	Event      string     `json:"event"`
	ProviderID string     `json:"provider_id,omitempty"`
	Alert      *alertView `json:"alert,omitempty"`
	ErrorCode  string     `json:"error_code,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// Handler upgrades authenticated requests to websocket connections and
// bridges registry pushes onto the wire. The session middleware must run
// before it; the handler re-checks room membership itself.
type Handler struct {
	registry *Registry
	logger   *slog.Logger
}

// NewHandler constructs a websocket handler backed by the given registry.
func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := transport.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	logger := h.logger
	if ctxLogger := logging.FromContext(r.Context()); ctxLogger != nil {
		logger = ctxLogger
	}
	logger = logger.With("principal_id", principal.IdentityID)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	joinCtx, cancelJoin := context.WithTimeout(ctx, joinTimeout)
	var join clientMessage
	err = wsjson.Read(joinCtx, conn, &join)
	cancelJoin()
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "join message required")
		return
	}

	if join.Event != eventJoinProviderRoom {
		writeMessage(ctx, conn, serverMessage{Event: eventError, ErrorCode: "bad_request", Message: "unsupported event"})
		conn.Close(websocket.StatusPolicyViolation, "unsupported event")
		return
	}

	// A provider may only join its own room; everybody else is rejected
	// without revealing whether the room exists.
	if !principal.IsProvider() || join.ProviderID != principal.IdentityID {
		logger.WarnContext(ctx, "room join rejected", "requested_provider_id", join.ProviderID, "error_kind", application.ErrorKind(application.ErrRoomAccessDenied))
		writeMessage(ctx, conn, serverMessage{Event: eventError, ErrorCode: "room_access_denied", Message: "you may only join your own room"})
		conn.Close(websocket.StatusPolicyViolation, "room access denied")
		return
	}

	binding := h.registry.Join(principal.IdentityID)
	defer h.registry.Leave(binding)

	if err := writeMessage(ctx, conn, serverMessage{Event: eventJoined, ProviderID: principal.IdentityID}); err != nil {
		conn.Close(websocket.StatusNormalClosure, "write failed")
		return
	}
	logger.InfoContext(ctx, "provider joined room")

	// Drain the connection so pings and the client close handshake are
	// processed; any read error ends the session.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case <-readErr:
			logger.InfoContext(ctx, "provider connection closed")
			return
		case alert := <-binding.Alerts():
			message := serverMessage{Event: eventNewAlert, Alert: &alertView{
				ID:        alert.ID,
				PatientID: alert.PatientID,
				Message:   alert.Message,
				CreatedAt: alert.CreatedAt,
			}}
			if err := writeMessage(ctx, conn, message); err != nil {
				logger.WarnContext(ctx, "alert push failed", "alert_id", alert.ID, "error", err)
				conn.Close(websocket.StatusNormalClosure, "write failed")
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, message serverMessage) error {
	writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
	defer cancelWrite()
	return wsjson.Write(writeCtx, conn, message)
}
