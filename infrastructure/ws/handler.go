package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/auth"
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
)

// Config tunes the socket boundary. Zero values fall back to the defaults
// below so a partially filled struct stays usable in tests.
type Config struct {
	AuthTimeout    time.Duration
	MaxMessageSize int64
	SendBuffer     int
	AllowedOrigins []string
}

const (
	defaultAuthTimeout    = 5 * time.Second
	defaultMaxMessageSize = 16 << 10
	defaultSendBuffer     = 64
)

func (c Config) withDefaults() Config {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = defaultAuthTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	return c
}

// Handler upgrades HTTP requests to sessions. Every connection must complete
// an authenticated handshake within the configured window before any other
// event is accepted.
type Handler struct {
	log      *slog.Logger
	service  services.IChatService
	verifier auth.Verifier
	monitor  *observability.Monitor
	config   Config
	upgrader websocket.Upgrader
}

func NewHandler(
	log *slog.Logger,
	service services.IChatService,
	verifier auth.Verifier,
	monitor *observability.Monitor,
	config Config,
) *Handler {
	config = config.withDefaults()
	h := &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		monitor:  monitor,
		config:   config,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts same-origin and configured origins. An empty allow list
// only passes requests without an Origin header, i.e. non-browser clients.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn.SetReadLimit(h.config.MaxMessageSize)

	principal, err := h.handshake(conn)
	if err != nil {
		h.monitor.IncrOperationsRejected()
		h.log.Warn("handshake rejected", "remote", r.RemoteAddr, "error", err)
		h.rejectAndClose(conn, err)
		return
	}

	connID := domain.ConnectionID(uuid.NewString())
	session := newSession(conn, h.log, h.service, h.monitor, connID, principal, h.config.SendBuffer)

	h.service.Connect(domain.PresenceEntry{
		PrincipalID:  principal.ID,
		DisplayName:  principal.DisplayName,
		ConnectionID: connID,
	}, session)

	session.run(r.Context())
}

// handshake reads exactly one frame under the auth deadline. Anything other
// than a valid handshake event with a verifiable token is fatal.
func (h *Handler) handshake(conn *websocket.Conn) (domain.Principal, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.config.AuthTimeout)); err != nil {
		return domain.Principal{}, err
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || isTimeout(err) {
			return domain.Principal{}, apperrors.ErrAuthTimeout
		}
		return domain.Principal{}, apperrors.ErrUnauthenticated
	}

	var evt ClientEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return domain.Principal{}, apperrors.ErrUnauthenticated
	}
	if evt.Type != EventHandshake || evt.Validate() != nil {
		return domain.Principal{}, apperrors.ErrUnauthenticated
	}

	principal, err := h.verifier.Verify(evt.Token)
	if err != nil {
		return domain.Principal{}, err
	}

	// Back to the steady-state deadline; readPump owns it from here.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	return principal, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// rejectAndClose ships one errorNotice synchronously then drops the socket.
// No session exists yet, so there is no send queue to go through.
func (h *Handler) rejectAndClose(conn *websocket.Conn, cause error) {
	payload, err := json.Marshal(ServerEvent{
		Type:  EventErrorNotice,
		Code:  apperrors.Code(cause),
		Error: cause.Error(),
	})
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	_ = conn.Close()
}
