package realtime

import (
	"net/http"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/config"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// WSHandler upgrades HTTP requests into registry sessions and runs the
// read/write pumps for each connection.
type WSHandler struct {
	registry  *Registry
	cfg       config.RealtimeConfig
	jwtSecret string
	log       *logger.Logger
}

func NewWSHandler(registry *Registry, cfg config.RealtimeConfig, jwtSecret string, log *logger.Logger) *WSHandler {
	return &WSHandler{
		registry:  registry,
		cfg:       cfg,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// ServeWS handles websocket requests from the peer.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WS upgrade error: %v", err)
		return
	}

	session := NewSession(&wsTransport{conn: conn}, h.cfg.SendBuffer)
	h.registry.Register(session)

	go h.writePump(session, conn)
	go h.readPump(session, conn)

	if env, err := wire.NewEnvelope(wire.TypeConnection, wire.ConnectionPayload{
		SessionID:           session.ID,
		HeartbeatIntervalMs: h.cfg.HeartbeatInterval.Milliseconds(),
	}); err == nil {
		session.Send(env, h.cfg.SendTimeout)
	}
}

// readPump drives the per-session state machine from inbound frames. Any
// exit path removes the session from the registry, so abnormal termination
// never leaks an entry.
func (h *WSHandler) readPump(s *Session, conn *websocket.Conn) {
	defer h.registry.Unregister(s)

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	readWait := 2 * h.cfg.HeartbeatInterval

	for {
		conn.SetReadDeadline(time.Now().Add(readWait))

		var env wire.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Session %s read error: %v", s.ID, err)
			}
			return
		}

		s.Touch()
		h.dispatch(s, env)

		if s.State() == StateClosed {
			return
		}
	}
}

// dispatch handles one inbound frame. Unknown types are logged and dropped
// rather than raised, so a newer client never kills an older server.
func (h *WSHandler) dispatch(s *Session, env wire.Envelope) {
	switch env.Type {
	case wire.TypeAuth:
		h.handleAuth(s, env)

	case wire.TypeSubscribe:
		var p wire.SubscribePayload
		if err := env.Decode(&p); err != nil {
			h.sendError(s, err.Error())
			return
		}
		if err := s.Subscribe(p.Channel); err != nil {
			h.sendError(s, err.Error())
		}

	case wire.TypeUnsubscribe:
		var p wire.SubscribePayload
		if err := env.Decode(&p); err != nil {
			h.sendError(s, err.Error())
			return
		}
		if err := s.Unsubscribe(p.Channel); err != nil {
			h.sendError(s, err.Error())
		}

	case wire.TypePing:
		if pong, err := wire.NewEnvelope(wire.TypePong, nil); err == nil {
			s.Send(pong, h.cfg.SendTimeout)
		}

	default:
		h.log.Debug("Session %s sent unknown message type %q, dropping", s.ID, env.Type)
	}
}

// handleAuth runs the handshake. A failed auth sends one final error frame
// and then the session is closed.
func (h *WSHandler) handleAuth(s *Session, env wire.Envelope) {
	var p wire.AuthPayload
	if err := env.Decode(&p); err != nil {
		h.sendError(s, ErrAuth.Error())
		s.Close()
		return
	}

	if h.jwtSecret != "" {
		if err := verifyAuthToken(h.jwtSecret, p); err != nil {
			h.log.Warn("Session %s auth token rejected: %v", s.ID, err)
			h.sendError(s, ErrAuth.Error())
			s.Close()
			return
		}
	}

	if err := h.registry.Authenticate(s, p.TenantID, p.UserID); err != nil {
		h.sendError(s, err.Error())
		s.Close()
		return
	}

	if ok, err := wire.NewEnvelope(wire.TypeAuthSuccess, wire.AuthSuccessPayload{TenantID: s.TenantID()}); err == nil {
		s.Send(ok, h.cfg.SendTimeout)
	}
}

func (h *WSHandler) sendError(s *Session, message string) {
	env, err := wire.NewEnvelope(wire.TypeError, wire.ErrorPayload{Message: message})
	if err != nil {
		return
	}
	s.Send(env, h.cfg.SendTimeout)
}

// writePump is the sole writer on the connection. On teardown it flushes
// frames already queued (the final error frame included) before the close
// message.
func (h *WSHandler) writePump(s *Session, conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case env := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}

		case <-s.Done():
			for {
				select {
				case env := <-s.send:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteJSON(env); err != nil {
						return
					}
				default:
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}
