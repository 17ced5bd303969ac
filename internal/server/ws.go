package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/app"
	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/feedback"
	"github.com/ayusman/gymbro/internal/pose"
)

const (
	maxMessageBytes = 1 << 20
	writeTimeout    = 5 * time.Second
)

// Message types exchanged over /api/ws.
const (
	msgSession  = "session"
	msgFrame    = "frame"
	msgSelect   = "select"
	msgReset    = "reset"
	msgResult   = "result"
	msgFeedback = "feedback"
	msgError    = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type clientMessage struct {
	Type     string `json:"type"`
	Exercise string `json:"exercise"`
}

type sessionMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Exercise  exercise.Kind   `json:"exercise"`
	Supported []exercise.Kind `json:"supported"`
}

type resultMessage struct {
	Type string `json:"type"`
	exercise.Result
}

type feedbackMessage struct {
	Type  string         `json:"type"`
	Event feedback.Event `json:"event"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// SessionHandler runs one private analysis session per WebSocket connection.
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler over a.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// conn serializes writes: replies and feedback events come from different goroutines.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("websocket upgrade error: %v", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxMessageBytes)

	c := &conn{ws: ws}
	sink := feedback.SinkFunc(func(_ context.Context, ev feedback.Event) error {
		return c.send(feedbackMessage{Type: msgFeedback, Event: ev})
	})

	session, err := h.app.NewSession(sink)
	if err != nil {
		log.Errorf("failed to open session: %v", err)
		_ = c.send(errorMessage{Type: msgError, Error: "failed to open session"})
		return
	}
	defer session.Close()

	logger := log.WithField("session", session.ID())
	logger.Info("websocket session started")

	if err := c.send(sessionMessage{
		Type:      msgSession,
		ID:        session.ID(),
		Exercise:  session.Active(),
		Supported: h.app.Supported(),
	}); err != nil {
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("websocket read error: %v", err)
			}
			break
		}

		if err := c.send(handleMessage(session, data)); err != nil {
			logger.Warnf("websocket write error: %v", err)
			break
		}
	}

	logger.Info("websocket session ended")
}

// handleMessage applies one client message to session and returns the reply.
func handleMessage(session *app.Session, data []byte) any {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		frame, err := pose.ParseFrame(data)
		if err != nil {
			return errorMessage{Type: msgError, Error: "invalid frame"}
		}
		return resultMessage{Type: msgResult, Result: session.Process(frame)}
	}

	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorMessage{Type: msgError, Error: "invalid message"}
	}

	switch msg.Type {
	case msgFrame:
		frame, err := pose.ParseFrame(data)
		if err != nil {
			return errorMessage{Type: msgError, Error: "invalid frame"}
		}
		return resultMessage{Type: msgResult, Result: session.Process(frame)}
	case msgSelect:
		kind, err := exercise.ParseKind(msg.Exercise)
		if err != nil {
			return errorMessage{Type: msgError, Error: err.Error()}
		}
		r, err := session.Select(kind)
		if err != nil {
			return errorMessage{Type: msgError, Error: err.Error()}
		}
		return resultMessage{Type: msgResult, Result: r}
	case msgReset:
		return resultMessage{Type: msgResult, Result: session.Reset()}
	default:
		return errorMessage{Type: msgError, Error: "unknown message type " + msg.Type}
	}
}
