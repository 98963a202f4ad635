package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rowanvale/leadwatch/internal/common"
	"github.com/rowanvale/leadwatch/internal/jobview"
	"github.com/ternarybob/arbor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const writeTimeout = 10 * time.Second

// WSMessage is the envelope for all messages pushed to the dashboard.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler streams derived job snapshots to dashboard clients. Each
// connection subscribes to a single job view; polling happens in the view,
// so connections only relay snapshots, never fetch.
type WebSocketHandler struct {
	manager *jobview.Manager
	logger  arbor.ILogger
}

func NewWebSocketHandler(manager *jobview.Manager, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{manager: manager, logger: logger}
}

// HandleWebSocket upgrades the connection and relays snapshots for the job
// named by the job_id query parameter until the client disconnects or the
// view is torn down.
// GET /ws?job_id={id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.Atoi(r.URL.Query().Get("job_id"))
	if err != nil || jobID <= 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid job_id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	view := h.manager.GetOrCreate(jobID)
	subID, snapshots := view.Subscribe()

	h.logger.Info().
		Int("job_id", jobID).
		Str("subscriber", subID).
		Msg("WebSocket client connected")

	done := make(chan struct{})

	// Read pump: we accept no inbound messages, but reading is what
	// detects a client close.
	common.SafeGo(h.logger, "websocket-read-"+subID, func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	defer func() {
		view.Unsubscribe(subID)
		conn.Close()
		h.logger.Info().
			Int("job_id", jobID).
			Str("subscriber", subID).
			Msg("WebSocket client disconnected")
	}()

	for {
		select {
		case <-done:
			return
		case snap, ok := <-snapshots:
			if !ok {
				// View stopped (terminal job reaped or explicit close).
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view closed"),
					time.Now().Add(writeTimeout))
				return
			}
			if err := h.writeSnapshot(conn, snap); err != nil {
				h.logger.Warn().Err(err).Int("job_id", jobID).Msg("WebSocket write failed")
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeSnapshot(conn *websocket.Conn, snap *jobview.Snapshot) error {
	data, err := json.Marshal(WSMessage{Type: "job_view", Payload: snap})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
