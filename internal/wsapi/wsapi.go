// Package wsapi streams investigation progress over WebSocket connections
// (spec §6.4), subscribing each connection to the progress fan-out bus
// (internal/fanout, component C8) for one investigation id and relaying
// every event as JSON until the client disconnects or the run finishes.
package wsapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/fanout"
	"github.com/brightframe/investigator/internal/telemetry"
)

// writeWait bounds how long a single WebSocket write may block before the
// connection is considered dead.
const writeWait = 10 * time.Second

// pingInterval keeps idle connections (long investigations with sparse
// progress) from being reaped by intermediate proxies.
const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wireEvent is the JSON shape sent over the wire. It mirrors
// agentloop.ProgressEvent but flattens Err to a string since error values
// don't marshal meaningfully on their own.
type wireEvent struct {
	Kind            agentloop.EventKind `json:"kind"`
	InvestigationID string              `json:"investigation_id"`
	Timestamp       time.Time           `json:"timestamp"`
	Goal            string              `json:"goal,omitempty"`
	TurnNumber      int                 `json:"turn_number,omitempty"`
	Action          string              `json:"action,omitempty"`
	Message         string              `json:"message,omitempty"`
	Error           string              `json:"error,omitempty"`
	Data            any                 `json:"data,omitempty"`
}

func toWireEvent(e agentloop.ProgressEvent) wireEvent {
	w := wireEvent{
		Kind:            e.Kind,
		InvestigationID: e.InvestigationID,
		Timestamp:       e.Timestamp,
		Goal:            e.Goal,
		TurnNumber:      e.TurnNumber,
		Action:          e.Action,
		Message:         e.Message,
	}
	if e.Err != nil {
		w.Error = e.Err.Error()
	}
	switch {
	case e.Finding != nil:
		w.Data = e.Finding
	case e.Lead != nil:
		w.Data = e.Lead
	case e.Summary != nil:
		w.Data = e.Summary
	case e.Report != "":
		w.Data = e.Report
	}
	return w
}

// Handler upgrades HTTP requests to WebSocket connections and relays
// fan-out events for a single investigation.
type Handler struct {
	bus    *fanout.Bus
	logger telemetry.Logger
}

// NewHandler constructs a Handler backed by bus. A nil logger defaults to a
// no-op logger.
func NewHandler(bus *fanout.Bus, logger telemetry.Logger) *Handler {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Handler{bus: bus, logger: logger}
}

// Register mounts the streaming route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/ws/investigations/:id", h.serveInvestigation)
}

// serveInvestigation upgrades the connection and streams every progress
// event for the path's investigation id until a terminal event has been
// written, a write fails, or the client goes away.
func (h *Handler) serveInvestigation(c *gin.Context) {
	id := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "wsapi: upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	events, unsubscribe := h.bus.Subscribe(id)
	defer unsubscribe()

	done := make(chan struct{})
	go h.drainIncoming(conn, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toWireEvent(e)); err != nil {
				return
			}
			if e.Kind.Terminal() {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// drainIncoming reads and discards client frames (this stream is
// server-to-client only) purely to notice disconnects and keepalive pings
// promptly; it closes done once the read loop ends.
func (h *Handler) drainIncoming(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
