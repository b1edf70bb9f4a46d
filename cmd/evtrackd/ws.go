package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"evtrack-backend/services/automation"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
)

// progressHub holds at most one live listener socket. A new connection
// replaces the old one (last writer wins); pushes with no listener are
// dropped with a log line. Workflows themselves report through
// per-invocation callbacks, the hub is only the outward adapter.
type progressHub struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newProgressHub() *progressHub {
	return &progressHub{}
}

func (h *progressHub) Handle(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "err", err)
		return
	}

	h.mu.Lock()
	if h.conn != nil {
		h.conn.Close(websocket.StatusPolicyViolation, "replaced by a newer listener")
	}
	h.conn = conn
	h.mu.Unlock()

	slog.Info("progress listener attached", "remote", c.ClientIP())

	// the client sends nothing meaningful; the read loop only notices
	// disconnects
	for {
		if _, _, err := conn.Read(c.Request.Context()); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *progressHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	h.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
}

// Report pushes one progress step to the listener, if any.
func (h *progressHub) Report(p automation.Progress) {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	if conn == nil {
		slog.Debug("progress with no listener", "percent", p.Percent, "status", p.Status)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":    "progress",
		"percent": p.Percent,
		"status":  p.Status,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Warn("progress push failed, dropping listener", "err", err)
		h.drop(conn)
	}
}
