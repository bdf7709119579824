package httpapi

import (
	"context"
	"net/http"
	"time"

	ws "github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Events upgrades the request to a websocket and streams every service
// event as a JSON message until either side goes away.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: the client sends nothing useful, but reading is how a
	// close frame is noticed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := h.svc.Subscribe(ctx)
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
