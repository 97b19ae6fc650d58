package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"deckhand/pkg/logger"
)

// keepaliveInterval spaces SSE comment lines so idle connections survive
// intermediary timeouts.
const keepaliveInterval = 30 * time.Second

// streamEvents serves one subscriber's queue as a server-sent event stream.
// The subscription lives exactly as long as the request: disconnect detaches
// the queue, so an abandoned viewer never accumulates backlog.
func (h *Handler) streamEvents(c echo.Context) error {
	sub := h.stream.Subscribe()
	defer h.stream.Unsubscribe(sub)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("failed to encode stream message", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
