package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"candle-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Server-Sent Events transport
// -----------------------------------------------------------------------------

const defaultKeepalive = 15 * time.Second

// sseSink frames events as "event: <name>\ndata: <json>\n\n".
type sseSink struct {
	w       gin.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(ev models.MStreamEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// comment writes an SSE comment line, ignored by clients, to keep proxies from
// closing an idle connection.
func (s *sseSink) comment() error {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// -----------------------------------------------------------------------------

func (s *StreamServer) handleRealtime(c *gin.Context) {
	params, err := s.parseStreamParams(c)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	id := uuid.NewString()
	sink := &sseSink{w: c.Writer, flusher: flusher}

	if err := greet(sink, id, params.Unknown); err != nil {
		return
	}

	p, err := s.openPipeline(ctx, id, params)
	if err != nil {
		_ = sink.Send(ErrorEvent("", err))
		return
	}
	defer s.closePipeline(p)

	interval := time.Duration(s.Config.Stream.KeepaliveSeconds) * time.Second
	if interval <= 0 {
		interval = defaultKeepalive
	}
	keepalive := time.NewTicker(interval)
	defer keepalive.Stop()

	s.pump(ctx, p, sink, keepalive.C, sink.comment)
}
