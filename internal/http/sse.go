package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// sseWriter escribe eventos "data: {...}" y envia headers solo al primer evento,
// de modo que los errores previos puedan responderse como JSON comun.
type sseWriter struct {
	c       *gin.Context
	started bool
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.c.Status(http.StatusOK)
	s.started = true
}

func (s *sseWriter) send(payload any) error {
	if err := s.c.Request.Context().Err(); err != nil {
		return err
	}
	s.start()
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.c.Writer, "data: %s\n\n", encoded); err != nil {
		return fmt.Errorf("write sse payload: %w", err)
	}
	s.c.Writer.Flush()
	return nil
}

// wantsStream elige el canal SSE por Accept o ?stream=true.
func wantsStream(c *gin.Context) bool {
	if strings.EqualFold(c.Query("stream"), "true") || c.Query("stream") == "1" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}
