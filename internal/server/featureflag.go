package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	flagdomain "github.com/seftec/platform/internal/featureflag/domain"
)

type evaluateFlagResponse struct {
	Name      string            `json:"name"`
	IsEnabled bool              `json:"is_enabled"`
	Reason    flagdomain.Reason `json:"reason"`
}

func (s *Server) EvaluateFlag(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	resolution := s.flagSvc.Evaluate(c.Request.Context(), name, requestUserID(c))

	c.JSON(http.StatusOK, evaluateFlagResponse{
		Name:      name,
		IsEnabled: resolution.Enabled,
		Reason:    resolution.Reason,
	})
}

type evaluateFlagsRequest struct {
	Flags []string `json:"flags"`
}

type evaluateFlagsResponse struct {
	Flags map[string]bool `json:"flags"`
}

// EvaluateFlags resolves a batch in one round trip. A batch-fetch failure
// returns every requested flag as false together with a 503 so callers can
// distinguish degraded responses from real flag state.
func (s *Server) EvaluateFlags(c *gin.Context) {
	var req evaluateFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Flags) == 0 {
		AbortWithError(c, newValidationError("flags", "invalid_flags", "at least one flag name is required"))
		return
	}

	flags, err := s.flagSvc.EvaluateMany(c.Request.Context(), req.Flags, requestUserID(c))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"flags": flags,
			"error": gin.H{
				"type":    "flag_lookup_failed",
				"message": "flag lookup failed; all flags defaulted to disabled",
			},
		})
		return
	}

	c.JSON(http.StatusOK, evaluateFlagsResponse{Flags: flags})
}

func (s *Server) ListFlags(c *gin.Context) {
	flags, err := s.flagSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

type updateFlagRequest struct {
	Enabled        bool `json:"enabled"`
	RolloutPercent *int `json:"rollout_percent,omitempty"`
}

func (s *Server) UpdateFlag(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req updateFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	flag, err := s.flagSvc.Update(c.Request.Context(), flagdomain.UpdateRequest{
		Name:           name,
		Enabled:        req.Enabled,
		RolloutPercent: req.RolloutPercent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, flag)
}

// StreamFlagChanges pushes flag change events over SSE. Each connection holds
// its own hub registration, so concurrent streams never share a cursor.
func (s *Server) StreamFlagChanges(c *gin.Context) {
	if s.flagHub == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	subscription := s.flagHub.Subscribe()
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-subscription.Events():
			if err := writeFlagChangeEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeFlagChangeEvent(w io.Writer, event flagdomain.ChangeEvent) error {
	event.Origin = ""
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
