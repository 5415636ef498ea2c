package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/response"
	"github.com/stemsi/examroom-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second
)

// ExamMonitor reads and manages an exam's attempts on behalf of its teacher.
type ExamMonitor interface {
	Monitor(ctx context.Context, examID, teacherID uuid.UUID) (*service.MonitorView, error)
	DeleteAttempt(ctx context.Context, attemptID, teacherID uuid.UUID) error
}

// EventSubscriber opens a live feed of an exam's attempt events.
type EventSubscriber interface {
	Subscribe(ctx context.Context, examID string) *redis.PubSub
}

type MonitorHandler struct {
	monitor ExamMonitor
	events  EventSubscriber
	log     zerolog.Logger
}

func NewMonitorHandler(monitor ExamMonitor, events EventSubscriber, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		events:  events,
		log:     log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Monitor godoc
// GET /api/v1/teacher/exams/:id/monitor
func (h *MonitorHandler) Monitor(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}

	view, err := h.monitor.Monitor(c.Request.Context(), examID, teacherID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// DeleteAttempt godoc
// DELETE /api/v1/teacher/attempts/:attempt_id
func (h *MonitorHandler) DeleteAttempt(c *gin.Context) {
	teacherID, attemptID, ok := callerAndParam(c, "attempt_id")
	if !ok {
		return
	}

	if err := h.monitor.DeleteAttempt(c.Request.Context(), attemptID, teacherID); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream godoc
// GET /api/v1/teacher/exams/:id/monitor/stream
// Sends a snapshot, then forwards every attempt event as it happens.
// A fresh snapshot follows periodically while events keep arriving.
func (h *MonitorHandler) Stream(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}
	reqCtx := c.Request.Context()

	// Ownership is checked before any SSE header goes out so errors still
	// use the JSON envelope.
	view, err := h.monitor.Monitor(reqCtx, examID, teacherID)
	if err != nil {
		failService(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	pubsub := h.events.Subscribe(reqCtx, examID.String())
	defer pubsub.Close()
	ch := pubsub.Channel()

	writeSnapshot(c, view)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()

	log := h.log.With().Str("exam_id", examID.String()).Logger()
	log.Info().Msg("Teacher attached to live monitor")

	dirty := false
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Teacher detached from live monitor")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			writeData(c, []byte(msg.Payload))
			dirty = true

		case <-refresh.C:
			if !dirty {
				continue
			}
			dirty = false
			h.sendRefresh(c, reqCtx, examID, teacherID, log)

		case <-keepAlive.C:
			writeData(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) sendRefresh(c *gin.Context, parent context.Context, examID, teacherID uuid.UUID, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	view, err := h.monitor.Monitor(ctx, examID, teacherID)
	if err != nil {
		log.Warn().Err(err).Msg("Monitor refresh failed")
		return
	}
	writeSnapshot(c, view)
}

func writeSnapshot(c *gin.Context, view *service.MonitorView) {
	raw, err := json.Marshal(map[string]any{"type": "snapshot", "data": view})
	if err != nil {
		return
	}
	writeData(c, raw)
}

// writeData forwards raw JSON as one SSE data frame.
func writeData(c *gin.Context, payload []byte) {
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(payload)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
