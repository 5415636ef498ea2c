package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/response"
	ws "github.com/stemsi/examroom-backend/internal/websocket"
)

// AttemptGuard checks that a student may still use an attempt.
type AttemptGuard interface {
	CheckAccess(ctx context.Context, attemptID, studentID uuid.UUID, mutation bool) (*model.Attempt, error)
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler carries answer and submit actions for one attempt over a
// WebSocket. It goes through the same services as the REST endpoints.
type WSHandler struct {
	guard    AttemptGuard
	answers  AnswerRecorder
	scoring  Submitter
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(guard AttemptGuard, answers AnswerRecorder, scoring Submitter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		guard:    guard,
		answers:  answers,
		scoring:  scoring,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	studentID, attemptID, ok := callerAndParam(c, "attempt_id")
	if !ok {
		return
	}

	// Refuse before upgrading so the client gets a normal HTTP error.
	if _, err := h.guard.CheckAccess(c.Request.Context(), attemptID, studentID, true); err != nil {
		failService(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", studentID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// The upgraded connection outlives the request context.
	ctx := context.WithoutCancel(c.Request.Context())

	for {
		req, err := ws.ReadRequest(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch req.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, conn, wsLog, attemptID, studentID, req)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, conn, wsLog, attemptID, studentID) {
				return
			}
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			_ = ws.WriteError(conn, string(response.ErrValidation), "unknown action: "+string(req.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, attemptID, studentID uuid.UUID, req *ws.Request) {
	questionID, qErr := uuid.Parse(req.QuestionID)
	optionID, oErr := uuid.Parse(req.SelectedOptionID)
	if qErr != nil || oErr != nil {
		_ = ws.WriteError(conn, string(response.ErrValidation), "question_id and selected_option_id must be UUIDs")
		return
	}

	if err := h.answers.RecordAnswer(ctx, attemptID, studentID, questionID, optionID); err != nil {
		writeServiceError(conn, log, err)
		return
	}
	_ = ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: questionID.String()})
}

// handleSubmit reports whether the attempt is finished and the connection
// should close.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, attemptID, studentID uuid.UUID) bool {
	score, err := h.scoring.Submit(ctx, attemptID, studentID)
	if err != nil {
		writeServiceError(conn, log, err)
		return false
	}
	log.Info().Int("score", score).Msg("Attempt submitted over websocket")
	_ = ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Score: score})
	return true
}

func writeServiceError(conn *websocket.Conn, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("WebSocket action failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code))
}
