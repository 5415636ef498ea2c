package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// Request is one client message. Answer fields are only read for ActionAnswer.
type Request struct {
	Action           Action `json:"action"`
	QuestionID       string `json:"question_id,omitempty"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

// SavedResponse acknowledges a recorded answer.
type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// GradedResponse carries the final score after submit.
type GradedResponse struct {
	Event Event `json:"event"`
	Score int   `json:"score"`
}

// ErrorResponse carries an error code and message. The connection stays open.
type ErrorResponse struct {
	Event   Event  `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
