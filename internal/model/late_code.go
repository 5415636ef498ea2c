package model

import (
	"time"

	"github.com/google/uuid"
)

// LateCode admits one attempt after the end time of a PERMISSIVE exam.
type LateCode struct {
	ID        uuid.UUID  `json:"id"`
	ExamID    uuid.UUID  `json:"exam_id"`
	Code      string     `json:"code"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	UsedBy    *uuid.UUID `json:"used_by,omitempty"`
}

// LateCodeRequest is the payload for issuing a late code. An empty code
// asks the server to generate one.
type LateCodeRequest struct {
	Code string `json:"code" binding:"omitempty,min=4,max=32,latecode"`
}
