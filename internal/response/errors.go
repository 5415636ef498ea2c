package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"
	ErrNotExamOwner      ErrCode = "NOT_EXAM_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"

	// ─── Attempt state ─────────────────────────────────────────────────
	ErrAttemptAlreadyStarted ErrCode = "ATTEMPT_ALREADY_STARTED"
	ErrAttemptCompleted      ErrCode = "ATTEMPT_COMPLETED"
	ErrExamNotOpen           ErrCode = "EXAM_NOT_OPEN"
	ErrExamClosed            ErrCode = "EXAM_CLOSED"
	ErrInvalidLateCode       ErrCode = "INVALID_LATE_CODE"
	ErrLateCodeTaken         ErrCode = "LATE_CODE_TAKEN"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrInvalidCredentials: "Email or password is incorrect.",
	ErrEmailTaken:         "This email is already registered.",
	ErrTokenRequired:      "Authentication token is required.",
	ErrTokenInvalid:       "Authentication token is invalid or expired.",

	ErrForbidden:         "You do not have access to this resource.",
	ErrStudentAccessOnly: "This resource is restricted to students.",
	ErrTeacherAccessOnly: "This resource is restricted to teachers.",
	ErrNotExamOwner:      "Only the teacher who owns this exam can do that.",

	ErrValidation: "Request validation failed.",
	ErrInvalidID:  "The ID format is invalid.",

	ErrNotFound:         "Resource not found.",
	ErrExamNotFound:     "Exam not found.",
	ErrAttemptNotFound:  "Attempt not found.",
	ErrQuestionNotFound: "Question does not belong to this exam.",

	ErrAttemptAlreadyStarted: "You have already started this exam.",
	ErrAttemptCompleted:      "This attempt has already been submitted.",
	ErrExamNotOpen:           "This exam has not started yet.",
	ErrExamClosed:            "This exam is closed.",
	ErrInvalidLateCode:       "The late code is invalid or has already been used.",
	ErrLateCodeTaken:         "This late code already exists for the exam.",

	ErrRateLimitExceeded: "Too many requests. Please try again later.",

	ErrInternal: "An internal server error occurred.",
}

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "An unknown error occurred."
}
