package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type StatusError struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Reason     string   `json:"reason,omitempty"`
	Details    []string `json:"details,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("status %d: %s: %s", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Is matches on code and message so that errors.Is works against the
// sentinels below regardless of the attached reason.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func NewStatusError(code int, message string) *StatusError {
	return &StatusError{
		Code:    code,
		Message: message,
	}
}

// WithReason returns a copy of e carrying reason. Sentinels are never mutated.
func (e *StatusError) WithReason(reason string) *StatusError {
	out := *e
	out.Reason = reason
	return &out
}

// WithDetails returns a copy of e carrying the itemized messages.
func (e *StatusError) WithDetails(details []string) *StatusError {
	out := *e
	out.Details = append([]string(nil), details...)
	return &out
}

var (
	// Authentication errors
	ErrInvalidCredentials = NewStatusError(http.StatusUnauthorized, "invalid credentials")
	ErrTokenExpired       = NewStatusError(http.StatusUnauthorized, "token expired")
	ErrInvalidToken       = NewStatusError(http.StatusUnauthorized, "invalid token")
	ErrUnauthenticated    = NewStatusError(http.StatusUnauthorized, "authentication required")

	// Authorization errors
	ErrForbidden        = NewStatusError(http.StatusForbidden, "forbidden")
	ErrPermissionDenied = NewStatusError(http.StatusForbidden, "permission denied")

	// Validation errors
	ErrInvalidRequest = NewStatusError(http.StatusBadRequest, "invalid request")
	ErrInvalidInput   = NewStatusError(http.StatusBadRequest, "invalid input")
	ErrValidation     = NewStatusError(http.StatusBadRequest, "validation failed")
	ErrUnknownTable   = NewStatusError(http.StatusBadRequest, "unknown table")
	ErrUnknownAction  = NewStatusError(http.StatusBadRequest, "unknown action")
	ErrReadOnly       = NewStatusError(http.StatusBadRequest, "table is read-only")

	// Referential errors
	ErrNotFound          = NewStatusError(http.StatusNotFound, "record not found")
	ErrReferenceNotFound = NewStatusError(http.StatusBadRequest, "referenced record not found, select an existing value")

	// Integrity errors
	ErrConflict = NewStatusError(http.StatusConflict, "data conflicts with existing records")

	// Server errors
	ErrInternal       = NewStatusError(http.StatusInternalServerError, "internal server error")
	ErrNotImplemented = NewStatusError(http.StatusNotImplemented, "not implemented")

	// Store Operation errors
	ErrStorageOperation  = NewStatusError(http.StatusInternalServerError, "storage operation failed")
	ErrTransactionFailed = NewStatusError(http.StatusInternalServerError, "transaction failed")

	// Database specific errors
	ErrDatabaseConnection = NewStatusError(http.StatusInternalServerError, "database connection failed")

	// External tool errors
	ErrToolUnavailable = NewStatusError(http.StatusServiceUnavailable, "database tool not found")
	ErrToolTimeout     = NewStatusError(http.StatusGatewayTimeout, "database tool timed out")
	ErrToolFailed      = NewStatusError(http.StatusInternalServerError, "database tool failed")
)

// Per-action messages shown when a storage failure has no better explanation.
var actionMessages = map[string]string{
	"create":  "could not save the record, check the entered data",
	"update":  "could not update the record, check the entered data",
	"delete":  "could not delete the record",
	"load":    "could not load data",
	"export":  "could not build the report, try again later",
	"login":   "could not sign in, check email and password",
	"backup":  "could not create the backup",
	"restore": "could not restore the database, check the backup file",
}

const defaultFriendlyMessage = "an unexpected error occurred, try again later"

// FriendlyMessage maps any error to text that is safe to show an end user.
// Raw storage-engine text never leaks through.
func FriendlyMessage(err error, action string) string {
	if err == nil {
		return defaultFriendlyMessage
	}
	if IsIntegrityViolation(err) {
		return ErrConflict.Message
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Is(ErrValidation) && len(se.Details) > 0:
			return strings.Join(se.Details, " ")
		case se.Code < http.StatusInternalServerError:
			return se.Message
		}
	}
	if msg, ok := actionMessages[action]; ok {
		return msg
	}
	return defaultFriendlyMessage
}

// IsIntegrityViolation reports whether err comes from a uniqueness, foreign key,
// not-null or check constraint in either supported database.
func IsIntegrityViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Is(ErrConflict) {
		return true
	}
	msg := err.Error()
	for _, marker := range integrityMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var integrityMarkers = []string{
	// sqlite
	"UNIQUE constraint failed",
	"FOREIGN KEY constraint failed",
	"NOT NULL constraint failed",
	"CHECK constraint failed",
	// postgres
	"SQLSTATE 23505",
	"SQLSTATE 23503",
	"SQLSTATE 23502",
	"SQLSTATE 23514",
	"duplicate key value violates unique constraint",
	"violates foreign key constraint",
}
