package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by the REST surface and the realtime event contract.
const (
	CodeInvalidPayload  = "INVALID_PAYLOAD"
	CodeInvalidTicketID = "INVALID_TICKET_ID"
	CodeInvalidSenderID = "INVALID_SENDER_ID"
	CodeInvalidUserID   = "INVALID_USER_ID"
	CodeInvalidAgentID  = "INVALID_AGENT_ID"
	CodeTicketNotFound  = "TICKET_NOT_FOUND"
	CodeTicketClosed    = "TICKET_CLOSED"
	CodeJoinError       = "JOIN_ERROR"
	CodeMessageError    = "MESSAGE_ERROR"
	CodeStatusError     = "STATUS_ERROR"
	CodeAssignError     = "ASSIGN_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeValidation      = "VALIDATION_FAILED"
	CodeNotFound        = "NOT_FOUND"
)

// DomainError standardizes application errors across transports.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError flags a malformed or missing field.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewInvalidID flags a malformed identifier using a field-specific code.
func NewInvalidID(code, message string) error {
	return NewDomainError(code, message, http.StatusBadRequest, nil)
}

// NewNotFound reports an absent resource. Expected outcome of id races, so
// callers should not log it as a server fault.
func NewNotFound(resource string) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewTicketNotFound reports an absent ticket with the realtime contract code.
func NewTicketNotFound() error {
	return &DomainError{
		Code:       CodeTicketNotFound,
		Message:    "Ticket not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// NewTicketClosed rejects a write against a terminal-status ticket. Carries
// the user-facing Arabic reason shown verbatim by clients.
func NewTicketClosed() error {
	return &DomainError{
		Code:       CodeTicketClosed,
		Message:    "لا يمكن إرسال رسالة إلى تذكرة مغلقة. التذكرة تم حذفها نهائياً.",
		HTTPStatus: http.StatusConflict,
	}
}

// NewInternalError wraps an unexpected failure without leaking internals.
func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError, mapping pgx row
// absence to a typed not-found.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource").(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// IsNotFound reports whether err is a typed not-found result.
func IsNotFound(err error) bool {
	de := ToDomainError(err)
	return de != nil && (de.Code == CodeNotFound || de.Code == CodeTicketNotFound)
}
