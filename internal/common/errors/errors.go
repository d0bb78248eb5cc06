package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	ErrCodeTransport            ErrorCode = "TRANSPORT_ERROR"
	ErrCodeRoleNotConfigured    ErrorCode = "ROLE_NOT_CONFIGURED"
	ErrCodeRoleNotFound         ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeRoleAssignmentFailed ErrorCode = "ROLE_ASSIGNMENT_FAILED"
	ErrCodeGuildNotFound        ErrorCode = "GUILD_NOT_FOUND"
	ErrCodeMemberNotFound       ErrorCode = "MEMBER_NOT_FOUND"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the error type shared by every component. Nothing in
// this service retries, so Retryable is informational for job engines.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata returns e after setting key on its metadata map.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As returns the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain holds a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// CodeOf returns the code of err, or INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

func NewTransportError(service, operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   fmt.Sprintf("%s %s failed", service, operation),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service, "operation": operation},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewRoleNotConfiguredError(sku string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoleNotConfigured,
		Message:   fmt.Sprintf("Role for sku %s not configured.", sku),
		Retryable: false,
		Metadata:  map[string]interface{}{"sku": sku},
		Timestamp: time.Now().UTC(),
	}
}

func NewRoleNotFoundError(guildID, roleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoleNotFound,
		Message:   "Role cannot be assigned: not found.",
		Details:   fmt.Sprintf("guildId: %s, roleId: %s", guildID, roleID),
		Retryable: false,
		Metadata:  map[string]interface{}{"roleId": roleID},
		Timestamp: time.Now().UTC(),
	}
}

func NewRoleAssignmentError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoleAssignmentFailed,
		Message:   "Role cannot be assigned: unknown error.",
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"userId": userID},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewGuildNotFoundError(guildID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGuildNotFound,
		Message:   "Guild not found.",
		Details:   fmt.Sprintf("guildId: %s", guildID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMemberNotFoundError(guildID, userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMemberNotFound,
		Message:   "Member not found in guild",
		Details:   fmt.Sprintf("guildId: %s, userId: %s", guildID, userID),
		Retryable: false,
		Metadata:  map[string]interface{}{"userId": userID},
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// BPMNErrorMapping names the boundary events a process model can catch.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTransport:            "MEMBERSHIP_TRANSPORT_FAILED",
	ErrCodeRoleNotConfigured:    "MEMBERSHIP_ROLE_NOT_CONFIGURED",
	ErrCodeRoleNotFound:         "MEMBERSHIP_ROLE_NOT_FOUND",
	ErrCodeRoleAssignmentFailed: "MEMBERSHIP_ROLE_ASSIGNMENT_FAILED",
	ErrCodeGuildNotFound:        "MEMBERSHIP_GUILD_NOT_FOUND",
	ErrCodeMemberNotFound:       "MEMBERSHIP_MEMBER_NOT_FOUND",
	ErrCodeValidationFailed:     "MEMBERSHIP_INVALID_INPUT",
}

// ConvertToBPMNError maps a StandardError onto a BPMN error. Retries is
// always zero: failed reconciliations are surfaced, never replayed.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retries:        0,
		ErrorVariables: vars,
	}
}
