package godiag

import (
	"errors"
	"fmt"
)

// Category buckets every failure the engine can produce. The set is
// closed; anything that cannot be attributed ends up in CategoryUnknown
// rather than being swallowed.
type Category int

const (
	CategoryConnectivity Category = iota
	CategoryProtocol
	CategoryParsing
	CategoryHardware
	CategoryConfiguration
	CategoryUnknown
)

func (c Category) String() string {
	switch c {
	case CategoryConnectivity:
		return "connectivity"
	case CategoryProtocol:
		return "protocol"
	case CategoryParsing:
		return "parsing"
	case CategoryHardware:
		return "hardware"
	case CategoryConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "invalid"
	}
}

// Error is a diagnostic failure with a stable code, a severity and the
// recovery action the orchestrator should take. All fields are fixed at
// construction and never mutated afterwards.
type Error struct {
	Category    Category
	Severity    Severity
	Code        string
	Message     string
	Action      RecoveryAction
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Category, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Category, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errorSpec pins severity, action and recoverability to an error code.
type errorSpec struct {
	severity    Severity
	action      RecoveryAction
	recoverable bool
}

// Known error codes. Codes not listed here fall back to the category
// defaults below.
var errorSpecs = map[string]errorSpec{
	"CONN_TIMEOUT":           {SeverityMedium, IncreaseTimeout, true},
	"CONN_LOST":              {SeverityHigh, AutoReconnect, true},
	"CONN_ADAPTER_NOT_FOUND": {SeverityMedium, RetryScan, true},
	"CONN_BLUETOOTH_OFF":     {SeverityMedium, PromptEnableBluetooth, true},
	"CONN_REFUSED":           {SeverityMedium, RetryConnection, true},
	"CONN_FLOW_CONTROL":      {SeverityMedium, IncreaseTimeout, true},

	"PROTO_NEGATIVE_RESPONSE":     {SeverityMedium, RetryCommand, true},
	"PROTO_SECURITY_DENIED":       {SeverityMedium, PromptUser, true},
	"PROTO_SERVICE_NOT_SUPPORTED": {SeverityMedium, NoAction, false},
	"PROTO_UNEXPECTED_RESPONSE":   {SeverityMedium, RetryCommand, true},
	"PROTO_SEQUENCE":              {SeverityMedium, RetryCommand, true},
	"PROTO_BUSY":                  {SeverityLow, RetryWithDelay, true},
	"PROTO_UNSUPPORTED":           {SeverityMedium, TryOtherProtocols, true},

	"PARSE_EMPTY":     {SeverityLow, SkipParameter, false},
	"PARSE_SHORT":     {SeverityLow, SkipParameter, false},
	"PARSE_MALFORMED": {SeverityLow, SkipParameter, false},
	"PARSE_CHECKSUM":  {SeverityLow, SkipParameter, false},

	"HW_BUFFER_OVERFLOW": {SeverityHigh, ResetAdapter, true},
	"HW_FAILURE":         {SeverityHigh, ResetAdapter, true},

	"CAN_ID_RANGE":    {SeverityHigh, NoAction, false},
	"CAN_DLC":         {SeverityHigh, NoAction, false},
	"CFG_BAD_REQUEST": {SeverityHigh, NoAction, false},
}

var categoryDefaults = map[Category]errorSpec{
	CategoryConnectivity:  {SeverityMedium, RetryConnection, true},
	CategoryProtocol:      {SeverityMedium, RetryCommand, true},
	CategoryParsing:       {SeverityLow, SkipParameter, false},
	CategoryHardware:      {SeverityHigh, ResetAdapter, true},
	CategoryConfiguration: {SeverityHigh, NoAction, false},
	CategoryUnknown:       {SeverityCritical, PromptUser, false},
}

func newError(cat Category, code, message string, err error) *Error {
	spec, ok := errorSpecs[code]
	if !ok {
		spec = categoryDefaults[cat]
	}
	return &Error{
		Category:    cat,
		Severity:    spec.severity,
		Code:        code,
		Message:     message,
		Action:      spec.action,
		Recoverable: spec.recoverable,
		Err:         err,
	}
}

func Connectivity(code, message string, err error) *Error {
	return newError(CategoryConnectivity, code, message, err)
}

func Protocol(code, message string, err error) *Error {
	return newError(CategoryProtocol, code, message, err)
}

func Parsing(code, message string, err error) *Error {
	return newError(CategoryParsing, code, message, err)
}

func Hardware(code, message string, err error) *Error {
	return newError(CategoryHardware, code, message, err)
}

func Configuration(code, message string, err error) *Error {
	return newError(CategoryConfiguration, code, message, err)
}

func Unknown(message string, err error) *Error {
	return newError(CategoryUnknown, "UNKNOWN", message, err)
}

// ClassifyCategory returns the category of err, CategoryUnknown for
// anything that is not a diagnostic error.
func ClassifyCategory(err error) Category {
	var de *Error
	if errors.As(err, &de) {
		return de.Category
	}
	return CategoryUnknown
}

// ClassifySeverity returns the severity of err, SeverityCritical for
// anything that is not a diagnostic error.
func ClassifySeverity(err error) Severity {
	var de *Error
	if errors.As(err, &de) {
		return de.Severity
	}
	return SeverityCritical
}

// ActionFor returns the recovery action bound to err at construction.
func ActionFor(err error) RecoveryAction {
	var de *Error
	if errors.As(err, &de) {
		return de.Action
	}
	return PromptUser
}

// IsRecoverable reports whether the orchestrator may retry after err.
// Used as a retry predicate with retry-go.
func IsRecoverable(err error) bool {
	if _, ok := err.(unrecoverableError); ok {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Recoverable
	}
	return true
}

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable marks err as final regardless of its taxonomy entry.
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

var (
	ErrNilAdapter            = errors.New("adapter is nil")
	ErrDroppedFrame          = errors.New("adapter incoming channel full")
	ErrSendTimeout           = errors.New("timeout sending frame")
	ErrResponseChannelClosed = errors.New("response channel closed")
)
