package godiag

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorSpecs(t *testing.T) {
	tests := []struct {
		name        string
		err         *Error
		category    Category
		severity    Severity
		action      RecoveryAction
		recoverable bool
	}{
		{"timeout", Connectivity("CONN_TIMEOUT", "no answer", nil), CategoryConnectivity, SeverityMedium, IncreaseTimeout, true},
		{"lost", Connectivity("CONN_LOST", "gone", nil), CategoryConnectivity, SeverityHigh, AutoReconnect, true},
		{"not supported", Protocol("PROTO_SERVICE_NOT_SUPPORTED", "nope", nil), CategoryProtocol, SeverityMedium, NoAction, false},
		{"busy", Protocol("PROTO_BUSY", "busy", nil), CategoryProtocol, SeverityLow, RetryWithDelay, true},
		{"parse", Parsing("PARSE_SHORT", "short", nil), CategoryParsing, SeverityLow, SkipParameter, false},
		{"hardware", Hardware("HW_BUFFER_OVERFLOW", "full", nil), CategoryHardware, SeverityHigh, ResetAdapter, true},
		{"config", Configuration("CAN_ID_RANGE", "too big", nil), CategoryConfiguration, SeverityHigh, NoAction, false},
		{"unknown code uses category default", Connectivity("CONN_SOMETHING_NEW", "eh", nil), CategoryConnectivity, SeverityMedium, RetryConnection, true},
		{"unknown", Unknown("what", nil), CategoryUnknown, SeverityCritical, PromptUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %v, want %v", tt.err.Category, tt.category)
			}
			if tt.err.Severity != tt.severity {
				t.Errorf("Severity = %v, want %v", tt.err.Severity, tt.severity)
			}
			if tt.err.Action != tt.action {
				t.Errorf("Action = %v, want %v", tt.err.Action, tt.action)
			}
			if tt.err.Recoverable != tt.recoverable {
				t.Errorf("Recoverable = %v, want %v", tt.err.Recoverable, tt.recoverable)
			}
		})
	}
}

func TestClassifiers(t *testing.T) {
	err := Protocol("PROTO_SEQUENCE", "out of order", nil)

	if got := ClassifyCategory(err); got != CategoryProtocol {
		t.Errorf("ClassifyCategory() = %v, want protocol", got)
	}
	if got := ClassifySeverity(err); got != SeverityMedium {
		t.Errorf("ClassifySeverity() = %v, want medium", got)
	}
	if got := ActionFor(err); got != RetryCommand {
		t.Errorf("ActionFor() = %v, want retry command", got)
	}

	// classification must survive wrapping
	wrapped := fmt.Errorf("request failed: %w", err)
	if got := ClassifyCategory(wrapped); got != CategoryProtocol {
		t.Errorf("ClassifyCategory(wrapped) = %v, want protocol", got)
	}
	if got := ActionFor(wrapped); got != RetryCommand {
		t.Errorf("ActionFor(wrapped) = %v, want retry command", got)
	}

	// classifying is pure: same error, same answer
	if ClassifyCategory(err) != ClassifyCategory(err) {
		t.Error("ClassifyCategory() not stable")
	}

	plain := errors.New("plain")
	if got := ClassifyCategory(plain); got != CategoryUnknown {
		t.Errorf("ClassifyCategory(plain) = %v, want unknown", got)
	}
	if got := ClassifySeverity(plain); got != SeverityCritical {
		t.Errorf("ClassifySeverity(plain) = %v, want critical", got)
	}
	if got := ActionFor(plain); got != PromptUser {
		t.Errorf("ActionFor(plain) = %v, want prompt user", got)
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(Connectivity("CONN_TIMEOUT", "no answer", nil)) {
		t.Error("CONN_TIMEOUT should be recoverable")
	}
	if IsRecoverable(Parsing("PARSE_MALFORMED", "garbage", nil)) {
		t.Error("PARSE_MALFORMED should not be recoverable")
	}
	if !IsRecoverable(errors.New("plain")) {
		t.Error("untyped errors default to recoverable")
	}
	if IsRecoverable(Unrecoverable(Connectivity("CONN_TIMEOUT", "give up", nil))) {
		t.Error("Unrecoverable() must override the taxonomy")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("port closed")
	err := Connectivity("CONN_LOST", "adapter vanished", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should reach the wrapped cause")
	}
	var de *Error
	if !errors.As(err, &de) || de.Code != "CONN_LOST" {
		t.Errorf("errors.As() code = %q, want CONN_LOST", de.Code)
	}
}
