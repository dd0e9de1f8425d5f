package godiag

import (
	"time"

	"github.com/avast/retry-go"
)

// RecoveryAction tells the layer above what to do about a failure. The
// engine itself never retries; it only reports the action.
type RecoveryAction int

const (
	NoAction RecoveryAction = iota
	PromptEnableBluetooth
	RetryScan
	RetryConnection
	AutoReconnect
	TryOtherProtocols
	SkipParameter
	RetryWithDelay
	ResetAdapter
	PromptUser
	IncreaseTimeout
	RetryCommand
	RetryOperation
)

func (a RecoveryAction) String() string {
	switch a {
	case NoAction:
		return "no action"
	case PromptEnableBluetooth:
		return "prompt to enable bluetooth"
	case RetryScan:
		return "retry scan"
	case RetryConnection:
		return "retry connection"
	case AutoReconnect:
		return "auto reconnect"
	case TryOtherProtocols:
		return "try other protocols"
	case SkipParameter:
		return "skip parameter"
	case RetryWithDelay:
		return "retry with delay"
	case ResetAdapter:
		return "reset adapter"
	case PromptUser:
		return "prompt user"
	case IncreaseTimeout:
		return "increase timeout"
	case RetryCommand:
		return "retry command"
	case RetryOperation:
		return "retry operation"
	default:
		return "invalid"
	}
}

// RetryOptions translates a recovery action into a retry-go policy for
// orchestrators that choose to retry. Actions that require user
// intervention or a rescan get a single attempt so the error surfaces
// immediately.
func RetryOptions(action RecoveryAction) []retry.Option {
	switch action {
	case RetryCommand, RetryOperation:
		return []retry.Option{retry.Attempts(3), retry.Delay(50 * time.Millisecond), retry.LastErrorOnly(true)}
	case RetryWithDelay:
		return []retry.Option{retry.Attempts(3), retry.Delay(250 * time.Millisecond), retry.LastErrorOnly(true)}
	case RetryConnection, AutoReconnect:
		return []retry.Option{retry.Attempts(5), retry.Delay(500 * time.Millisecond), retry.LastErrorOnly(true)}
	case IncreaseTimeout:
		return []retry.Option{retry.Attempts(2), retry.Delay(100 * time.Millisecond), retry.LastErrorOnly(true)}
	case ResetAdapter, RetryScan:
		return []retry.Option{retry.Attempts(2), retry.Delay(time.Second), retry.LastErrorOnly(true)}
	default:
		return []retry.Option{retry.Attempts(1), retry.LastErrorOnly(true)}
	}
}
