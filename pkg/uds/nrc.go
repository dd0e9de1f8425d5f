package uds

import (
	"fmt"

	"github.com/spacetec/godiag"
)

// Negative response codes, per ISO 14229-1.
const (
	NRCGeneralReject                          byte = 0x10
	NRCServiceNotSupported                    byte = 0x11
	NRCSubFunctionNotSupported                byte = 0x12
	NRCIncorrectMessageLength                 byte = 0x13
	NRCResponseTooLong                        byte = 0x14
	NRCBusyRepeatRequest                      byte = 0x21
	NRCConditionsNotCorrect                   byte = 0x22
	NRCRequestSequenceError                   byte = 0x24
	NRCNoResponseFromSubnetComponent          byte = 0x25
	NRCFailurePreventsExecution               byte = 0x26
	NRCRequestOutOfRange                      byte = 0x31
	NRCSecurityAccessDenied                   byte = 0x33
	NRCInvalidKey                             byte = 0x35
	NRCExceedNumberOfAttempts                 byte = 0x36
	NRCRequiredTimeDelayNotExpired            byte = 0x37
	NRCUploadDownloadNotAccepted              byte = 0x70
	NRCTransferDataSuspended                  byte = 0x71
	NRCGeneralProgrammingFailure              byte = 0x72
	NRCWrongBlockSequenceCounter              byte = 0x73
	NRCResponsePending                        byte = 0x78
	NRCSubFunctionNotSupportedInActiveSession byte = 0x7E
	NRCServiceNotSupportedInActiveSession     byte = 0x7F
)

// NRCName translates a negative response code to its ISO name.
func NRCName(nrc byte) string {
	switch nrc {
	case NRCGeneralReject:
		return "general reject"
	case NRCServiceNotSupported:
		return "service not supported"
	case NRCSubFunctionNotSupported:
		return "sub-function not supported"
	case NRCIncorrectMessageLength:
		return "incorrect message length or invalid format"
	case NRCResponseTooLong:
		return "response too long"
	case NRCBusyRepeatRequest:
		return "busy, repeat request"
	case NRCConditionsNotCorrect:
		return "conditions not correct"
	case NRCRequestSequenceError:
		return "request sequence error"
	case NRCNoResponseFromSubnetComponent:
		return "no response from subnet component"
	case NRCFailurePreventsExecution:
		return "failure prevents execution of requested action"
	case NRCRequestOutOfRange:
		return "request out of range"
	case NRCSecurityAccessDenied:
		return "security access denied"
	case NRCInvalidKey:
		return "invalid key"
	case NRCExceedNumberOfAttempts:
		return "exceeded number of attempts"
	case NRCRequiredTimeDelayNotExpired:
		return "required time delay not expired"
	case NRCUploadDownloadNotAccepted:
		return "upload/download not accepted"
	case NRCTransferDataSuspended:
		return "transfer data suspended"
	case NRCGeneralProgrammingFailure:
		return "general programming failure"
	case NRCWrongBlockSequenceCounter:
		return "wrong block sequence counter"
	case NRCResponsePending:
		return "request correctly received, response pending"
	case NRCSubFunctionNotSupportedInActiveSession:
		return "sub-function not supported in active session"
	case NRCServiceNotSupportedInActiveSession:
		return "service not supported in active session"
	default:
		return fmt.Sprintf("unknown NRC 0x%02X", nrc)
	}
}

// NegativeResponseError maps a negative response to the diagnostic
// error taxonomy. NRCResponsePending never reaches this path; the
// session loop consumes it and keeps waiting.
func NegativeResponseError(resp *Response) error {
	msg := fmt.Sprintf("%s rejected: %s", ServiceName(resp.ServiceID), NRCName(resp.NRC))
	switch resp.NRC {
	case NRCSecurityAccessDenied, NRCInvalidKey, NRCExceedNumberOfAttempts, NRCRequiredTimeDelayNotExpired:
		return godiag.Protocol("PROTO_SECURITY_DENIED", msg, nil)
	case NRCServiceNotSupported, NRCSubFunctionNotSupported,
		NRCSubFunctionNotSupportedInActiveSession, NRCServiceNotSupportedInActiveSession:
		return godiag.Protocol("PROTO_SERVICE_NOT_SUPPORTED", msg, nil)
	case NRCBusyRepeatRequest:
		return godiag.Protocol("PROTO_BUSY", msg, nil)
	default:
		return godiag.Protocol("PROTO_NEGATIVE_RESPONSE", msg, nil)
	}
}
