package passthru

import "fmt"

// J2534 status codes, per J2534-1.
const (
	STATUS_NOERROR            = 0x00
	ERR_NOT_SUPPORTED         = 0x01
	ERR_INVALID_CHANNEL_ID    = 0x02
	ERR_INVALID_PROTOCOL_ID   = 0x03
	ERR_NULL_PARAMETER        = 0x04
	ERR_INVALID_IOCTL_VALUE   = 0x05
	ERR_INVALID_FLAGS         = 0x06
	ERR_FAILED                = 0x07
	ERR_DEVICE_NOT_CONNECTED  = 0x08
	ERR_TIMEOUT               = 0x09
	ERR_INVALID_MSG           = 0x0A
	ERR_INVALID_TIME_INTERVAL = 0x0B
	ERR_EXCEEDED_LIMIT        = 0x0C
	ERR_INVALID_MSG_ID        = 0x0D
	ERR_DEVICE_IN_USE         = 0x0E
	ERR_INVALID_IOCTL_ID      = 0x0F
	ERR_BUFFER_EMPTY          = 0x10
	ERR_BUFFER_FULL           = 0x11
	ERR_BUFFER_OVERFLOW       = 0x12
	ERR_PIN_INVALID           = 0x13
	ERR_CHANNEL_IN_USE        = 0x14
	ERR_MSG_PROTOCOL_ID       = 0x15
	ERR_INVALID_FILTER_ID     = 0x16
	ERR_NO_FLOW_CONTROL       = 0x17
	ERR_NOT_UNIQUE            = 0x18
	ERR_INVALID_BAUDRATE      = 0x19
	ERR_INVALID_DEVICE_ID     = 0x1A
)

var statusText = map[uint32]string{
	ERR_NOT_SUPPORTED:         "device is not fully SAE J2534 compliant",
	ERR_INVALID_CHANNEL_ID:    "invalid ChannelID value",
	ERR_INVALID_PROTOCOL_ID:   "invalid or unsupported ProtocolID",
	ERR_NULL_PARAMETER:        "NULL pointer supplied where a valid pointer is required",
	ERR_INVALID_IOCTL_VALUE:   "invalid value for Ioctl parameter",
	ERR_INVALID_FLAGS:         "invalid flag values",
	ERR_FAILED:                "PassThru call failed",
	ERR_DEVICE_NOT_CONNECTED:  "unable to communicate with PassThru device",
	ERR_TIMEOUT:               "PassThru read or write timeout",
	ERR_INVALID_MSG:           "invalid message structure",
	ERR_INVALID_TIME_INTERVAL: "invalid TimeInterval value",
	ERR_EXCEEDED_LIMIT:        "exceeded maximum number of message IDs",
	ERR_INVALID_MSG_ID:        "invalid MsgID value",
	ERR_DEVICE_IN_USE:         "device is currently open",
	ERR_INVALID_IOCTL_ID:      "invalid IoctlID value",
	ERR_BUFFER_EMPTY:          "protocol message buffer empty",
	ERR_BUFFER_FULL:           "protocol message buffer full",
	ERR_BUFFER_OVERFLOW:       "buffer overflow, messages lost",
	ERR_PIN_INVALID:           "invalid pin number or voltage already applied",
	ERR_CHANNEL_IN_USE:        "channel number is currently connected",
	ERR_MSG_PROTOCOL_ID:       "message protocol does not match the channel protocol",
	ERR_INVALID_FILTER_ID:     "invalid Filter ID value",
	ERR_NO_FLOW_CONTROL:       "no flow control filter set or matched",
	ERR_NOT_UNIQUE:            "CAN ID matches an existing flow control filter",
	ERR_INVALID_BAUDRATE:      "desired baud rate outside J2534 tolerance",
	ERR_INVALID_DEVICE_ID:     "device ID invalid",
}

// StatusError is a nonzero J2534 return code. This package sits below
// the diagnostic error taxonomy; adapters lift StatusError into it.
type StatusError struct {
	Status uint32
}

func (e *StatusError) Error() string {
	if text, ok := statusText[e.Status]; ok {
		return text
	}
	return fmt.Sprintf("unknown PassThru status %d", e.Status)
}

// CheckError wraps a nonzero J2534 status code. Zero is success.
func CheckError(ret uint32) error {
	if ret == STATUS_NOERROR {
		return nil
	}
	return &StatusError{Status: ret}
}
