package isotp

import (
	"fmt"
	"time"

	"github.com/spacetec/godiag"
)

type FlowStatus byte

const (
	ContinueToSend FlowStatus = 0
	Wait           FlowStatus = 1
	Overflow       FlowStatus = 2
)

func (fs FlowStatus) String() string {
	switch fs {
	case ContinueToSend:
		return "continue to send"
	case Wait:
		return "wait"
	case Overflow:
		return "overflow"
	default:
		return "reserved"
	}
}

// FlowControl is the pacing contract sent by a receiver after a First
// Frame: how many Consecutive Frames may follow before the next flow
// control (BlockSize, 0 = unlimited) and the minimum gap between them.
type FlowControl struct {
	Status         FlowStatus
	BlockSize      byte
	SeparationTime time.Duration
}

// Bytes encodes the flow control as a 3-byte CAN frame payload.
func (fc FlowControl) Bytes() []byte {
	return []byte{
		pciFlowControl | byte(fc.Status&0x0F),
		fc.BlockSize,
		EncodeSeparationTime(fc.SeparationTime),
	}
}

// ParseFlowControl decodes a flow control frame payload.
func ParseFlowControl(data []byte) (FlowControl, error) {
	if len(data) < 3 {
		return FlowControl{}, godiag.Parsing("PARSE_SHORT", fmt.Sprintf("flow control frame %d bytes", len(data)), nil)
	}
	if data[0]&0xF0 != pciFlowControl {
		return FlowControl{}, godiag.Parsing("PARSE_MALFORMED", fmt.Sprintf("not a flow control frame: 0x%02X", data[0]), nil)
	}
	status := FlowStatus(data[0] & 0x0F)
	if status > Overflow {
		return FlowControl{}, godiag.Parsing("PARSE_MALFORMED", fmt.Sprintf("reserved flow status %d", status), nil)
	}
	return FlowControl{
		Status:         status,
		BlockSize:      data[1],
		SeparationTime: DecodeSeparationTime(data[2]),
	}, nil
}

// IsFlowControl reports whether the frame payload is a flow control.
func IsFlowControl(data []byte) bool {
	return len(data) > 0 && data[0]&0xF0 == pciFlowControl
}

// EncodeSeparationTime maps a duration to the STmin byte: 0x00-0x7F
// are milliseconds, 0xF1-0xF9 are 100-900 microseconds.
func EncodeSeparationTime(d time.Duration) byte {
	if d <= 0 {
		return 0x00
	}
	if d < time.Millisecond {
		units := d / (100 * time.Microsecond)
		if units < 1 {
			units = 1
		}
		return 0xF0 | byte(units)
	}
	ms := d / time.Millisecond
	if ms > 0x7F {
		ms = 0x7F
	}
	return byte(ms)
}

// DecodeSeparationTime maps an STmin byte back to a duration. Reserved
// values decode to the maximum of 127 ms as the standard directs.
func DecodeSeparationTime(b byte) time.Duration {
	if b <= 0x7F {
		return time.Duration(b) * time.Millisecond
	}
	if b >= 0xF1 && b <= 0xF9 {
		return time.Duration(b-0xF0) * 100 * time.Microsecond
	}
	return 127 * time.Millisecond
}
