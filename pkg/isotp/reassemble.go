package isotp

import (
	"encoding/binary"
	"fmt"

	"github.com/spacetec/godiag"
)

// State of a Reassembler. Complete and Failed are terminal for one
// message; Reset returns to Idle.
type State int

const (
	Idle State = iota
	Receiving
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Receiving:
		return "receiving"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Reassembler rebuilds one ISO-TP message from incoming CAN frame data.
// It is not safe for concurrent use; each channel owns its own.
type Reassembler struct {
	state          State
	expectedLength int
	buf            []byte
	nextSeq        byte
}

func NewReassembler() *Reassembler {
	return &Reassembler{state: Idle}
}

func (r *Reassembler) State() State {
	return r.state
}

// Reset discards any in-flight message. Always called on the error
// path so the next request starts clean.
func (r *Reassembler) Reset() {
	r.state = Idle
	r.expectedLength = 0
	r.buf = nil
	r.nextSeq = 0
}

// Payload returns the reassembled message once State is Complete.
func (r *Reassembler) Payload() ([]byte, error) {
	if r.state != Complete {
		return nil, godiag.Protocol("PROTO_SEQUENCE", fmt.Sprintf("payload requested in state %s", r.state), nil)
	}
	return r.buf, nil
}

// Process consumes the data field of one CAN frame. It returns true
// when the message is complete. Flow-control frames belong to the
// transmit direction and are skipped. Any violation moves the
// reassembler to Failed; the caller must Reset before reuse.
func (r *Reassembler) Process(data []byte) (bool, error) {
	frameType, err := frameTypeOf(data)
	if err != nil {
		r.state = Failed
		return false, err
	}
	if frameType == pciFlowControl {
		return false, nil
	}

	switch r.state {
	case Complete, Failed:
		return false, godiag.Protocol("PROTO_SEQUENCE", fmt.Sprintf("frame received in terminal state %s", r.state), nil)
	case Idle:
		switch frameType {
		case pciSingleFrame:
			return r.processSingle(data)
		case pciFirstFrame:
			return r.processFirst(data)
		default:
			r.state = Failed
			return false, godiag.Protocol("PROTO_SEQUENCE", "consecutive frame without first frame", nil)
		}
	case Receiving:
		if frameType != pciConsecutiveFrame {
			r.state = Failed
			return false, godiag.Protocol("PROTO_SEQUENCE", "new message started while receiving", nil)
		}
		return r.processConsecutive(data)
	}
	return false, godiag.Unknown(fmt.Sprintf("invalid reassembler state %d", r.state), nil)
}

func (r *Reassembler) processSingle(data []byte) (bool, error) {
	length := int(data[0] & 0x0F)
	if length > len(data)-1 {
		r.state = Failed
		return false, godiag.Parsing("PARSE_SHORT", fmt.Sprintf("single frame length %d exceeds payload %d", length, len(data)-1), nil)
	}
	r.buf = append([]byte(nil), data[1:1+length]...)
	r.expectedLength = length
	r.state = Complete
	return true, nil
}

func (r *Reassembler) processFirst(data []byte) (bool, error) {
	if len(data) < 2 {
		r.state = Failed
		return false, godiag.Parsing("PARSE_SHORT", "first frame shorter than 2 bytes", nil)
	}
	length := int(data[0]&0x0F)<<8 | int(data[1])
	start := 2
	if length == 0 {
		// escaped 32-bit length variant, see Segment
		if len(data) < 6 {
			r.state = Failed
			return false, godiag.Parsing("PARSE_SHORT", "escaped first frame shorter than 6 bytes", nil)
		}
		length = int(binary.BigEndian.Uint32(data[2:6]))
		start = 6
	} else if length <= MaxSingleFrame {
		r.state = Failed
		return false, godiag.Parsing("PARSE_MALFORMED", fmt.Sprintf("first frame with single-frame length %d", length), nil)
	}
	r.expectedLength = length
	r.buf = append([]byte(nil), data[start:]...)
	r.nextSeq = 1
	r.state = Receiving
	return false, nil
}

func (r *Reassembler) processConsecutive(data []byte) (bool, error) {
	seq := data[0] & 0x0F
	if seq != r.nextSeq {
		r.state = Failed
		return false, godiag.Protocol("PROTO_SEQUENCE", fmt.Sprintf("sequence mismatch: expected %d got %d", r.nextSeq, seq), nil)
	}
	r.buf = append(r.buf, data[1:]...)
	r.nextSeq = (r.nextSeq + 1) & 0x0F
	if len(r.buf) >= r.expectedLength {
		r.buf = r.buf[:r.expectedLength]
		r.state = Complete
		return true, nil
	}
	return false, nil
}

// ProcessFrames feeds an entire frame sequence through a fresh
// reassembler and returns the payload iff it forms a complete,
// well-ordered message.
func ProcessFrames(frames [][]byte) ([]byte, bool) {
	r := NewReassembler()
	for _, data := range frames {
		done, err := r.Process(data)
		if err != nil {
			return nil, false
		}
		if done {
			payload, err := r.Payload()
			return payload, err == nil
		}
	}
	return nil, false
}
