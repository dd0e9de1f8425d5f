// Package isotp implements the ISO 15765-2 transport layer: payload
// segmentation, reassembly and flow control over classic CAN frames.
package isotp

import (
	"encoding/binary"
	"fmt"

	"github.com/spacetec/godiag"
)

// PCI frame types, upper nibble of the first payload byte.
const (
	pciSingleFrame      = 0x00
	pciFirstFrame       = 0x10
	pciConsecutiveFrame = 0x20
	pciFlowControl      = 0x30
)

const (
	// MaxSingleFrame is the largest payload carried by one Single Frame.
	MaxSingleFrame = 7
	// MaxStandardLength is the largest payload expressible in the
	// 12-bit First Frame length field.
	MaxStandardLength = 0xFFF
	// MaxLength caps the escaped 32-bit length variant.
	MaxLength = 1<<32 - 1
)

// Segment splits payload into the data fields of a CAN frame sequence:
// a Single Frame for up to 7 bytes, otherwise a First Frame followed by
// Consecutive Frames with the sequence number cycling 1..15,0,1...
//
// Payloads above 4095 bytes use the escaped First Frame: length nibble
// and byte zero, a 32-bit big-endian length in bytes 2..5, and no
// payload bytes in the First Frame itself. That last part diverges from
// a strict reading of the standard (which would carry two payload
// bytes); it mirrors the behaviour of the hardware this engine was
// built against and reassembly accepts both.
//
// Concatenating the payload bytes of the produced frames, in order,
// reconstructs the input exactly.
func Segment(payload []byte) ([][]byte, error) {
	if len(payload) <= MaxSingleFrame {
		frame := make([]byte, 0, len(payload)+1)
		frame = append(frame, pciSingleFrame|byte(len(payload)))
		frame = append(frame, payload...)
		return [][]byte{frame}, nil
	}

	var frames [][]byte
	var offset int
	if len(payload) <= MaxStandardLength {
		ff := make([]byte, 2, 8)
		ff[0] = pciFirstFrame | byte(len(payload)>>8&0x0F)
		ff[1] = byte(len(payload) & 0xFF)
		ff = append(ff, payload[:6]...)
		frames = append(frames, ff)
		offset = 6
	} else {
		ff := make([]byte, 6)
		ff[0] = pciFirstFrame
		ff[1] = 0x00
		binary.BigEndian.PutUint32(ff[2:], uint32(len(payload)))
		frames = append(frames, ff)
	}

	seq := byte(1)
	for offset < len(payload) {
		end := offset + 7
		if end > len(payload) {
			end = len(payload)
		}
		cf := make([]byte, 0, 8)
		cf = append(cf, pciConsecutiveFrame|seq)
		cf = append(cf, payload[offset:end]...)
		frames = append(frames, cf)
		offset = end
		seq = (seq + 1) & 0x0F
	}
	return frames, nil
}

// Frames wraps Segment and builds ready-to-send CAN frames for the
// given identifier.
func Frames(identifier uint32, extended bool, payload []byte) ([]*godiag.CANFrame, error) {
	chunks, err := Segment(payload)
	if err != nil {
		return nil, err
	}
	out := make([]*godiag.CANFrame, 0, len(chunks))
	for _, chunk := range chunks {
		var frame *godiag.CANFrame
		if extended {
			frame, err = godiag.NewExtendedFrame(identifier, chunk, godiag.Outgoing)
		} else {
			frame, err = godiag.NewFrame(identifier, chunk, godiag.Outgoing)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, frame)
	}
	return out, nil
}

func frameTypeOf(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, godiag.Parsing("PARSE_EMPTY", "empty CAN frame", nil)
	}
	t := int(data[0] & 0xF0)
	switch t {
	case pciSingleFrame, pciFirstFrame, pciConsecutiveFrame, pciFlowControl:
		return t, nil
	default:
		return 0, godiag.Parsing("PARSE_MALFORMED", fmt.Sprintf("unknown PCI type 0x%02X", data[0]>>4), nil)
	}
}
