package godiag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

const (
	// MaxStandardID is the highest valid 11-bit CAN identifier.
	MaxStandardID = 0x7FF
	// MaxExtendedID is the highest valid 29-bit CAN identifier.
	MaxExtendedID = 0x1FFFFFFF
	// MaxDLC is the maximum number of data bytes in a classic CAN frame.
	MaxDLC = 8
)

type CANFrameType struct {
	Type      int
	Responses int
}

var (
	Incoming         = CANFrameType{Type: 0, Responses: 0}
	Outgoing         = CANFrameType{Type: 1, Responses: 0}
	ResponseRequired = CANFrameType{Type: 2, Responses: 1} // adapter should wait for a response after sending
)

// CANFrame is a single classic CAN frame. Data holds at most 8 bytes.
// Frames are treated as immutable once constructed; layers hand them
// off rather than mutating them in place.
type CANFrame struct {
	Identifier uint32
	Extended   bool
	Data       []byte
	FrameType  CANFrameType
	Timeout    uint32
}

// NewFrame creates a standard 11-bit frame and copies the data slice.
func NewFrame(identifier uint32, data []byte, frameType CANFrameType) (*CANFrame, error) {
	if identifier > MaxStandardID {
		return nil, Configuration("CAN_ID_RANGE", fmt.Sprintf("identifier 0x%X exceeds 11-bit range", identifier), nil)
	}
	return newFrame(identifier, data, frameType, false)
}

// NewExtendedFrame creates a 29-bit frame and copies the data slice.
func NewExtendedFrame(identifier uint32, data []byte, frameType CANFrameType) (*CANFrame, error) {
	if identifier > MaxExtendedID {
		return nil, Configuration("CAN_ID_RANGE", fmt.Sprintf("identifier 0x%X exceeds 29-bit range", identifier), nil)
	}
	return newFrame(identifier, data, frameType, true)
}

func newFrame(identifier uint32, data []byte, frameType CANFrameType, extended bool) (*CANFrame, error) {
	if len(data) > MaxDLC {
		return nil, Configuration("CAN_DLC", fmt.Sprintf("frame data length %d exceeds %d bytes", len(data), MaxDLC), nil)
	}
	d := make([]byte, len(data))
	copy(d, data)
	return &CANFrame{
		Identifier: identifier,
		Extended:   extended,
		Data:       d,
		FrameType:  frameType,
	}, nil
}

// DLC returns the length of the data
func (f *CANFrame) DLC() int {
	return len(f.Data)
}

var (
	printYellow = color.New(color.FgHiBlue).SprintfFunc()
	printRed    = color.New(color.FgRed).SprintfFunc()
	printGreen  = color.New(color.FgGreen).SprintfFunc()
)

func (f *CANFrame) String() string {
	var out strings.Builder
	switch f.FrameType.Type {
	case 0:
		out.WriteString("<i> || ")
	case 1:
		out.WriteString("<o> || ")
	case 2:
		out.WriteString("<r> || ")
	}
	out.WriteString(fmt.Sprintf("0x%03X", f.Identifier) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(fmt.Sprintf("%-23s", hexView(f.Data)))
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Data))
	return out.String()
}

func (f *CANFrame) ColorString() string {
	var out strings.Builder
	switch f.FrameType.Type {
	case 0:
		out.WriteString("<i> || ")
	case 1:
		out.WriteString("<o> || ")
	case 2:
		out.WriteString("<r> || ")
	}
	out.WriteString(printGreen("0x%03X", f.Identifier) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(printRed("%-23s", hexView(f.Data)))
	out.WriteString(" || ")
	out.WriteString(printYellow("%s", onlyPrintable(f.Data)))
	return out.String()
}

func hexView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 127 {
			out.WriteString(".")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
