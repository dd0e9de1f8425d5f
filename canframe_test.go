package godiag

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewFrame(t *testing.T) {
	tests := []struct {
		name       string
		identifier uint32
		data       []byte
		wantErr    bool
	}{
		{"valid", 0x7E0, []byte{0x02, 0x01, 0x0C}, false},
		{"max standard id", 0x7FF, []byte{0x00}, false},
		{"id out of range", 0x800, []byte{0x00}, true},
		{"dlc too large", 0x7E0, make([]byte, 9), true},
		{"empty data", 0x7E0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := NewFrame(tt.identifier, tt.data, Outgoing)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if ClassifyCategory(err) != CategoryConfiguration {
					t.Errorf("NewFrame() error category = %v, want configuration", ClassifyCategory(err))
				}
				return
			}
			if frame.Identifier != tt.identifier {
				t.Errorf("Identifier = 0x%X, want 0x%X", frame.Identifier, tt.identifier)
			}
			if !bytes.Equal(frame.Data, tt.data) && len(tt.data) > 0 {
				t.Errorf("Data = %X, want %X", frame.Data, tt.data)
			}
			if frame.DLC() != len(tt.data) {
				t.Errorf("DLC() = %d, want %d", frame.DLC(), len(tt.data))
			}
		})
	}
}

func TestNewExtendedFrame(t *testing.T) {
	if _, err := NewExtendedFrame(0x18DAF110, []byte{0x01}, Outgoing); err != nil {
		t.Fatalf("NewExtendedFrame() error = %v", err)
	}
	if _, err := NewExtendedFrame(0x20000000, []byte{0x01}, Outgoing); err == nil {
		t.Fatal("NewExtendedFrame() accepted identifier above 29 bits")
	}
}

func TestFrameString(t *testing.T) {
	frame, err := NewFrame(0x7E8, []byte{0x41, 0x0C, 0x1A, 0xF8}, Incoming)
	if err != nil {
		t.Fatal(err)
	}
	if s := frame.String(); !strings.Contains(s, "7E8") {
		t.Errorf("String() = %q, missing identifier", s)
	}
}

func TestCANFilterMatches(t *testing.T) {
	frame, _ := NewFrame(0x7E8, []byte{0x00}, Incoming)
	extFrame, _ := NewExtendedFrame(0x18DAF110, []byte{0x00}, Incoming)

	tests := []struct {
		name   string
		filter CANFilter
		frame  *CANFrame
		want   bool
	}{
		{"exact", CANFilter{ID: 0x7E8, Mask: 0x7FF}, frame, true},
		{"miss", CANFilter{ID: 0x7E0, Mask: 0x7FF}, frame, false},
		{"range mask", CANFilter{ID: 0x7E8, Mask: 0x7F8}, frame, true},
		{"zero mask matches all", CANFilter{ID: 0x123, Mask: 0x000}, frame, true},
		{"extended mismatch", CANFilter{ID: 0x7E8, Mask: 0x7FF}, extFrame, false},
		{"extended match", CANFilter{ID: 0x18DAF110, Mask: 0x1FFFFFFF, Extended: true}, extFrame, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.frame); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchAny(t *testing.T) {
	frame, _ := NewFrame(0x7E8, []byte{0x00}, Incoming)
	if !MatchAny(nil, frame) {
		t.Error("empty filter list should accept every frame")
	}
	filters := []CANFilter{
		{ID: 0x123, Mask: 0x7FF},
		{ID: 0x7E8, Mask: 0x7FF},
	}
	if !MatchAny(filters, frame) {
		t.Error("MatchAny() missed a matching filter")
	}
	if MatchAny(filters[:1], frame) {
		t.Error("MatchAny() matched a non-matching filter")
	}
}
