package serialcommand

import (
	"bytes"
	"testing"
)

func TestMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  *SerialCommand
	}{
		{"frame", New(CommandFrame, []byte{0x07, 0xE0, 0x00, 0x00, 0x00, 0x02, 0x3E, 0x00})},
		{"open", New(CommandOpen, nil)},
		{"rate", New(CommandRate, []byte{0x07, 0xA1, 0x20})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.cmd.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}
			var got SerialCommand
			if err := got.UnmarshalBinary(buf); err != nil {
				t.Fatal(err)
			}
			if got.Command != tt.cmd.Command {
				t.Errorf("Command = %c, want %c", got.Command, tt.cmd.Command)
			}
			if !bytes.Equal(got.Data, tt.cmd.Data) && len(tt.cmd.Data) > 0 {
				t.Errorf("Data = %X, want %X", got.Data, tt.cmd.Data)
			}
		})
	}
}

func TestMarshalOversized(t *testing.T) {
	cmd := New(CommandFrame, make([]byte, 256))
	if _, err := cmd.MarshalBinary(); err == nil {
		t.Error("payload above one length byte must fail")
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{'F', 0x00}},
		{"size mismatch", []byte{'F', 0x05, 0x01, 0x02}},
		{"bad checksum", []byte{'F', 0x01, 0x42, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sc SerialCommand
			if err := sc.UnmarshalBinary(tt.data); err == nil {
				t.Error("UnmarshalBinary() accepted bad input")
			}
		})
	}
}

func TestChecksumProperty(t *testing.T) {
	// appending a checksum always verifies, for any content
	bufs := [][]byte{
		{},
		{0x00},
		{0xFF, 0xFF, 0xFF},
		{'F', 0x02, 0xDE, 0xAD},
		bytes.Repeat([]byte{0xA5}, 300),
	}
	for _, buf := range bufs {
		if !Verify(AppendChecksum(append([]byte(nil), buf...))) {
			t.Errorf("Verify(AppendChecksum(%X)) = false", buf)
		}
	}
	if Verify(nil) {
		t.Error("Verify(nil) must be false")
	}
	if Verify([]byte{0x01, 0x02}) {
		t.Error("wrong trailing byte must not verify")
	}
}
