package uds

import (
	"testing"
	"time"
)

func TestDecodeVIN(t *testing.T) {
	vin := "1G1ZT53826F109149"
	got, err := DecodeVIN([]byte(vin))
	if err != nil {
		t.Fatal(err)
	}
	if got != vin {
		t.Errorf("DecodeVIN() = %q, want %q", got, vin)
	}
}

func TestDecodeVINErrors(t *testing.T) {
	if _, err := DecodeVIN([]byte("TOO_SHORT")); err == nil {
		t.Error("short record must fail")
	}
	bad := []byte("1G1ZT53826F10914\x00")
	if _, err := DecodeVIN(bad); err == nil {
		t.Error("non printable byte must fail")
	}
}

func TestDecodeDate(t *testing.T) {
	got, err := DecodeDate([]byte{0x20, 0x23, 0x11, 0x07})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2023, time.November, 7, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DecodeDate() = %v, want %v", got, want)
	}
}

func TestDecodeDateErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte{0x20, 0x23}},
		{"bad bcd digit", []byte{0x20, 0x2A, 0x11, 0x07}},
		{"month out of range", []byte{0x20, 0x23, 0x13, 0x07}},
		{"day out of range", []byte{0x20, 0x23, 0x11, 0x32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeDate(tt.data); err == nil {
				t.Error("DecodeDate() accepted bad input")
			}
		})
	}
}

func TestDIDName(t *testing.T) {
	if DIDName(DIDVIN) != "VIN" {
		t.Errorf("DIDName(VIN) = %q", DIDName(DIDVIN))
	}
	if DIDName(0x1234) == "" {
		t.Error("unknown DID should fall back to hex")
	}
}
