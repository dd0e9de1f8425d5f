package uds

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeDTC(t *testing.T) {
	tests := []struct {
		a, b byte
		want string
	}{
		{0x01, 0x43, "P0143"},
		{0x01, 0x22, "P0122"},
		{0x1A, 0x2B, "P1A2B"},
		{0x41, 0x21, "C0121"},
		{0x94, 0x55, "B1455"},
		{0xC1, 0x00, "U0100"},
		{0x30, 0x00, "P3000"},
		{0x00, 0x00, ""},
	}
	for _, tt := range tests {
		if got := DecodeDTC(tt.a, tt.b); got != tt.want {
			t.Errorf("DecodeDTC(0x%02X, 0x%02X) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDTCSystem(t *testing.T) {
	tests := []struct {
		code string
		want System
	}{
		{"P0143", SystemPowertrain},
		{"C0121", SystemChassis},
		{"B1455", SystemBody},
		{"U0100", SystemNetwork},
		{"", 0},
	}
	for _, tt := range tests {
		d := DTC{Code: tt.code}
		if got := d.System(); got != tt.want {
			t.Errorf("System(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestDTCCategory(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"P0143", "generic"},
		{"P1234", "manufacturer specific"},
		{"P2100", "generic"},
		{"P3100", "generic"},
		{"C3100", "manufacturer specific"},
		{"B1455", "manufacturer specific"},
	}
	for _, tt := range tests {
		d := DTC{Code: tt.code}
		if got := d.Category(); got != tt.want {
			t.Errorf("Category(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestDTCStatusPredicates(t *testing.T) {
	d := DTC{Code: "P0143", Status: StatusTestFailed | StatusConfirmed | StatusWarningIndicatorRequested}
	if !d.TestFailed() || !d.Confirmed() || !d.WarningIndicatorRequested() {
		t.Error("set status bits not reported")
	}
	if d.Pending() || d.TestNotCompletedSinceClear() {
		t.Error("clear status bits reported as set")
	}
}

func TestParseDTCRecords(t *testing.T) {
	data := []byte{
		0x01, 0x43, 0x00, 0x2F,
		0x00, 0x00, 0x00, 0x00, // padding record, skipped
		0xC1, 0x00, 0x11, 0x08,
	}
	got, err := ParseDTCRecords(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []DTC{
		{Code: "P0143", Status: 0x2F},
		{Code: "U0100", Status: 0x08},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseDTCRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDTCRecordsMalformed(t *testing.T) {
	if _, err := ParseDTCRecords([]byte{0x01, 0x43, 0x00}); err == nil {
		t.Fatal("record data not a multiple of 4 must fail")
	}
}

func TestParseDTCRecordsEmpty(t *testing.T) {
	got, err := ParseDTCRecords(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty record data produced %d codes", len(got))
	}
}
