package obd2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeDTCList(t *testing.T) {
	data := []byte{0x02, 0x01, 0x43, 0x01, 0x96}
	got, err := DecodeDTCList(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"P0143", "P0196"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeDTCList() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDTCListPadding(t *testing.T) {
	// CAN responses pad with zero pairs
	data := []byte{0x01, 0x01, 0x43, 0x00, 0x00, 0x00, 0x00}
	got, err := DecodeDTCList(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "P0143" {
		t.Errorf("DecodeDTCList() = %v", got)
	}
}

func TestDecodeDTCListEmpty(t *testing.T) {
	got, err := DecodeDTCList([]byte{0x00})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("DecodeDTCList() = %v, want none", got)
	}
	if _, err := DecodeDTCList(nil); err == nil {
		t.Error("missing count byte must fail")
	}
}

func TestDecodeDTCListShort(t *testing.T) {
	if _, err := DecodeDTCList([]byte{0x02, 0x01, 0x43}); err == nil {
		t.Error("declared count beyond data must fail")
	}
}
