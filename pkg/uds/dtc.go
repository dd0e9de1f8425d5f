package uds

import (
	"fmt"

	"github.com/spacetec/godiag"
)

// DTC status bits, per ISO 14229-1 D.2.
const (
	StatusTestFailed                 byte = 1 << 0
	StatusTestFailedThisCycle        byte = 1 << 1
	StatusPending                    byte = 1 << 2
	StatusConfirmed                  byte = 1 << 3
	StatusTestNotCompletedSinceClear byte = 1 << 4
	StatusTestFailedSinceClear       byte = 1 << 5
	StatusTestNotCompletedThisCycle  byte = 1 << 6
	StatusWarningIndicatorRequested  byte = 1 << 7
)

// System is the vehicle system a trouble code belongs to, the first
// character of the code.
type System byte

const (
	SystemPowertrain System = 'P'
	SystemChassis    System = 'C'
	SystemBody       System = 'B'
	SystemNetwork    System = 'U'
)

func (s System) String() string {
	switch s {
	case SystemPowertrain:
		return "powertrain"
	case SystemChassis:
		return "chassis"
	case SystemBody:
		return "body"
	case SystemNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// DTC is one stored trouble code with its status byte.
type DTC struct {
	Code   string
	Status byte
}

func (d DTC) TestFailed() bool {
	return d.Status&StatusTestFailed != 0
}

func (d DTC) Pending() bool {
	return d.Status&StatusPending != 0
}

func (d DTC) Confirmed() bool {
	return d.Status&StatusConfirmed != 0
}

func (d DTC) TestNotCompletedSinceClear() bool {
	return d.Status&StatusTestNotCompletedSinceClear != 0
}

func (d DTC) WarningIndicatorRequested() bool {
	return d.Status&StatusWarningIndicatorRequested != 0
}

// System is derived from the first character of the code.
func (d DTC) System() System {
	if len(d.Code) == 0 {
		return 0
	}
	switch d.Code[0] {
	case 'P', 'C', 'B', 'U':
		return System(d.Code[0])
	default:
		return 0
	}
}

// Category tells generic (SAE-defined) codes apart from manufacturer
// specific ones, derived from the system letter and the second digit.
func (d DTC) Category() string {
	if len(d.Code) < 2 {
		return "unknown"
	}
	switch d.Code[1] {
	case '0', '2':
		return "generic"
	case '1':
		return "manufacturer specific"
	case '3':
		if d.System() == SystemPowertrain {
			return "generic"
		}
		return "manufacturer specific"
	default:
		return "unknown"
	}
}

func (d DTC) String() string {
	return fmt.Sprintf("%s (status 0x%02X)", d.Code, d.Status)
}

// How the two leading bytes map to characters:
//
//	bits 15..14  system letter  00=P 01=C 10=B 11=U
//	bits 13..12  second digit   0..3
//	bits 11..8   third digit    0..F
//	bits  7..4   fourth digit   0..F
//	bits  3..0   fifth digit    0..F
var (
	systemChars = [4]byte{'P', 'C', 'B', 'U'}
	hexDigits   = "0123456789ABCDEF"
)

// DecodeDTC turns the two identifying bytes of a trouble code into its
// display form, e.g. 0x01,0x22 -> "P0122". Both bytes zero means "no
// code stored" and decodes to the empty string.
func DecodeDTC(a, b byte) string {
	if a == 0 && b == 0 {
		return ""
	}
	code := make([]byte, 5)
	code[0] = systemChars[(a>>6)&0x03]
	code[1] = '0' + (a>>4)&0x03
	code[2] = hexDigits[a&0x0F]
	code[3] = hexDigits[(b>>4)&0x0F]
	code[4] = hexDigits[b&0x0F]
	return string(code)
}

// ParseDTCRecords parses the DTC-and-status records of a
// ReadDTCInformation reportDTCByStatusMask response: the data after
// the sub-function echo and availability mask, four bytes per record
// (three identifying bytes, one status byte). The middle identifying
// byte is the low byte of the 2-byte code; the third byte is the
// failure type and is not part of the display form.
func ParseDTCRecords(data []byte) ([]DTC, error) {
	if len(data)%4 != 0 {
		return nil, godiag.Parsing("PARSE_MALFORMED", fmt.Sprintf("DTC record data not a multiple of 4: %d bytes", len(data)), nil)
	}
	out := make([]DTC, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		code := DecodeDTC(data[i], data[i+1])
		if code == "" {
			continue
		}
		out = append(out, DTC{Code: code, Status: data[i+3]})
	}
	return out, nil
}
