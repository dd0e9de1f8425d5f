package uds

import (
	"fmt"
	"time"

	"github.com/albenik/bcd"
	"github.com/spacetec/godiag"
)

// Standardized data identifiers (ISO 14229-1 annex C).
const (
	DIDBootSoftwareIdentification     uint16 = 0xF180
	DIDApplicationSoftwareFingerprint uint16 = 0xF184
	DIDActiveDiagnosticSession        uint16 = 0xF186
	DIDSparePartNumber                uint16 = 0xF187
	DIDECUSoftwareNumber              uint16 = 0xF188
	DIDECUSoftwareVersion             uint16 = 0xF189
	DIDECUManufacturingDate           uint16 = 0xF18B
	DIDECUSerialNumber                uint16 = 0xF18C
	DIDVIN                            uint16 = 0xF190
	DIDECUHardwareNumber              uint16 = 0xF191
	DIDSystemSupplierECUHardware      uint16 = 0xF192
	DIDSystemSupplierECUSoftware      uint16 = 0xF194
	DIDECUInstallationDate            uint16 = 0xF19D
)

var didNames = map[uint16]string{
	DIDBootSoftwareIdentification:     "Boot Software Identification",
	DIDApplicationSoftwareFingerprint: "Application Software Fingerprint",
	DIDActiveDiagnosticSession:        "Active Diagnostic Session",
	DIDSparePartNumber:                "Spare Part Number",
	DIDECUSoftwareNumber:              "ECU Software Number",
	DIDECUSoftwareVersion:             "ECU Software Version",
	DIDECUManufacturingDate:           "ECU Manufacturing Date",
	DIDECUSerialNumber:                "ECU Serial Number",
	DIDVIN:                            "VIN",
	DIDECUHardwareNumber:              "ECU Hardware Number",
	DIDSystemSupplierECUHardware:      "System Supplier ECU Hardware",
	DIDSystemSupplierECUSoftware:      "System Supplier ECU Software",
	DIDECUInstallationDate:            "ECU Installation Date",
}

// DIDName returns the printable name of a data identifier, or its hex
// value when unknown.
func DIDName(did uint16) string {
	if name, ok := didNames[did]; ok {
		return name
	}
	return fmt.Sprintf("DID 0x%04X", did)
}

const vinLength = 17

// DecodeVIN validates and returns the 17-character vehicle
// identification number from a 0xF190 record.
func DecodeVIN(data []byte) (string, error) {
	if len(data) != vinLength {
		return "", godiag.Parsing("PARSE_MALFORMED",
			fmt.Sprintf("VIN record is %d bytes, want %d", len(data), vinLength), nil)
	}
	for i, b := range data {
		if b < 0x20 || b > 0x7E {
			return "", godiag.Parsing("PARSE_MALFORMED",
				fmt.Sprintf("VIN byte %d is not printable: 0x%02X", i, b), nil)
		}
	}
	return string(data), nil
}

// DecodeDate decodes a 4-byte BCD date record (yyyymmdd), as used by
// 0xF18B and 0xF19D.
func DecodeDate(data []byte) (time.Time, error) {
	if len(data) != 4 {
		return time.Time{}, godiag.Parsing("PARSE_MALFORMED",
			fmt.Sprintf("date record is %d bytes, want 4", len(data)), nil)
	}
	for _, b := range data {
		if b>>4 > 9 || b&0x0F > 9 {
			return time.Time{}, godiag.Parsing("PARSE_MALFORMED",
				fmt.Sprintf("invalid BCD digit in 0x%02X", b), nil)
		}
	}
	v := bcd.ToUint32(data)
	year := int(v / 10000)
	month := int(v / 100 % 100)
	day := int(v % 100)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, godiag.Parsing("PARSE_MALFORMED",
			fmt.Sprintf("date %04d-%02d-%02d out of range", year, month, day), nil)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
