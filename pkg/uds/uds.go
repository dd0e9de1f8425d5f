// Package uds implements the ISO 14229 service layer: request/response
// codec, negative response semantics, session management and DTC
// reading, on top of the ISO-TP transport.
package uds

import "fmt"

// Service IDs
const (
	ServiceDiagnosticSessionControl       byte = 0x10
	ServiceECUReset                       byte = 0x11
	ServiceClearDiagnosticInformation     byte = 0x14
	ServiceReadDTCInformation             byte = 0x19
	ServiceReadDataByIdentifier           byte = 0x22
	ServiceReadMemoryByAddress            byte = 0x23
	ServiceSecurityAccess                 byte = 0x27
	ServiceCommunicationControl           byte = 0x28
	ServiceWriteDataByIdentifier          byte = 0x2E
	ServiceInputOutputControlByIdentifier byte = 0x2F
	ServiceRoutineControl                 byte = 0x31
	ServiceRequestDownload                byte = 0x34
	ServiceRequestUpload                  byte = 0x35
	ServiceTransferData                   byte = 0x36
	ServiceRequestTransferExit            byte = 0x37
	ServiceTesterPresent                  byte = 0x3E
	ServiceControlDTCSetting              byte = 0x85
)

// positiveResponseOffset is added to the service ID in a positive
// response.
const positiveResponseOffset = 0x40

// negativeResponseID is the first byte of every negative response.
const negativeResponseID = 0x7F

var serviceNames = map[byte]string{
	ServiceDiagnosticSessionControl:       "DiagnosticSessionControl",
	ServiceECUReset:                       "ECUReset",
	ServiceClearDiagnosticInformation:     "ClearDiagnosticInformation",
	ServiceReadDTCInformation:             "ReadDTCInformation",
	ServiceReadDataByIdentifier:           "ReadDataByIdentifier",
	ServiceReadMemoryByAddress:            "ReadMemoryByAddress",
	ServiceSecurityAccess:                 "SecurityAccess",
	ServiceCommunicationControl:           "CommunicationControl",
	ServiceWriteDataByIdentifier:          "WriteDataByIdentifier",
	ServiceInputOutputControlByIdentifier: "InputOutputControlByIdentifier",
	ServiceRoutineControl:                 "RoutineControl",
	ServiceRequestDownload:                "RequestDownload",
	ServiceRequestUpload:                  "RequestUpload",
	ServiceTransferData:                   "TransferData",
	ServiceRequestTransferExit:            "RequestTransferExit",
	ServiceTesterPresent:                  "TesterPresent",
	ServiceControlDTCSetting:              "ControlDTCSetting",
}

// ServiceName returns the name of a service ID, or its hex value when
// unknown.
func ServiceName(id byte) string {
	if name, ok := serviceNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", id)
}

// Session is a UDS diagnostic session type (service 0x10 sub-function).
type Session byte

const (
	SessionDefault      Session = 0x01
	SessionProgramming  Session = 0x02
	SessionExtended     Session = 0x03
	SessionSafetySystem Session = 0x04
)

func (s Session) String() string {
	switch s {
	case SessionDefault:
		return "default"
	case SessionProgramming:
		return "programming"
	case SessionExtended:
		return "extended"
	case SessionSafetySystem:
		return "safety system"
	default:
		return fmt.Sprintf("0x%02X", byte(s))
	}
}
