// Package obd2 decodes SAE J1979 emissions diagnostics: mode 01 live
// data PIDs, trouble code read modes and vehicle information.
package obd2

import (
	"fmt"

	"github.com/spacetec/godiag"
)

// Service modes.
const (
	ModeCurrentData   byte = 0x01
	ModeFreezeFrame   byte = 0x02
	ModeStoredDTCs    byte = 0x03
	ModeClearDTCs     byte = 0x04
	ModePendingDTCs   byte = 0x07
	ModeVehicleInfo   byte = 0x09
	ModePermanentDTCs byte = 0x0A
)

// Mode 01 PIDs.
const (
	PIDSupported01To20       byte = 0x00
	PIDMonitorStatus         byte = 0x01
	PIDEngineLoad            byte = 0x04
	PIDCoolantTemp           byte = 0x05
	PIDShortFuelTrim1        byte = 0x06
	PIDLongFuelTrim1         byte = 0x07
	PIDShortFuelTrim2        byte = 0x08
	PIDLongFuelTrim2         byte = 0x09
	PIDFuelPressure          byte = 0x0A
	PIDIntakeManifoldPress   byte = 0x0B
	PIDEngineRPM             byte = 0x0C
	PIDVehicleSpeed          byte = 0x0D
	PIDTimingAdvance         byte = 0x0E
	PIDIntakeAirTemp         byte = 0x0F
	PIDMAFRate               byte = 0x10
	PIDThrottlePosition      byte = 0x11
	PIDRunTime               byte = 0x1F
	PIDSupported21To40       byte = 0x20
	PIDDistanceWithMIL       byte = 0x21
	PIDFuelLevel             byte = 0x2F
	PIDBarometricPressure    byte = 0x33
	PIDSupported41To60       byte = 0x40
	PIDControlModuleVoltage  byte = 0x42
	PIDAmbientAirTemp        byte = 0x46
	PIDEngineOilTemp         byte = 0x5C
	PIDFuelRate              byte = 0x5E
	PIDSupported61To80       byte = 0x60
)

// Value is one decoded sensor reading.
type Value struct {
	Value float64
	Unit  string
}

func (v Value) String() string {
	if v.Unit == "" {
		return fmt.Sprintf("%.2f", v.Value)
	}
	return fmt.Sprintf("%.2f %s", v.Value, v.Unit)
}

type pidSpec struct {
	name   string
	bytes  int
	unit   string
	decode func(data []byte) float64
}

func byteA(data []byte) float64   { return float64(data[0]) }
func wordAB(data []byte) float64  { return float64(data[0])*256 + float64(data[1]) }
func percent(data []byte) float64 { return float64(data[0]) * 100 / 255 }
func tempA(data []byte) float64   { return float64(data[0]) - 40 }
func trim(data []byte) float64    { return float64(data[0])/1.28 - 100 }

var pidSpecs = map[byte]pidSpec{
	PIDEngineLoad:           {"Engine Load", 1, "%", percent},
	PIDCoolantTemp:          {"Coolant Temperature", 1, "°C", tempA},
	PIDShortFuelTrim1:       {"Short Term Fuel Trim Bank 1", 1, "%", trim},
	PIDLongFuelTrim1:        {"Long Term Fuel Trim Bank 1", 1, "%", trim},
	PIDShortFuelTrim2:       {"Short Term Fuel Trim Bank 2", 1, "%", trim},
	PIDLongFuelTrim2:        {"Long Term Fuel Trim Bank 2", 1, "%", trim},
	PIDFuelPressure:         {"Fuel Pressure", 1, "kPa", func(d []byte) float64 { return float64(d[0]) * 3 }},
	PIDIntakeManifoldPress:  {"Intake Manifold Pressure", 1, "kPa", byteA},
	PIDEngineRPM:            {"Engine RPM", 2, "rpm", func(d []byte) float64 { return wordAB(d) / 4 }},
	PIDVehicleSpeed:         {"Vehicle Speed", 1, "km/h", byteA},
	PIDTimingAdvance:        {"Timing Advance", 1, "°", func(d []byte) float64 { return float64(d[0])/2 - 64 }},
	PIDIntakeAirTemp:        {"Intake Air Temperature", 1, "°C", tempA},
	PIDMAFRate:              {"MAF Air Flow Rate", 2, "g/s", func(d []byte) float64 { return wordAB(d) / 100 }},
	PIDThrottlePosition:     {"Throttle Position", 1, "%", percent},
	PIDRunTime:              {"Run Time Since Engine Start", 2, "s", wordAB},
	PIDDistanceWithMIL:      {"Distance Traveled With MIL On", 2, "km", wordAB},
	PIDFuelLevel:            {"Fuel Level", 1, "%", percent},
	PIDBarometricPressure:   {"Barometric Pressure", 1, "kPa", byteA},
	PIDControlModuleVoltage: {"Control Module Voltage", 2, "V", func(d []byte) float64 { return wordAB(d) / 1000 }},
	PIDAmbientAirTemp:       {"Ambient Air Temperature", 1, "°C", tempA},
	PIDEngineOilTemp:        {"Engine Oil Temperature", 1, "°C", tempA},
	PIDFuelRate:             {"Fuel Rate", 2, "L/h", func(d []byte) float64 { return wordAB(d) / 20 }},
}

// PIDName returns the printable name of a mode 01 PID, or its hex
// value when unknown.
func PIDName(pid byte) string {
	if spec, ok := pidSpecs[pid]; ok {
		return spec.name
	}
	return fmt.Sprintf("PID 0x%02X", pid)
}

// KnownPIDs lists the PIDs this decoder understands, ascending.
func KnownPIDs() []byte {
	out := make([]byte, 0, len(pidSpecs))
	for pid := byte(0); pid < 0x80; pid++ {
		if _, ok := pidSpecs[pid]; ok {
			out = append(out, pid)
		}
	}
	return out
}

// DecodePID turns the raw data bytes of a mode 01 response into an
// engineering value. Extra trailing bytes are tolerated, short input
// is not.
func DecodePID(pid byte, data []byte) (Value, error) {
	spec, ok := pidSpecs[pid]
	if !ok {
		return Value{}, godiag.Parsing("PARSE_MALFORMED",
			fmt.Sprintf("no decoder for PID 0x%02X", pid), nil)
	}
	if len(data) < spec.bytes {
		return Value{}, godiag.Parsing("PARSE_SHORT",
			fmt.Sprintf("%s needs %d data bytes, got %d", spec.name, spec.bytes, len(data)), nil)
	}
	return Value{Value: spec.decode(data), Unit: spec.unit}, nil
}

// MonitorStatus is the decoded PID 0x01 record.
type MonitorStatus struct {
	MILOn    bool
	DTCCount int
}

func DecodeMonitorStatus(data []byte) (MonitorStatus, error) {
	if len(data) < 4 {
		return MonitorStatus{}, godiag.Parsing("PARSE_SHORT",
			fmt.Sprintf("monitor status needs 4 data bytes, got %d", len(data)), nil)
	}
	return MonitorStatus{
		MILOn:    data[0]&0x80 != 0,
		DTCCount: int(data[0] & 0x7F),
	}, nil
}

// DecodeSupported expands a 4-byte support bitmask (PIDs 0x00, 0x20,
// 0x40, 0x60) into the PID numbers it declares. Bit 7 of the first
// byte is base+1, bit 0 of the last byte is base+32.
func DecodeSupported(base byte, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, godiag.Parsing("PARSE_SHORT",
			fmt.Sprintf("support bitmask needs 4 data bytes, got %d", len(data)), nil)
	}
	var out []byte
	for i := 0; i < 4; i++ {
		for bit := 0; bit < 8; bit++ {
			if data[i]&(0x80>>bit) != 0 {
				out = append(out, base+byte(i*8+bit)+1)
			}
		}
	}
	return out, nil
}
