// Package ecusim simulates a single diagnostic ECU behind the Virtual
// adapter. It reassembles segmented requests, answers flow control and
// segments its own responses, so the full transport path is exercised
// without hardware.
package ecusim

import (
	"sync"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/isotp"
	"github.com/spacetec/godiag/pkg/uds"
)

type Config struct {
	// RequestID is the identifier the ECU listens on, ResponseID the
	// one it answers from.
	RequestID  uint32
	ResponseID uint32
	Extended   bool

	VIN string
}

// StoredDTC is one trouble code held by the simulated ECU, in its wire
// encoding.
type StoredDTC struct {
	High   byte
	Middle byte
	Low    byte
	Status byte
}

type ECU struct {
	cfg Config

	mu       sync.Mutex
	rs       *isotp.Reassembler
	session  uds.Session
	unlocked bool
	seed     []byte

	dids    map[uint16][]byte
	pidData map[byte][]byte
	dtcs    []StoredDTC

	pending  map[byte]int
	negative map[byte]byte
}

func New(cfg Config) *ECU {
	if cfg.RequestID == 0 {
		cfg.RequestID = 0x7E0
	}
	if cfg.ResponseID == 0 {
		cfg.ResponseID = 0x7E8
	}
	if cfg.VIN == "" {
		cfg.VIN = "1G1ZT53826F109149"
	}
	e := &ECU{
		cfg:      cfg,
		rs:       isotp.NewReassembler(),
		session:  uds.SessionDefault,
		seed:     []byte{0x36, 0x57, 0x22, 0x19},
		dids:     make(map[uint16][]byte),
		pidData:  make(map[byte][]byte),
		pending:  make(map[byte]int),
		negative: make(map[byte]byte),
	}
	e.dids[uds.DIDVIN] = []byte(cfg.VIN)
	e.dids[uds.DIDECUSerialNumber] = []byte("SIM0001")
	e.dids[uds.DIDECUSoftwareVersion] = []byte("1.0.0")
	e.pidData[0x05] = []byte{0x5A}       // 50 °C
	e.pidData[0x0C] = []byte{0x1A, 0xF8} // 1726 rpm
	e.pidData[0x0D] = []byte{0x3C}       // 60 km/h
	e.pidData[0x42] = []byte{0x30, 0x39} // 12.345 V
	return e
}

// SetDID installs or replaces a data identifier record.
func (e *ECU) SetDID(did uint16, record []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dids[did] = record
}

// SetPID installs the raw data bytes returned for a mode 01 PID.
func (e *ECU) SetPID(pid byte, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pidData[pid] = data
}

// AddDTC stores a trouble code.
func (e *ECU) AddDTC(dtc StoredDTC) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dtcs = append(e.dtcs, dtc)
}

// RespondPending makes the next request for a service answer with n
// ResponsePending negatives before the real response.
func (e *ECU) RespondPending(serviceID byte, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[serviceID] = n
}

// ForceNegative makes every request for a service fail with the given
// NRC until cleared with nrc 0.
func (e *ECU) ForceNegative(serviceID, nrc byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if nrc == 0 {
		delete(e.negative, serviceID)
		return
	}
	e.negative[serviceID] = nrc
}

// Session returns the ECU's current session.
func (e *ECU) Session() uds.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Responder adapts the ECU to the Virtual adapter.
func (e *ECU) Responder() func(*godiag.CANFrame) []*godiag.CANFrame {
	return e.respond
}

func (e *ECU) respond(frame *godiag.CANFrame) []*godiag.CANFrame {
	e.mu.Lock()
	defer e.mu.Unlock()

	if frame.Identifier != e.cfg.RequestID || len(frame.Data) == 0 {
		return nil
	}
	if isotp.IsFlowControl(frame.Data) {
		return nil
	}

	var out []*godiag.CANFrame
	if frame.Data[0]>>4 == 0x1 {
		// first frame: grant the whole transfer in one block
		fc := isotp.FlowControl{Status: isotp.ContinueToSend}
		f, err := godiag.NewFrame(e.cfg.ResponseID, fc.Bytes(), godiag.Outgoing)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}

	complete, err := e.rs.Process(frame.Data)
	if err != nil {
		e.rs.Reset()
		return out
	}
	if !complete {
		return out
	}
	request, err := e.rs.Payload()
	e.rs.Reset()
	if err != nil {
		return out
	}

	for _, payload := range e.handle(request) {
		frames, err := isotp.Frames(e.cfg.ResponseID, e.cfg.Extended, payload)
		if err != nil {
			continue
		}
		out = append(out, frames...)
	}
	return out
}

func negative(serviceID, nrc byte) []byte {
	return []byte{0x7F, serviceID, nrc}
}

func (e *ECU) handle(request []byte) [][]byte {
	if len(request) == 0 {
		return nil
	}
	sid := request[0]
	params := request[1:]

	if nrc, ok := e.negative[sid]; ok {
		return [][]byte{negative(sid, nrc)}
	}

	var out [][]byte
	if n := e.pending[sid]; n > 0 {
		for i := 0; i < n; i++ {
			out = append(out, negative(sid, uds.NRCResponsePending))
		}
		delete(e.pending, sid)
	}

	final := e.dispatch(sid, params)
	if final != nil {
		out = append(out, final)
	}
	return out
}

func (e *ECU) dispatch(sid byte, params []byte) []byte {
	switch sid {
	case uds.ServiceDiagnosticSessionControl:
		return e.sessionControl(params)
	case uds.ServiceECUReset:
		if len(params) < 1 {
			return negative(sid, uds.NRCIncorrectMessageLength)
		}
		e.session = uds.SessionDefault
		e.unlocked = false
		return []byte{sid + 0x40, params[0]}
	case uds.ServiceTesterPresent:
		if len(params) >= 1 && params[0]&0x80 != 0 {
			return nil
		}
		return []byte{sid + 0x40, 0x00}
	case uds.ServiceReadDataByIdentifier:
		return e.readDID(params)
	case uds.ServiceWriteDataByIdentifier:
		return e.writeDID(params)
	case uds.ServiceSecurityAccess:
		return e.securityAccess(params)
	case uds.ServiceReadDTCInformation:
		return e.readDTCs(params)
	case uds.ServiceClearDiagnosticInformation:
		e.dtcs = nil
		return []byte{sid + 0x40}
	case 0x01:
		return e.readPID(params)
	case 0x03:
		return e.obdDTCs(0x03, func(d StoredDTC) bool { return d.Status&uds.StatusConfirmed != 0 })
	case 0x07:
		return e.obdDTCs(0x07, func(d StoredDTC) bool { return d.Status&uds.StatusPending != 0 })
	case 0x0A:
		return e.obdDTCs(0x0A, func(StoredDTC) bool { return true })
	case 0x04:
		e.dtcs = nil
		return []byte{0x44}
	case 0x09:
		return e.vehicleInfo(params)
	default:
		return negative(sid, uds.NRCServiceNotSupported)
	}
}

func (e *ECU) sessionControl(params []byte) []byte {
	sid := uds.ServiceDiagnosticSessionControl
	if len(params) < 1 {
		return negative(sid, uds.NRCIncorrectMessageLength)
	}
	s := uds.Session(params[0])
	switch s {
	case uds.SessionDefault, uds.SessionProgramming, uds.SessionExtended, uds.SessionSafetySystem:
		e.session = s
		if s == uds.SessionDefault {
			e.unlocked = false
		}
		// P2 and P2* server timing
		return []byte{sid + 0x40, params[0], 0x00, 0x32, 0x01, 0xF4}
	default:
		return negative(sid, uds.NRCSubFunctionNotSupported)
	}
}

func (e *ECU) readDID(params []byte) []byte {
	sid := uds.ServiceReadDataByIdentifier
	if len(params) < 2 {
		return negative(sid, uds.NRCIncorrectMessageLength)
	}
	did := uint16(params[0])<<8 | uint16(params[1])
	record, ok := e.dids[did]
	if !ok {
		return negative(sid, uds.NRCRequestOutOfRange)
	}
	resp := []byte{sid + 0x40, params[0], params[1]}
	return append(resp, record...)
}

func (e *ECU) writeDID(params []byte) []byte {
	sid := uds.ServiceWriteDataByIdentifier
	if len(params) < 3 {
		return negative(sid, uds.NRCIncorrectMessageLength)
	}
	if e.session == uds.SessionDefault {
		return negative(sid, uds.NRCServiceNotSupportedInActiveSession)
	}
	did := uint16(params[0])<<8 | uint16(params[1])
	e.dids[did] = append([]byte(nil), params[2:]...)
	return []byte{sid + 0x40, params[0], params[1]}
}

func (e *ECU) securityAccess(params []byte) []byte {
	sid := uds.ServiceSecurityAccess
	if len(params) < 1 {
		return negative(sid, uds.NRCIncorrectMessageLength)
	}
	level := params[0]
	if level%2 == 1 {
		resp := []byte{sid + 0x40, level}
		if e.unlocked {
			// already unlocked: all-zero seed
			return append(resp, make([]byte, len(e.seed))...)
		}
		return append(resp, e.seed...)
	}
	key := params[1:]
	if len(key) != len(e.seed) {
		return negative(sid, uds.NRCInvalidKey)
	}
	for i, b := range key {
		if b != e.seed[i]^0xFF {
			return negative(sid, uds.NRCInvalidKey)
		}
	}
	e.unlocked = true
	return []byte{sid + 0x40, level}
}

func (e *ECU) readDTCs(params []byte) []byte {
	sid := uds.ServiceReadDTCInformation
	if len(params) < 2 {
		return negative(sid, uds.NRCIncorrectMessageLength)
	}
	if params[0] != 0x02 {
		return negative(sid, uds.NRCSubFunctionNotSupported)
	}
	mask := params[1]
	resp := []byte{sid + 0x40, params[0], 0xFF}
	for _, d := range e.dtcs {
		if d.Status&mask == 0 {
			continue
		}
		resp = append(resp, d.High, d.Middle, d.Low, d.Status)
	}
	return resp
}

func (e *ECU) readPID(params []byte) []byte {
	if len(params) < 1 {
		return negative(0x01, uds.NRCIncorrectMessageLength)
	}
	pid := params[0]
	if pid%0x20 == 0 && pid <= 0x60 {
		return e.supportedPIDs(pid)
	}
	data, ok := e.pidData[pid]
	if !ok {
		return negative(0x01, uds.NRCRequestOutOfRange)
	}
	resp := []byte{0x41, pid}
	return append(resp, data...)
}

func (e *ECU) supportedPIDs(base byte) []byte {
	var mask [4]byte
	for pid := range e.pidData {
		if pid <= base {
			continue
		}
		if pid > base+0x20 {
			// announce the next range so a support walk reaches it
			mask[3] |= 0x01
			continue
		}
		offset := pid - base - 1
		mask[offset/8] |= 0x80 >> (offset % 8)
	}
	return []byte{0x41, base, mask[0], mask[1], mask[2], mask[3]}
}

func (e *ECU) obdDTCs(mode byte, match func(StoredDTC) bool) []byte {
	var pairs []byte
	count := 0
	for _, d := range e.dtcs {
		if !match(d) {
			continue
		}
		pairs = append(pairs, d.High, d.Middle)
		count++
	}
	resp := []byte{mode + 0x40, byte(count)}
	return append(resp, pairs...)
}

func (e *ECU) vehicleInfo(params []byte) []byte {
	if len(params) < 1 || params[0] != 0x02 {
		return negative(0x09, uds.NRCRequestOutOfRange)
	}
	resp := []byte{0x49, 0x02, 0x01}
	return append(resp, e.dids[uds.DIDVIN]...)
}
