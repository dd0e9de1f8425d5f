// Package passthru models the SAE J2534 PassThru call surface. The
// engine programs devices exclusively through the Device interface;
// loading the vendor library and binding its symbols is platform glue
// that lives outside this module.
package passthru

// Protocol IDs
const (
	J1850VPW     = 1
	J1850PWM     = 2
	ISO9141      = 3
	ISO14230     = 4
	CAN          = 5
	ISO15765     = 6
	SCI_A_ENGINE = 7
	SCI_A_TRANS  = 8
	SCI_B_ENGINE = 9
	SCI_B_TRANS  = 10
)

// Filter types for StartMsgFilter
const (
	PASS_FILTER         = 0x01
	BLOCK_FILTER        = 0x02
	FLOW_CONTROL_FILTER = 0x03
)

// Connect flags
const (
	CAN_29BIT_ID        = 0x0100
	ISO9141_NO_CHECKSUM = 0x0200
	CAN_ID_BOTH         = 0x0800
)

// Common ioctl IDs
const (
	GET_CONFIG        = 0x01
	SET_CONFIG        = 0x02
	READ_VBATT        = 0x03
	CLEAR_TX_BUFFER   = 0x07
	CLEAR_RX_BUFFER   = 0x08
	CLEAR_MSG_FILTERS = 0x0A
)

// Msg is the wire structure passed to ReadMsgs/WriteMsgs. Layout
// matches the J2534-1 PASSTHRU_MSG definition.
type Msg struct {
	ProtocolID     uint32
	RxStatus       uint32
	TxFlags        uint32
	Timestamp      uint32
	DataSize       uint32
	ExtraDataIndex uint32
	Data           [4128]byte
}

// Device is the PassThru call contract. Every method returns the raw
// J2534 status code; use CheckError to translate it.
type Device interface {
	Open(name string, deviceID *uint32) error
	Close(deviceID uint32) error
	Connect(deviceID, protocolID, flags, baudRate uint32, channelID *uint32) error
	Disconnect(channelID uint32) error
	ReadMsgs(channelID uint32, msgs *Msg, numMsgs *uint32, timeoutMs uint32) error
	WriteMsgs(channelID uint32, msgs *Msg, numMsgs *uint32, timeoutMs uint32) error
	StartMsgFilter(channelID, filterType uint32, mask, pattern, flowControl *Msg, filterID *uint32) error
	StopMsgFilter(channelID, filterID uint32) error
	Ioctl(channelID, ioctlID uint32, input, output []byte) error
	ReadVersion(deviceID uint32) (firmware, dll, api string, err error)
	GetLastError() (string, error)
}
