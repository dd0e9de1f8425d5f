// Package serialcommand implements the framing used by the scan-tool's
// serial bridge adapters: a command byte, a length byte, the payload
// and a one-byte additive checksum over everything preceding it.
package serialcommand

import "fmt"

const (
	// Commands understood by the bridge firmware.
	CommandFrame   byte = 'F' // CAN frame in either direction
	CommandFilter  byte = 'f' // set identifier filter
	CommandRate    byte = 'r' // set CAN bitrate
	CommandOpen    byte = 'O' // open the bus
	CommandClose   byte = 'C' // close the bus
	CommandVersion byte = 'v' // firmware version query
)

type SerialCommand struct {
	Command byte
	Data    []byte
}

func New(command byte, data []byte) *SerialCommand {
	return &SerialCommand{
		Command: command,
		Data:    data,
	}
}

func (sc *SerialCommand) MarshalBinary() ([]byte, error) {
	if len(sc.Data) > 255 {
		return nil, fmt.Errorf("payload size %d exceeds one length byte", len(sc.Data))
	}
	buf := make([]byte, 0, len(sc.Data)+3)
	buf = append(buf, sc.Command, byte(len(sc.Data)))
	buf = append(buf, sc.Data...)
	buf = append(buf, Checksum(buf))
	return buf, nil
}

func (sc *SerialCommand) UnmarshalBinary(data []byte) error {
	if len(data) < 3 {
		return fmt.Errorf("command too short: %d bytes", len(data))
	}
	size := int(data[1])
	if len(data) != size+3 {
		return fmt.Errorf("invalid command size: have %d want %d", len(data), size+3)
	}
	if data[len(data)-1] != Checksum(data[:len(data)-1]) {
		return fmt.Errorf("checksum validation failed")
	}
	sc.Command = data[0]
	sc.Data = data[2 : 2+size]
	return nil
}

// Checksum is the byte sum of data, truncated to 8 bits.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Verify reports whether the last byte of buf is the checksum of the
// bytes before it.
func Verify(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	return buf[len(buf)-1] == Checksum(buf[:len(buf)-1])
}

// AppendChecksum returns buf with its checksum appended.
func AppendChecksum(buf []byte) []byte {
	return append(buf, Checksum(buf))
}
