package godiag

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/spacetec/godiag/pkg/serialcommand"
	"go.bug.st/serial"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "SerialBridge",
		Description:        "Serial CAN bridge with checksummed command framing",
		RequiresSerialPort: true,
		New:                NewSerialBridge,
	}); err != nil {
		panic(err)
	}
}

// SerialBridge talks to a bridge MCU that tunnels CAN frames over a
// serial port using the serialcommand framing.
type SerialBridge struct {
	BaseAdapter
	port serial.Port
}

func NewSerialBridge(cfg *AdapterConfig) (Adapter, error) {
	return &SerialBridge{
		BaseAdapter: NewBaseAdapter("SerialBridge", cfg),
	}, nil
}

func (sb *SerialBridge) Open(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: sb.cfg.PortBaudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(sb.cfg.Port, mode)
	if err != nil {
		return Connectivity("CONN_REFUSED", fmt.Sprintf("failed to open com port %q", sb.cfg.Port), err)
	}
	p.SetReadTimeout(3 * time.Millisecond)
	p.ResetOutputBuffer()
	p.ResetInputBuffer()
	sb.port = p

	if err := sb.writeCommand(serialcommand.CommandRate, rateBytes(sb.cfg.CANRate)); err != nil {
		p.Close()
		return err
	}
	if err := sb.writeCommand(serialcommand.CommandOpen, nil); err != nil {
		p.Close()
		return err
	}

	go sb.sendManager(ctx)
	go sb.recvManager(ctx)
	return nil
}

func (sb *SerialBridge) Close() error {
	sb.CloseBase()
	if sb.port != nil {
		sb.writeCommand(serialcommand.CommandClose, nil)
		return sb.port.Close()
	}
	return nil
}

func rateBytes(kbit float64) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(kbit*1000))
	return b
}

func (sb *SerialBridge) writeCommand(command byte, data []byte) error {
	buf, err := serialcommand.New(command, data).MarshalBinary()
	if err != nil {
		return Configuration("CFG_BAD_REQUEST", "bridge command too large", err)
	}
	if _, err := sb.port.Write(buf); err != nil {
		return Connectivity("CONN_LOST", "bridge write failed", err)
	}
	return nil
}

// frame payload layout: 4 byte big-endian identifier, 1 flag byte
// (bit0 = extended), then 0..8 data bytes.
func marshalFrame(frame *CANFrame) []byte {
	out := make([]byte, 5, 5+len(frame.Data))
	binary.BigEndian.PutUint32(out, frame.Identifier)
	if frame.Extended {
		out[4] |= 0x01
	}
	return append(out, frame.Data...)
}

func unmarshalFrame(data []byte) (*CANFrame, error) {
	if len(data) < 5 || len(data) > 13 {
		return nil, Parsing("PARSE_SHORT", fmt.Sprintf("bridge frame payload %d bytes", len(data)), nil)
	}
	id := binary.BigEndian.Uint32(data[:4])
	if data[4]&0x01 != 0 {
		return NewExtendedFrame(id, data[5:], Incoming)
	}
	return NewFrame(id, data[5:], Incoming)
}

func (sb *SerialBridge) sendManager(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sb.closeChan:
			return
		case frame := <-sb.sendChan:
			if err := sb.writeCommand(serialcommand.CommandFrame, marshalFrame(frame)); err != nil {
				sb.Fatal(err)
				return
			}
			if sb.cfg.Debug {
				sb.Debug(frame.ColorString())
			}
		}
	}
}

func (sb *SerialBridge) recvManager(ctx context.Context) {
	readBuf := make([]byte, 128)
	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-sb.closeChan:
			return
		default:
		}
		n, err := sb.port.Read(readBuf)
		if err != nil {
			sb.Fatal(Connectivity("CONN_LOST", "bridge read failed", err))
			return
		}
		if n == 0 {
			continue
		}
		pending = append(pending, readBuf[:n]...)
		pending = sb.drain(pending)
	}
}

// drain parses as many complete commands as the buffer holds and
// returns the remainder.
func (sb *SerialBridge) drain(buf []byte) []byte {
	for {
		if len(buf) < 3 {
			return buf
		}
		total := int(buf[1]) + 3
		if len(buf) < total {
			return buf
		}
		var cmd serialcommand.SerialCommand
		if err := cmd.UnmarshalBinary(buf[:total]); err != nil {
			sb.Error(Parsing("PARSE_CHECKSUM", "bridge command rejected", err))
			// resync on the next byte
			buf = buf[1:]
			continue
		}
		buf = buf[total:]
		if cmd.Command != serialcommand.CommandFrame {
			continue
		}
		frame, err := unmarshalFrame(cmd.Data)
		if err != nil {
			sb.Error(err)
			continue
		}
		if !MatchAny(sb.cfg.Filters, frame) {
			continue
		}
		select {
		case sb.recvChan <- frame:
		default:
			sb.Error(ErrDroppedFrame)
		}
	}
}
