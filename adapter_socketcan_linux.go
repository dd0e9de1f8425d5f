package godiag

import (
	"context"
	"fmt"

	"github.com/brutella/can"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "SocketCAN",
		Description:        "Linux SocketCAN interface",
		RequiresSerialPort: false,
		New:                NewSocketCAN,
	}); err != nil {
		panic(err)
	}
}

// SocketCAN drives a native linux CAN interface (can0, vcan0, ...)
// named by cfg.Port.
type SocketCAN struct {
	BaseAdapter
	bus *can.Bus
}

func NewSocketCAN(cfg *AdapterConfig) (Adapter, error) {
	return &SocketCAN{
		BaseAdapter: NewBaseAdapter("SocketCAN", cfg),
	}, nil
}

func (a *SocketCAN) Open(ctx context.Context) error {
	bus, err := can.NewBusForInterfaceWithName(a.cfg.Port)
	if err != nil {
		return Connectivity("CONN_REFUSED", fmt.Sprintf("failed to open CAN interface %q", a.cfg.Port), err)
	}
	a.bus = bus
	bus.SubscribeFunc(a.handleFrame)
	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			a.Fatal(Connectivity("CONN_LOST", "SocketCAN bus disconnected", err))
		}
	}()
	go a.sendManager(ctx)
	return nil
}

func (a *SocketCAN) Close() error {
	a.CloseBase()
	if a.bus != nil {
		return a.bus.Disconnect()
	}
	return nil
}

// bit 31 of the raw SocketCAN identifier marks an extended frame
const canEFFFlag = 0x80000000

func (a *SocketCAN) handleFrame(frame can.Frame) {
	extended := frame.ID&canEFFFlag != 0
	id := frame.ID & MaxExtendedID
	if !extended {
		id &= MaxStandardID
	}
	length := int(frame.Length)
	if length > MaxDLC {
		length = MaxDLC
	}
	f := &CANFrame{
		Identifier: id,
		Extended:   extended,
		Data:       append([]byte(nil), frame.Data[:length]...),
		FrameType:  Incoming,
	}
	if !MatchAny(a.cfg.Filters, f) {
		return
	}
	select {
	case a.recvChan <- f:
	default:
		a.Error(ErrDroppedFrame)
	}
}

func (a *SocketCAN) sendManager(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.closeChan:
			return
		case frame := <-a.sendChan:
			out := can.Frame{
				ID:     frame.Identifier,
				Length: uint8(len(frame.Data)),
			}
			if frame.Extended {
				out.ID |= canEFFFlag
			}
			copy(out.Data[:], frame.Data)
			if err := a.bus.Publish(out); err != nil {
				a.Fatal(Connectivity("CONN_LOST", "SocketCAN publish failed", err))
				return
			}
		}
	}
}
