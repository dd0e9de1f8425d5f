package godiag

import (
	"context"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "Virtual",
		Description:        "In-memory loopback adapter",
		RequiresSerialPort: false,
		New:                NewVirtual,
	}); err != nil {
		panic(err)
	}
}

// Virtual is an in-memory adapter. Without a responder it loops every
// sent frame back to the receive side; with one, the responder plays
// the role of the bus (see pkg/ecusim).
type Virtual struct {
	BaseAdapter
	responder func(*CANFrame) []*CANFrame
}

func NewVirtual(cfg *AdapterConfig) (Adapter, error) {
	return &Virtual{
		BaseAdapter: NewBaseAdapter("Virtual", cfg),
	}, nil
}

// SetResponder installs the bus simulation. Must be called before Open.
func (v *Virtual) SetResponder(fn func(*CANFrame) []*CANFrame) {
	v.responder = fn
}

// Inject delivers a frame to the receive side as if it arrived off the
// bus, bypassing the responder.
func (v *Virtual) Inject(frame *CANFrame) {
	f := *frame
	f.FrameType = Incoming
	select {
	case v.recvChan <- &f:
	default:
		v.Error(ErrDroppedFrame)
	}
}

func (v *Virtual) Open(ctx context.Context) error {
	go v.sendManager(ctx)
	return nil
}

func (v *Virtual) Close() error {
	v.CloseBase()
	return nil
}

func (v *Virtual) sendManager(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.closeChan:
			return
		case frame := <-v.sendChan:
			if v.responder == nil {
				v.Inject(frame)
				continue
			}
			for _, resp := range v.responder(frame) {
				v.Inject(resp)
			}
		}
	}
}
