package isotp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spacetec/godiag"
)

// Config describes one logical ISO-TP channel: the identifier pair and
// the pacing we advertise when receiving.
type Config struct {
	TxID           uint32
	RxID           uint32
	Extended       bool
	Timeout        time.Duration // per-wait timeout, 0 = 1s
	BlockSize      byte          // advertised to the sender, 0 = unlimited
	SeparationTime time.Duration // advertised minimum gap between CFs
	WaitLimit      int           // tolerated consecutive FC Wait frames, 0 = 3
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return time.Second
	}
	return c.Timeout
}

func (c *Config) waitLimit() int {
	if c.WaitLimit <= 0 {
		return 3
	}
	return c.WaitLimit
}

// Transport runs ISO-TP exchanges over a CAN client. One request is in
// flight at a time per channel; UDS does not interleave multi-frame
// exchanges on one identifier pair.
type Transport struct {
	c   *godiag.Client
	cfg Config
	mu  sync.Mutex
}

func New(c *godiag.Client, cfg Config) *Transport {
	return &Transport{c: c, cfg: cfg}
}

func (t *Transport) Config() Config {
	return t.cfg
}

// Request sends a payload and waits for the reassembled response.
func (t *Transport) Request(ctx context.Context, payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := t.c.Subscribe(ctx, t.cfg.RxID)
	defer sub.Close()
	if err := t.send(ctx, sub, payload); err != nil {
		return nil, err
	}
	return t.receive(ctx, sub)
}

// RequestUntil sends a payload and keeps receiving messages until
// accept returns true. The subscription stays open across interim
// messages, so a final response following an interim one cannot slip
// past between two waits.
func (t *Transport) RequestUntil(ctx context.Context, payload []byte, accept func([]byte) bool) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := t.c.Subscribe(ctx, t.cfg.RxID)
	defer sub.Close()
	if err := t.send(ctx, sub, payload); err != nil {
		return nil, err
	}
	for {
		msg, err := t.receive(ctx, sub)
		if err != nil {
			return nil, err
		}
		if accept(msg) {
			return msg, nil
		}
	}
}

// Send transmits a payload without waiting for a response, still
// honoring flow control for multi-frame payloads.
func (t *Transport) Send(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := t.c.Subscribe(ctx, t.cfg.RxID)
	defer sub.Close()
	return t.send(ctx, sub, payload)
}

// Receive waits for one unsolicited message on the channel.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub := t.c.Subscribe(ctx, t.cfg.RxID)
	defer sub.Close()
	return t.receive(ctx, sub)
}

func (t *Transport) sendChunk(chunk []byte) error {
	var frame *godiag.CANFrame
	var err error
	if t.cfg.Extended {
		frame, err = godiag.NewExtendedFrame(t.cfg.TxID, chunk, godiag.Outgoing)
	} else {
		frame, err = godiag.NewFrame(t.cfg.TxID, chunk, godiag.Outgoing)
	}
	if err != nil {
		return err
	}
	return t.c.Send(frame)
}

func (t *Transport) send(ctx context.Context, sub *godiag.Subscriber, payload []byte) error {
	chunks, err := Segment(payload)
	if err != nil {
		return err
	}
	if len(chunks) == 1 {
		return t.sendChunk(chunks[0])
	}

	// First Frame, then suspend until the receiver grants credit.
	if err := t.sendChunk(chunks[0]); err != nil {
		return err
	}
	fc, err := t.awaitFlowControl(ctx, sub)
	if err != nil {
		return err
	}

	var sent byte
	for _, chunk := range chunks[1:] {
		if fc.BlockSize > 0 && sent == fc.BlockSize {
			if fc, err = t.awaitFlowControl(ctx, sub); err != nil {
				return err
			}
			sent = 0
		}
		if fc.SeparationTime > 0 {
			timer := time.NewTimer(fc.SeparationTime)
			select {
			case <-ctx.Done():
				timer.Stop()
				return godiag.Connectivity("CONN_TIMEOUT", "send aborted", ctx.Err())
			case <-timer.C:
			}
		}
		if err := t.sendChunk(chunk); err != nil {
			return err
		}
		sent++
	}
	return nil
}

// awaitFlowControl blocks for the next flow control frame, tolerating
// a bounded number of Wait frames. Every other frame type on the
// channel is ignored while transmission is suspended.
func (t *Transport) awaitFlowControl(ctx context.Context, sub *godiag.Subscriber) (FlowControl, error) {
	waits := 0
	for {
		frame, err := sub.Wait(ctx, t.cfg.timeout())
		if err != nil {
			return FlowControl{}, godiag.Connectivity("CONN_FLOW_CONTROL", "timeout waiting for flow control", err)
		}
		if !IsFlowControl(frame.Data) {
			continue
		}
		fc, err := ParseFlowControl(frame.Data)
		if err != nil {
			return FlowControl{}, err
		}
		switch fc.Status {
		case ContinueToSend:
			return fc, nil
		case Wait:
			waits++
			if waits > t.cfg.waitLimit() {
				return FlowControl{}, godiag.Connectivity("CONN_FLOW_CONTROL", fmt.Sprintf("receiver still busy after %d wait frames", waits), nil)
			}
		case Overflow:
			return FlowControl{}, godiag.Hardware("HW_BUFFER_OVERFLOW", "receiver reports buffer overflow", nil)
		}
	}
}

func (t *Transport) receive(ctx context.Context, sub *godiag.Subscriber) ([]byte, error) {
	r := NewReassembler()
	var sinceFC byte
	for {
		frame, err := sub.Wait(ctx, t.cfg.timeout())
		if err != nil {
			r.Reset()
			return nil, err
		}
		if IsFlowControl(frame.Data) {
			continue
		}
		firstFrame := r.State() == Idle && len(frame.Data) > 0 && frame.Data[0]&0xF0 == pciFirstFrame
		done, err := r.Process(frame.Data)
		if err != nil {
			r.Reset()
			return nil, err
		}
		if done {
			return r.Payload()
		}
		if firstFrame {
			if err := t.sendFlowControl(ContinueToSend); err != nil {
				r.Reset()
				return nil, err
			}
			sinceFC = 0
			continue
		}
		if t.cfg.BlockSize > 0 && r.State() == Receiving {
			sinceFC++
			if sinceFC == t.cfg.BlockSize {
				if err := t.sendFlowControl(ContinueToSend); err != nil {
					r.Reset()
					return nil, err
				}
				sinceFC = 0
			}
		}
	}
}

func (t *Transport) sendFlowControl(status FlowStatus) error {
	fc := FlowControl{
		Status:         status,
		BlockSize:      t.cfg.BlockSize,
		SeparationTime: t.cfg.SeparationTime,
	}
	return t.sendChunk(fc.Bytes())
}
