package godiag

import (
	"context"
	"time"
)

// Client ties an adapter to the frame fan-out and is what the protocol
// layers talk to.
type Client struct {
	adapter Adapter
	fh      *handler
}

// NewClient opens the adapter and starts the frame handler. The context
// bounds the lifetime of the handler goroutine.
func NewClient(ctx context.Context, adapter Adapter) (*Client, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	c := &Client{
		adapter: adapter,
		fh:      newHandler(adapter),
	}
	if err := adapter.Open(ctx); err != nil {
		return nil, Connectivity("CONN_REFUSED", "failed to open adapter "+adapter.Name(), err)
	}
	go c.fh.run(ctx)
	return c, nil
}

func (c *Client) Adapter() Adapter {
	return c.adapter
}

func (c *Client) Close() error {
	c.fh.Close()
	return c.adapter.Close()
}

// Send queues a frame on the adapter. ErrSendTimeout means the adapter
// stopped draining its send channel.
func (c *Client) Send(frame *CANFrame) error {
	select {
	case c.adapter.Send() <- frame:
		return nil
	case <-time.After(5 * time.Second):
		return Connectivity("CONN_LOST", "adapter send queue stalled", ErrSendTimeout)
	}
}

// SendFrame builds and sends a standard 11-bit frame.
func (c *Client) SendFrame(identifier uint32, data []byte, frameType CANFrameType) error {
	frame, err := NewFrame(identifier, data, frameType)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Subscribe registers interest in the given identifiers. No
// identifiers means all frames. Close the subscriber when done.
func (c *Client) Subscribe(ctx context.Context, identifiers ...uint32) *Subscriber {
	sub := &Subscriber{
		cl:           c,
		identifiers:  make(map[uint32]struct{}, len(identifiers)),
		filterCount:  len(identifiers),
		responseChan: make(chan *CANFrame, 40),
	}
	for _, id := range identifiers {
		sub.identifiers[id] = struct{}{}
	}
	c.fh.registerSubscriber(sub)
	return sub
}

// SendAndWait sends a frame and blocks for the first response carrying
// one of the given identifiers.
func (c *Client) SendAndWait(ctx context.Context, frame *CANFrame, timeout time.Duration, identifiers ...uint32) (*CANFrame, error) {
	sub := c.Subscribe(ctx, identifiers...)
	defer sub.Close()
	if err := c.Send(frame); err != nil {
		return nil, err
	}
	return sub.Wait(ctx, timeout)
}
