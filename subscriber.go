package godiag

import (
	"context"
	"sync"
	"time"
)

// Subscriber receives the incoming frames matching its identifier set.
// A subscriber with no identifiers sees every frame.
type Subscriber struct {
	cl           *Client
	identifiers  map[uint32]struct{}
	filterCount  int
	responseChan chan *CANFrame
	closeOnce    sync.Once
}

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.cl.fh.unregisterSubscriber(s)
	})
}

func (s *Subscriber) Chan() <-chan *CANFrame {
	return s.responseChan
}

// Wait blocks for the next matching frame, a timeout or cancellation.
// Timeouts come back as typed connectivity errors so callers can route
// them through the recovery policy.
func (s *Subscriber) Wait(ctx context.Context, timeout time.Duration) (*CANFrame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, Connectivity("CONN_TIMEOUT", "wait aborted", ctx.Err())
	case <-timer.C:
		return nil, Connectivity("CONN_TIMEOUT", "timeout waiting for frame", nil)
	case frame, ok := <-s.responseChan:
		if !ok {
			return nil, ErrResponseChannelClosed
		}
		return frame, nil
	}
}
