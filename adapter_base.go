package godiag

import (
	"log"
	"sync"
)

// BaseAdapter carries the channel plumbing every adapter shares.
// Concrete adapters embed it and run their own send/recv managers.
type BaseAdapter struct {
	name               string
	cfg                *AdapterConfig
	sendChan, recvChan chan *CANFrame

	errOnce sync.Once
	errChan chan error

	evtChan chan Event

	closeOnce sync.Once
	closeChan chan struct{}
}

func NewBaseAdapter(name string, cfg *AdapterConfig) BaseAdapter {
	return BaseAdapter{
		name:      name,
		cfg:       cfg,
		sendChan:  make(chan *CANFrame, 40),
		recvChan:  make(chan *CANFrame, 1024),
		errChan:   make(chan error, 1),
		evtChan:   make(chan Event, 100),
		closeChan: make(chan struct{}),
	}
}

func (base *BaseAdapter) Name() string {
	return base.name
}

// Send returns the channel outgoing frames are written to.
func (base *BaseAdapter) Send() chan<- *CANFrame {
	return base.sendChan
}

// Recv returns the channel incoming frames are read from.
func (base *BaseAdapter) Recv() <-chan *CANFrame {
	return base.recvChan
}

func (base *BaseAdapter) Err() <-chan error {
	return base.errChan
}

func (base *BaseAdapter) Event() <-chan Event {
	return base.evtChan
}

func (base *BaseAdapter) CloseBase() {
	base.closeOnce.Do(func() {
		close(base.closeChan)
	})
}

// Fatal reports an adapter error that ends the session. Only the first
// one wins; later calls are dropped.
func (base *BaseAdapter) Fatal(err error) {
	base.errOnce.Do(func() {
		select {
		case base.errChan <- err:
		default:
			log.Printf("error channel full: %v", err)
		}
	})
}

func (base *BaseAdapter) sendEvent(eventType EventType, details string) {
	select {
	case base.evtChan <- Event{Type: eventType, Details: details}:
	default:
		log.Printf("event channel full: %s", details)
	}
}

func (base *BaseAdapter) Error(err error) {
	base.sendEvent(EventTypeError, err.Error())
}

func (base *BaseAdapter) Warn(warn string) {
	base.sendEvent(EventTypeWarning, warn)
}

func (base *BaseAdapter) Info(info string) {
	base.sendEvent(EventTypeInfo, info)
}

func (base *BaseAdapter) Debug(debug string) {
	base.sendEvent(EventTypeDebug, debug)
}
