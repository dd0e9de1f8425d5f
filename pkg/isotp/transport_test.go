package isotp

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spacetec/godiag"
)

const (
	testTxID = 0x7E0
	testRxID = 0x7E8
)

// echoPeer plays the ECU side of the channel on a Virtual adapter:
// reassembles requests, grants flow control and answers through the
// given function.
type echoPeer struct {
	rs      *Reassembler
	respond func([]byte) []byte
}

func (p *echoPeer) handle(f *godiag.CANFrame) []*godiag.CANFrame {
	if f.Identifier != testTxID || IsFlowControl(f.Data) {
		return nil
	}
	var out []*godiag.CANFrame
	if len(f.Data) > 0 && f.Data[0]&0xF0 == 0x10 {
		fcFrame, err := godiag.NewFrame(testRxID, FlowControl{Status: ContinueToSend}.Bytes(), godiag.Outgoing)
		if err != nil {
			return nil
		}
		out = append(out, fcFrame)
	}
	done, err := p.rs.Process(f.Data)
	if err != nil {
		p.rs.Reset()
		return out
	}
	if !done {
		return out
	}
	request, _ := p.rs.Payload()
	p.rs.Reset()
	frames, err := Frames(testRxID, false, p.respond(request))
	if err != nil {
		return out
	}
	return append(out, frames...)
}

func newTestTransport(t *testing.T, responder func(*godiag.CANFrame) []*godiag.CANFrame) *Transport {
	t.Helper()
	adapter, err := godiag.NewAdapter("Virtual", &godiag.AdapterConfig{})
	if err != nil {
		t.Fatal(err)
	}
	adapter.(*godiag.Virtual).SetResponder(responder)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c, err := godiag.NewClient(ctx, adapter)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return New(c, Config{TxID: testTxID, RxID: testRxID, Timeout: time.Second})
}

func TestTransportSingleFrameRequest(t *testing.T) {
	peer := &echoPeer{rs: NewReassembler(), respond: func(req []byte) []byte {
		if !bytes.Equal(req, []byte{0x3E, 0x00}) {
			t.Errorf("peer saw request %X", req)
		}
		return []byte{0x7E, 0x00}
	}}
	tp := newTestTransport(t, peer.handle)

	resp, err := tp.Request(context.Background(), []byte{0x3E, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp, []byte{0x7E, 0x00}) {
		t.Errorf("response = %X", resp)
	}
}

func TestTransportMultiFrameBothDirections(t *testing.T) {
	request := make([]byte, 100)
	response := make([]byte, 120)
	for i := range request {
		request[i] = byte(i)
	}
	for i := range response {
		response[i] = byte(255 - i)
	}

	peer := &echoPeer{rs: NewReassembler(), respond: func(req []byte) []byte {
		if !bytes.Equal(req, request) {
			t.Errorf("peer reassembled %d bytes, want %d", len(req), len(request))
		}
		return response
	}}
	tp := newTestTransport(t, peer.handle)

	resp, err := tp.Request(context.Background(), request)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp, response) {
		t.Errorf("response mismatch: %d bytes, want %d", len(resp), len(response))
	}
}

func TestTransportFlowControlOverflow(t *testing.T) {
	responder := func(f *godiag.CANFrame) []*godiag.CANFrame {
		if len(f.Data) > 0 && f.Data[0]&0xF0 == 0x10 {
			fcFrame, _ := godiag.NewFrame(testRxID, FlowControl{Status: Overflow}.Bytes(), godiag.Outgoing)
			return []*godiag.CANFrame{fcFrame}
		}
		return nil
	}
	tp := newTestTransport(t, responder)

	_, err := tp.Request(context.Background(), make([]byte, 50))
	if err == nil {
		t.Fatal("overflow flow control must abort the transfer")
	}
	if godiag.ClassifyCategory(err) != godiag.CategoryHardware {
		t.Errorf("error category = %v, want hardware", godiag.ClassifyCategory(err))
	}
	if godiag.ActionFor(err) != godiag.ResetAdapter {
		t.Errorf("error action = %v, want reset adapter", godiag.ActionFor(err))
	}
}

func TestTransportFlowControlTimeout(t *testing.T) {
	// peer never grants flow control
	tp := newTestTransport(t, func(*godiag.CANFrame) []*godiag.CANFrame { return nil })
	tp.cfg.Timeout = 50 * time.Millisecond

	_, err := tp.Request(context.Background(), make([]byte, 50))
	if err == nil {
		t.Fatal("missing flow control must abort the transfer")
	}
	if godiag.ClassifyCategory(err) != godiag.CategoryConnectivity {
		t.Errorf("error category = %v, want connectivity", godiag.ClassifyCategory(err))
	}
}

func TestTransportWaitLimit(t *testing.T) {
	responder := func(f *godiag.CANFrame) []*godiag.CANFrame {
		if len(f.Data) > 0 && f.Data[0]&0xF0 == 0x10 {
			fcFrame, _ := godiag.NewFrame(testRxID, FlowControl{Status: Wait}.Bytes(), godiag.Outgoing)
			// a wait burst beyond the tolerated limit
			return []*godiag.CANFrame{fcFrame, fcFrame, fcFrame, fcFrame, fcFrame}
		}
		return nil
	}
	tp := newTestTransport(t, responder)
	tp.cfg.WaitLimit = 2

	_, err := tp.Request(context.Background(), make([]byte, 50))
	if err == nil {
		t.Fatal("endless wait frames must abort the transfer")
	}
}

func TestTransportResponseTimeout(t *testing.T) {
	// single frame request goes out, nothing ever comes back
	tp := newTestTransport(t, func(*godiag.CANFrame) []*godiag.CANFrame { return nil })
	tp.cfg.Timeout = 50 * time.Millisecond

	_, err := tp.Request(context.Background(), []byte{0x3E, 0x00})
	if err == nil {
		t.Fatal("silent peer must time the request out")
	}
	if godiag.ActionFor(err) != godiag.IncreaseTimeout {
		t.Errorf("timeout action = %v, want increase timeout", godiag.ActionFor(err))
	}
}
