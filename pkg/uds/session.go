package uds

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/isotp"
)

const (
	// testerPresentSuppress asks the ECU not to answer the keep-alive.
	testerPresentSuppress byte = 0x80

	defaultPendingTimeout        = 5 * time.Second
	defaultTesterPresentInterval = 2 * time.Second
)

type ClientConfig struct {
	// PendingTimeout caps one exchange end to end, pending waits
	// included.
	PendingTimeout        time.Duration
	TesterPresentInterval time.Duration
	OnEvent               func(string)
}

func (c *ClientConfig) fill() {
	if c.PendingTimeout <= 0 {
		c.PendingTimeout = defaultPendingTimeout
	}
	if c.TesterPresentInterval <= 0 {
		c.TesterPresentInterval = defaultTesterPresentInterval
	}
	if c.OnEvent == nil {
		c.OnEvent = func(string) {}
	}
}

// Client drives one diagnostic session against one ECU. It owns the
// session state machine and the TesterPresent keep-alive; one request
// is in flight at a time.
type Client struct {
	tp  *isotp.Transport
	cfg ClientConfig

	mu              sync.Mutex
	session         Session
	keepAliveCancel context.CancelFunc
}

func NewClient(tp *isotp.Transport, cfg ClientConfig) *Client {
	cfg.fill()
	return &Client{
		tp:      tp,
		cfg:     cfg,
		session: SessionDefault,
	}
}

// Session returns the current logical session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Close ends the session and stops the keep-alive timer.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopKeepAliveLocked()
	c.session = SessionDefault
}

// Request performs one UDS exchange. A ResponsePending negative
// response is not terminal: the ECU has accepted the request and will
// answer later, so the wait continues on the same subscription until
// the real response arrives or the deadline passes. The timeout caps
// the whole exchange including pending waits; 0 uses the configured
// pending timeout.
func (c *Client) Request(ctx context.Context, serviceID byte, params []byte, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.cfg.PendingTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp *Response
	var decodeErr error
	_, err := c.tp.RequestUntil(reqCtx, Encode(serviceID, params), func(raw []byte) bool {
		r, derr := Decode(serviceID, raw)
		if derr != nil {
			decodeErr = derr
			return true
		}
		if r.Pending() {
			c.cfg.OnEvent(fmt.Sprintf("%s: response pending", ServiceName(serviceID)))
			return false
		}
		resp = r
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if !resp.Positive {
		return resp, NegativeResponseError(resp)
	}
	return resp, nil
}

// RequestWithRecovery retries a failed request according to the
// recovery action carried by the error. Non-recoverable errors are
// returned immediately.
func (c *Client) RequestWithRecovery(ctx context.Context, serviceID byte, params []byte, timeout time.Duration) (*Response, error) {
	resp, err := c.Request(ctx, serviceID, params, timeout)
	if err == nil || !godiag.IsRecoverable(err) {
		return resp, err
	}
	opts := append(godiag.RetryOptions(godiag.ActionFor(err)),
		retry.RetryIf(godiag.IsRecoverable),
		retry.Context(ctx),
	)
	err = retry.Do(func() error {
		r, rerr := c.Request(ctx, serviceID, params, timeout)
		if rerr == nil {
			resp = r
		}
		return rerr
	}, opts...)
	return resp, err
}

// DiagnosticSessionControl switches the logical session. Entering any
// non-default session starts the TesterPresent keep-alive so the ECU
// does not drop back to default; returning to the default session
// stops it.
func (c *Client) DiagnosticSessionControl(ctx context.Context, session Session) error {
	if _, err := c.Request(ctx, ServiceDiagnosticSessionControl, []byte{byte(session)}, 0); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.stopKeepAliveLocked()
	if session != SessionDefault {
		c.startKeepAliveLocked()
	}
	return nil
}

// TesterPresent sends an explicit keep-alive and waits for the answer.
func (c *Client) TesterPresent(ctx context.Context) error {
	_, err := c.Request(ctx, ServiceTesterPresent, []byte{0x00}, 0)
	return err
}

// The scheduled keep-alive is fire-and-forget: the suppress bit tells
// the ECU not to respond, so it cannot collide with a pending request's
// response.
func (c *Client) startKeepAliveLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	c.keepAliveCancel = cancel
	interval := c.cfg.TesterPresentInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.tp.Send(ctx, Encode(ServiceTesterPresent, []byte{testerPresentSuppress})); err != nil {
					c.cfg.OnEvent("tester present failed: " + err.Error())
				}
			}
		}
	}()
}

func (c *Client) stopKeepAliveLocked() {
	if c.keepAliveCancel != nil {
		c.keepAliveCancel()
		c.keepAliveCancel = nil
	}
}

// ECUReset requests a reset (0x01 hard, 0x02 key off/on, 0x03 soft).
func (c *Client) ECUReset(ctx context.Context, resetType byte) error {
	_, err := c.Request(ctx, ServiceECUReset, []byte{resetType}, 0)
	return err
}

// ReadDataByIdentifier reads one DID and returns its record data.
func (c *Client) ReadDataByIdentifier(ctx context.Context, did uint16) ([]byte, error) {
	params := make([]byte, 2)
	binary.BigEndian.PutUint16(params, did)
	resp, err := c.Request(ctx, ServiceReadDataByIdentifier, params, 0)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < 2 {
		return nil, godiag.Parsing("PARSE_SHORT", fmt.Sprintf("ReadDataByIdentifier response %d bytes", len(resp.Data)), nil)
	}
	if binary.BigEndian.Uint16(resp.Data[:2]) != did {
		return nil, godiag.Protocol("PROTO_UNEXPECTED_RESPONSE",
			fmt.Sprintf("requested DID 0x%04X, response carries 0x%04X", did, binary.BigEndian.Uint16(resp.Data[:2])), nil)
	}
	return resp.Data[2:], nil
}

// WriteDataByIdentifier writes one DID.
func (c *Client) WriteDataByIdentifier(ctx context.Context, did uint16, record []byte) error {
	params := make([]byte, 2, 2+len(record))
	binary.BigEndian.PutUint16(params, did)
	params = append(params, record...)
	_, err := c.Request(ctx, ServiceWriteDataByIdentifier, params, 0)
	return err
}

// SecurityAccessRequestSeed asks for the seed of an access level (odd
// sub-function). Key derivation is vendor specific and happens above
// this layer.
func (c *Client) SecurityAccessRequestSeed(ctx context.Context, level byte) ([]byte, error) {
	resp, err := c.Request(ctx, ServiceSecurityAccess, []byte{level}, 0)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < 1 {
		return nil, godiag.Parsing("PARSE_SHORT", "security access response without sub-function echo", nil)
	}
	return resp.Data[1:], nil
}

// SecurityAccessSendKey submits the key for an access level (even
// sub-function, requestSeed level + 1).
func (c *Client) SecurityAccessSendKey(ctx context.Context, level byte, key []byte) error {
	params := make([]byte, 0, 1+len(key))
	params = append(params, level)
	params = append(params, key...)
	_, err := c.Request(ctx, ServiceSecurityAccess, params, 0)
	return err
}

// ReadDTCs reads stored trouble codes matching the status mask via
// ReadDTCInformation reportDTCByStatusMask.
func (c *Client) ReadDTCs(ctx context.Context, statusMask byte) ([]DTC, error) {
	resp, err := c.Request(ctx, ServiceReadDTCInformation, []byte{0x02, statusMask}, 0)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < 2 {
		return nil, godiag.Parsing("PARSE_SHORT", fmt.Sprintf("ReadDTCInformation response %d bytes", len(resp.Data)), nil)
	}
	return ParseDTCRecords(resp.Data[2:])
}

// ClearDTCs clears diagnostic information for a DTC group; 0xFFFFFF
// clears everything.
func (c *Client) ClearDTCs(ctx context.Context, group uint32) error {
	params := []byte{byte(group >> 16), byte(group >> 8), byte(group)}
	_, err := c.Request(ctx, ServiceClearDiagnosticInformation, params, 0)
	return err
}
