package obd2

import (
	"context"
	"fmt"
	"time"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/isotp"
	"github.com/spacetec/godiag/pkg/uds"
)

const defaultTimeout = time.Second

// Client speaks J1979 over an ISO-TP channel.
type Client struct {
	tp      *isotp.Transport
	timeout time.Duration
}

func NewClient(tp *isotp.Transport, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{tp: tp, timeout: timeout}
}

func (c *Client) query(ctx context.Context, mode byte, params ...byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.tp.Request(reqCtx, append([]byte{mode}, params...))
	if err != nil {
		return nil, err
	}
	resp, err := uds.Decode(mode, raw)
	if err != nil {
		return nil, err
	}
	if !resp.Positive {
		return nil, uds.NegativeResponseError(resp)
	}
	return resp.Data, nil
}

// ReadPID queries one mode 01 PID and decodes it.
func (c *Client) ReadPID(ctx context.Context, pid byte) (Value, error) {
	data, err := c.query(ctx, ModeCurrentData, pid)
	if err != nil {
		return Value{}, err
	}
	if len(data) < 1 || data[0] != pid {
		return Value{}, godiag.Protocol("PROTO_UNEXPECTED_RESPONSE",
			fmt.Sprintf("requested PID 0x%02X, response carries different PID", pid), nil)
	}
	return DecodePID(pid, data[1:])
}

// MonitorStatus reads PID 0x01 (MIL state and stored code count).
func (c *Client) MonitorStatus(ctx context.Context) (MonitorStatus, error) {
	data, err := c.query(ctx, ModeCurrentData, PIDMonitorStatus)
	if err != nil {
		return MonitorStatus{}, err
	}
	if len(data) < 1 {
		return MonitorStatus{}, godiag.Parsing("PARSE_EMPTY", "empty monitor status response", nil)
	}
	return DecodeMonitorStatus(data[1:])
}

// SupportedPIDs walks the support bitmasks and returns every PID the
// ECU declares. The walk stops at the first range whose mask does not
// announce the next one.
func (c *Client) SupportedPIDs(ctx context.Context) ([]byte, error) {
	var out []byte
	for base := byte(0x00); ; base += 0x20 {
		data, err := c.query(ctx, ModeCurrentData, base)
		if err != nil {
			return nil, err
		}
		if len(data) < 1 {
			return nil, godiag.Parsing("PARSE_EMPTY", "empty support bitmask response", nil)
		}
		pids, err := DecodeSupported(base, data[1:])
		if err != nil {
			return nil, err
		}
		next := false
		for _, pid := range pids {
			if pid == base+0x20 {
				next = true
				continue
			}
			out = append(out, pid)
		}
		if !next || base == 0x60 {
			return out, nil
		}
	}
}

// StoredDTCs reads confirmed trouble codes (mode 03).
func (c *Client) StoredDTCs(ctx context.Context) ([]string, error) {
	data, err := c.query(ctx, ModeStoredDTCs)
	if err != nil {
		return nil, err
	}
	return DecodeDTCList(data)
}

// PendingDTCs reads codes detected this drive cycle (mode 07).
func (c *Client) PendingDTCs(ctx context.Context) ([]string, error) {
	data, err := c.query(ctx, ModePendingDTCs)
	if err != nil {
		return nil, err
	}
	return DecodeDTCList(data)
}

// PermanentDTCs reads codes only the ECU itself can clear (mode 0A).
func (c *Client) PermanentDTCs(ctx context.Context) ([]string, error) {
	data, err := c.query(ctx, ModePermanentDTCs)
	if err != nil {
		return nil, err
	}
	return DecodeDTCList(data)
}

// ClearDTCs clears codes and freeze frames (mode 04). The MIL goes out
// once the readiness monitors rerun.
func (c *Client) ClearDTCs(ctx context.Context) error {
	_, err := c.query(ctx, ModeClearDTCs)
	return err
}

// VIN reads the vehicle identification number (mode 09 PID 02).
func (c *Client) VIN(ctx context.Context) (string, error) {
	data, err := c.query(ctx, ModeVehicleInfo, 0x02)
	if err != nil {
		return "", err
	}
	// infotype echo + record count precede the 17 characters
	if len(data) < 2+17 {
		return "", godiag.Parsing("PARSE_SHORT",
			fmt.Sprintf("VIN response %d bytes", len(data)), nil)
	}
	return uds.DecodeVIN(data[len(data)-17:])
}
