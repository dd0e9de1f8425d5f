package uds

import (
	"fmt"

	"github.com/spacetec/godiag"
)

// Request is a UDS request: service ID plus parameter bytes.
type Request struct {
	ServiceID byte
	Payload   []byte
}

// Bytes serializes the request for the transport layer.
func (r Request) Bytes() []byte {
	out := make([]byte, 0, len(r.Payload)+1)
	out = append(out, r.ServiceID)
	return append(out, r.Payload...)
}

// Encode builds the wire form of a request.
func Encode(serviceID byte, params []byte) []byte {
	return Request{ServiceID: serviceID, Payload: params}.Bytes()
}

// Response is either a positive response (service ID echoed +0x40) or
// a negative one carrying the NRC.
type Response struct {
	Positive bool
	// ServiceID is the response service ID for positive responses and
	// the rejected request service ID for negative ones.
	ServiceID byte
	NRC       byte
	Data      []byte
}

func (r *Response) String() string {
	if r.Positive {
		return fmt.Sprintf("positive %s, %d data bytes", ServiceName(r.ServiceID-positiveResponseOffset), len(r.Data))
	}
	return fmt.Sprintf("negative %s: %s", ServiceName(r.ServiceID), NRCName(r.NRC))
}

// Pending reports whether the response is the non-terminal
// RequestCorrectlyReceivedResponsePending negative response. The
// caller must keep waiting for the real response to the same request.
func (r *Response) Pending() bool {
	return !r.Positive && r.NRC == NRCResponsePending
}

// Decode parses a raw UDS response for a request with the given
// service ID.
//
// A leading 0x7F makes it a negative response and requires at least 3
// bytes. Anything else must echo requestedService+0x40 or the exchange
// failed at the protocol level.
func Decode(requestedService byte, raw []byte) (*Response, error) {
	if len(raw) == 0 {
		return nil, godiag.Parsing("PARSE_EMPTY", "empty UDS response", nil)
	}
	if raw[0] == negativeResponseID {
		if len(raw) < 3 {
			return nil, godiag.Parsing("PARSE_SHORT", fmt.Sprintf("negative response truncated at %d bytes", len(raw)), nil)
		}
		return &Response{
			Positive:  false,
			ServiceID: raw[1],
			NRC:       raw[2],
		}, nil
	}
	if raw[0] != requestedService+positiveResponseOffset {
		return nil, godiag.Protocol("PROTO_UNEXPECTED_RESPONSE",
			fmt.Sprintf("expected response 0x%02X for %s, got 0x%02X",
				requestedService+positiveResponseOffset, ServiceName(requestedService), raw[0]), nil)
	}
	return &Response{
		Positive:  true,
		ServiceID: raw[0],
		Data:      raw[1:],
	}, nil
}
