package obd2

import (
	"fmt"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/uds"
)

// DecodeDTCList parses the payload of a mode 03/07/0A response: a
// count byte followed by two-byte trouble codes. All-zero pairs are
// padding and are skipped.
func DecodeDTCList(data []byte) ([]string, error) {
	if len(data) < 1 {
		return nil, godiag.Parsing("PARSE_EMPTY", "empty trouble code response", nil)
	}
	count := int(data[0])
	data = data[1:]
	if len(data) < count*2 {
		return nil, godiag.Parsing("PARSE_SHORT",
			fmt.Sprintf("response declares %d codes but carries %d bytes", count, len(data)), nil)
	}
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code := uds.DecodeDTC(data[i*2], data[i*2+1])
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}
