package passthru

import (
	"errors"
	"testing"
)

func TestCheckError(t *testing.T) {
	if err := CheckError(STATUS_NOERROR); err != nil {
		t.Fatalf("STATUS_NOERROR produced %v", err)
	}

	tests := []struct {
		name string
		ret  uint32
		text string
	}{
		{"timeout", ERR_TIMEOUT, "PassThru read or write timeout"},
		{"buffer empty", ERR_BUFFER_EMPTY, "protocol message buffer empty"},
		{"not connected", ERR_DEVICE_NOT_CONNECTED, "unable to communicate with PassThru device"},
		{"failed", ERR_FAILED, "PassThru call failed"},
		{"unknown status", 0xFFFF, "unknown PassThru status 65535"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckError(tt.ret)
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("CheckError(%d) returned %T", tt.ret, err)
			}
			if se.Status != tt.ret {
				t.Errorf("status = %d, want %d", se.Status, tt.ret)
			}
			if se.Error() != tt.text {
				t.Errorf("message = %q, want %q", se.Error(), tt.text)
			}
		})
	}
}
