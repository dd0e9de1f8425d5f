package obd2_test

import (
	"context"
	"testing"
	"time"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/ecusim"
	"github.com/spacetec/godiag/pkg/isotp"
	"github.com/spacetec/godiag/pkg/obd2"
	"github.com/spacetec/godiag/pkg/uds"
)

func newTestClient(t *testing.T) (*ecusim.ECU, *obd2.Client) {
	t.Helper()
	ecu := ecusim.New(ecusim.Config{})
	adapter, err := godiag.NewAdapter("Virtual", &godiag.AdapterConfig{})
	if err != nil {
		t.Fatal(err)
	}
	adapter.(*godiag.Virtual).SetResponder(ecu.Responder())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c, err := godiag.NewClient(ctx, adapter)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	tp := isotp.New(c, isotp.Config{TxID: 0x7E0, RxID: 0x7E8, Timeout: time.Second})
	return ecu, obd2.NewClient(tp, time.Second)
}

func TestReadPID(t *testing.T) {
	_, client := newTestClient(t)
	value, err := client.ReadPID(context.Background(), obd2.PIDEngineRPM)
	if err != nil {
		t.Fatal(err)
	}
	if value.Value != 1726 {
		t.Errorf("RPM = %v, want 1726", value.Value)
	}
	if value.Unit != "rpm" {
		t.Errorf("unit = %q", value.Unit)
	}
}

func TestReadPIDUnknown(t *testing.T) {
	_, client := newTestClient(t)
	if _, err := client.ReadPID(context.Background(), obd2.PIDFuelLevel); err == nil {
		t.Fatal("PID the ECU does not carry must fail")
	}
}

func TestSupportedPIDs(t *testing.T) {
	_, client := newTestClient(t)
	pids, err := client.SupportedPIDs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := map[byte]bool{0x05: true, 0x0C: true, 0x0D: true, 0x42: true}
	if len(pids) != len(want) {
		t.Fatalf("SupportedPIDs() = %X, want %d PIDs", pids, len(want))
	}
	for _, pid := range pids {
		if !want[pid] {
			t.Errorf("unexpected PID 0x%02X", pid)
		}
	}
}

func TestStoredAndClearDTCs(t *testing.T) {
	ecu, client := newTestClient(t)
	ctx := context.Background()

	ecu.AddDTC(ecusim.StoredDTC{High: 0x01, Middle: 0x43, Status: uds.StatusConfirmed})
	ecu.AddDTC(ecusim.StoredDTC{High: 0x01, Middle: 0x96, Status: uds.StatusPending})

	stored, err := client.StoredDTCs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0] != "P0143" {
		t.Fatalf("StoredDTCs() = %v", stored)
	}

	pending, err := client.PendingDTCs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0] != "P0196" {
		t.Fatalf("PendingDTCs() = %v", pending)
	}

	if err := client.ClearDTCs(ctx); err != nil {
		t.Fatal(err)
	}
	stored, err = client.StoredDTCs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 0 {
		t.Errorf("%d DTCs survived the clear", len(stored))
	}
}

func TestVIN(t *testing.T) {
	_, client := newTestClient(t)
	vin, err := client.VIN(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if vin != "1G1ZT53826F109149" {
		t.Errorf("VIN = %q", vin)
	}
}

func TestMonitor(t *testing.T) {
	_, client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := make(chan obd2.Sample, 16)
	monitor := obd2.NewMonitor(client, obd2.MonitorConfig{
		PIDs:     []byte{obd2.PIDEngineRPM, obd2.PIDCoolantTemp},
		Interval: 10 * time.Millisecond,
		OnSample: func(s obd2.Sample) {
			select {
			case samples <- s:
			default:
			}
		},
	})
	monitor.Start(ctx)
	defer monitor.Close()

	deadline := time.After(2 * time.Second)
	seen := map[byte]bool{}
	for len(seen) < 2 {
		select {
		case s := <-samples:
			seen[s.PID] = true
		case <-deadline:
			t.Fatalf("saw samples for %d PIDs before the deadline", len(seen))
		}
	}

	if sample, ok := monitor.Latest(obd2.PIDEngineRPM); !ok {
		t.Error("Latest() has no RPM sample")
	} else if sample.Value.Value != 1726 {
		t.Errorf("cached RPM = %v", sample.Value.Value)
	}
	if values := monitor.Values(); len(values) == 0 {
		t.Error("Values() snapshot empty")
	}
}
