package uds_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/ecusim"
	"github.com/spacetec/godiag/pkg/isotp"
	"github.com/spacetec/godiag/pkg/uds"
)

func newTestSession(t *testing.T, cfg uds.ClientConfig) (*ecusim.ECU, *uds.Client) {
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
	session := uds.NewClient(tp, cfg)
	t.Cleanup(session.Close)
	return ecu, session
}

func TestTesterPresent(t *testing.T) {
	_, session := newTestSession(t, uds.ClientConfig{})
	if err := session.TesterPresent(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestDiagnosticSessionControl(t *testing.T) {
	ecu, session := newTestSession(t, uds.ClientConfig{})
	ctx := context.Background()

	if err := session.DiagnosticSessionControl(ctx, uds.SessionExtended); err != nil {
		t.Fatal(err)
	}
	if session.Session() != uds.SessionExtended {
		t.Errorf("client session = %v, want extended", session.Session())
	}
	if ecu.Session() != uds.SessionExtended {
		t.Errorf("ECU session = %v, want extended", ecu.Session())
	}

	if err := session.DiagnosticSessionControl(ctx, uds.SessionDefault); err != nil {
		t.Fatal(err)
	}
	if session.Session() != uds.SessionDefault {
		t.Errorf("client session = %v, want default", session.Session())
	}
}

func TestKeepAliveDoesNotDisturbRequests(t *testing.T) {
	ecu, session := newTestSession(t, uds.ClientConfig{TesterPresentInterval: 20 * time.Millisecond})
	ctx := context.Background()

	if err := session.DiagnosticSessionControl(ctx, uds.SessionExtended); err != nil {
		t.Fatal(err)
	}
	// let several keep-alives fire, then talk over the same channel
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if _, err := session.ReadDataByIdentifier(ctx, uds.DIDECUSerialNumber); err != nil {
			t.Fatalf("request %d with keep-alive running: %v", i, err)
		}
	}
	if ecu.Session() != uds.SessionExtended {
		t.Error("ECU dropped out of the extended session")
	}
}

func TestReadDataByIdentifier(t *testing.T) {
	_, session := newTestSession(t, uds.ClientConfig{})
	record, err := session.ReadDataByIdentifier(context.Background(), uds.DIDVIN)
	if err != nil {
		t.Fatal(err)
	}
	vin, err := uds.DecodeVIN(record)
	if err != nil {
		t.Fatal(err)
	}
	if vin != "1G1ZT53826F109149" {
		t.Errorf("VIN = %q", vin)
	}
}

func TestReadDataByIdentifierUnknownDID(t *testing.T) {
	_, session := newTestSession(t, uds.ClientConfig{})
	_, err := session.ReadDataByIdentifier(context.Background(), 0xDEAD)
	if err == nil {
		t.Fatal("unknown DID must fail")
	}
	if godiag.ClassifyCategory(err) != godiag.CategoryProtocol {
		t.Errorf("error category = %v, want protocol", godiag.ClassifyCategory(err))
	}
}

func TestReadDataByIdentifierMultiFrame(t *testing.T) {
	ecu, session := newTestSession(t, uds.ClientConfig{})
	record := make([]byte, 100)
	for i := range record {
		record[i] = byte(i)
	}
	ecu.SetDID(0xF1A0, record)

	got, err := session.ReadDataByIdentifier(context.Background(), 0xF1A0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, record) {
		t.Errorf("long record mismatch: %d bytes, want %d", len(got), len(record))
	}
}

func TestWriteDataByIdentifier(t *testing.T) {
	_, session := newTestSession(t, uds.ClientConfig{})
	ctx := context.Background()

	err := session.WriteDataByIdentifier(ctx, 0xF1A1, []byte{0x01})
	if err == nil {
		t.Fatal("write in default session must be rejected")
	}
	if godiag.IsRecoverable(err) {
		t.Error("not-supported-in-session is final")
	}

	if err := session.DiagnosticSessionControl(ctx, uds.SessionExtended); err != nil {
		t.Fatal(err)
	}
	if err := session.WriteDataByIdentifier(ctx, 0xF1A1, []byte{0xAB, 0xCD}); err != nil {
		t.Fatal(err)
	}
	got, err := session.ReadDataByIdentifier(ctx, 0xF1A1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0xAB, 0xCD}) {
		t.Errorf("read back = %X", got)
	}
}

func TestResponsePendingLoop(t *testing.T) {
	pendings := 0
	ecu, session := newTestSession(t, uds.ClientConfig{
		OnEvent: func(string) { pendings++ },
	})
	ecu.RespondPending(uds.ServiceReadDataByIdentifier, 2)

	record, err := session.ReadDataByIdentifier(context.Background(), uds.DIDECUSoftwareVersion)
	if err != nil {
		t.Fatal(err)
	}
	if string(record) != "1.0.0" {
		t.Errorf("record = %q", record)
	}
	if pendings != 2 {
		t.Errorf("saw %d pending notifications, want 2", pendings)
	}
}

func TestSecurityAccess(t *testing.T) {
	_, session := newTestSession(t, uds.ClientConfig{})
	ctx := context.Background()

	seed, err := session.SecurityAccessRequestSeed(ctx, 0x01)
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) == 0 {
		t.Fatal("empty seed")
	}

	wrong := make([]byte, len(seed))
	err = session.SecurityAccessSendKey(ctx, 0x02, wrong)
	if err == nil {
		t.Fatal("wrong key must be rejected")
	}
	if godiag.ActionFor(err) != godiag.PromptUser {
		t.Errorf("invalid key action = %v, want prompt user", godiag.ActionFor(err))
	}

	key := make([]byte, len(seed))
	for i, b := range seed {
		key[i] = b ^ 0xFF
	}
	if err := session.SecurityAccessSendKey(ctx, 0x02, key); err != nil {
		t.Fatal(err)
	}
}

func TestReadAndClearDTCs(t *testing.T) {
	ecu, session := newTestSession(t, uds.ClientConfig{})
	ctx := context.Background()

	ecu.AddDTC(ecusim.StoredDTC{High: 0x01, Middle: 0x43, Status: uds.StatusConfirmed | uds.StatusTestFailed})
	ecu.AddDTC(ecusim.StoredDTC{High: 0xC1, Middle: 0x00, Status: uds.StatusPending})

	confirmed, err := session.ReadDTCs(ctx, uds.StatusConfirmed)
	if err != nil {
		t.Fatal(err)
	}
	if len(confirmed) != 1 || confirmed[0].Code != "P0143" {
		t.Fatalf("confirmed DTCs = %v", confirmed)
	}
	if !confirmed[0].Confirmed() {
		t.Error("status byte lost on the way through")
	}

	pending, err := session.ReadDTCs(ctx, uds.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Code != "U0100" {
		t.Fatalf("pending DTCs = %v", pending)
	}

	if err := session.ClearDTCs(ctx, 0xFFFFFF); err != nil {
		t.Fatal(err)
	}
	left, err := session.ReadDTCs(ctx, 0xFF)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d DTCs survived the clear", len(left))
	}
}

func TestECUResetEndsSession(t *testing.T) {
	ecu, session := newTestSession(t, uds.ClientConfig{})
	ctx := context.Background()

	if err := session.DiagnosticSessionControl(ctx, uds.SessionExtended); err != nil {
		t.Fatal(err)
	}
	if err := session.ECUReset(ctx, 0x01); err != nil {
		t.Fatal(err)
	}
	if ecu.Session() != uds.SessionDefault {
		t.Error("reset should drop the ECU back to the default session")
	}
}

func TestRequestWithRecoveryStopsOnFinalErrors(t *testing.T) {
	ecu, session := newTestSession(t, uds.ClientConfig{})
	ecu.ForceNegative(uds.ServiceReadDataByIdentifier, uds.NRCServiceNotSupported)

	start := time.Now()
	_, err := session.RequestWithRecovery(context.Background(), uds.ServiceReadDataByIdentifier, []byte{0xF1, 0x90}, 0)
	if err == nil {
		t.Fatal("forced negative must surface")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("non-recoverable error retried for %v", elapsed)
	}
}
