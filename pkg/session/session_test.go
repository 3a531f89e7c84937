package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/usbtransport"
)

// respondOnce plays the device side of one Command→[Data]→Response
// exchange. If hostSendsData is true, it first drains the Data
// container the host writes as part of the same transaction (e.g.
// SendObjectInfo, SendObject). If deviceDataOut is non-nil, it then
// sends that payload back as a Data container before the response. It
// returns the command it observed so the caller can assert on
// transaction id and params.
func respondOnce(t *testing.T, ctx context.Context, mock *usbtransport.Mock, hostSendsData bool, deviceDataOut []byte, resp *mtp.Container) *mtp.Container {
	t.Helper()
	raw, err := mock.ReceiveFromHost(ctx)
	if err != nil {
		t.Fatalf("receive command: %v", err)
	}
	cmd, err := mtp.ParseContainer(raw)
	if err != nil {
		t.Fatalf("parse command: %v", err)
	}
	if hostSendsData {
		if _, err := mock.ReceiveFromHost(ctx); err != nil {
			t.Fatalf("receive host data phase: %v", err)
		}
	}
	if deviceDataOut != nil {
		if err := mock.SendToHost(ctx, mtp.NewData(cmd.Code, cmd.Transaction, deviceDataOut).Marshal()); err != nil {
			t.Fatalf("send data: %v", err)
		}
	}
	resp.Transaction = cmd.Transaction
	if err := mock.SendToHost(ctx, resp.Marshal()); err != nil {
		t.Fatalf("send response: %v", err)
	}
	return cmd
}

func newTestDevice(mock *usbtransport.Mock) *Device {
	d := New(mock, 0x04e8, 0x6860, "SERIAL", "Test", "Model")
	d.state = stateSessionOpen
	return d
}

func TestTransactionIDsMonotonic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mock := usbtransport.NewMock(64)
	d := newTestDevice(mock)

	emptyIDs := mtp.NewWriter(nil)
	emptyIDs.PutUint32Array(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			cmd := respondOnce(t, ctx, mock, false, emptyIDs.Bytes(), mtp.NewResponse(mtp.RespOK, 0))
			if cmd.Transaction != uint32(i) {
				t.Errorf("transaction %d: want id %d, got %d", i, i, cmd.Transaction)
			}
		}
	}()

	for i := 0; i < 3; i++ {
		if _, err := d.GetStorageIDs(ctx); err != nil {
			t.Fatalf("GetStorageIDs %d: %v", i, err)
		}
	}
	<-done
}

func TestStallRecoveryClearsHaltNoRetry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mock := usbtransport.NewMock(64)
	d := newTestDevice(mock)

	mock.Halt(usbtransport.EndpointBulkOut)

	_, err := d.GetStorageIDs(ctx)
	if !errors.Is(err, mtperr.ErrStall) {
		t.Fatalf("expected stall error, got %v", err)
	}

	// The halt was cleared and the stalled command was not re-sent: the
	// next operation goes through and carries the next transaction id.
	emptyIDs := mtp.NewWriter(nil)
	emptyIDs.PutUint32Array(nil)
	done := make(chan *mtp.Container, 1)
	go func() {
		done <- respondOnce(t, ctx, mock, false, emptyIDs.Bytes(), mtp.NewResponse(mtp.RespOK, 0))
	}()
	if _, err := d.GetStorageIDs(ctx); err != nil {
		t.Fatalf("GetStorageIDs after stall: %v", err)
	}
	if cmd := <-done; cmd.Transaction != 1 {
		t.Errorf("want transaction id 1 after the stalled one, got %d", cmd.Transaction)
	}
}

func TestSendObjectWithoutSendObjectInfoFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mock := usbtransport.NewMock(64)
	d := newTestDevice(mock)

	err := d.SendObject(ctx, 4, &zeroReader{})
	if err == nil {
		t.Fatal("expected ErrNotPaired, got nil")
	}
}

func TestSendObjectInfoThenSendObjectPairs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mock := usbtransport.NewMock(64)
	d := newTestDevice(mock)

	go func() {
		respondOnce(t, ctx, mock, true, nil, mtp.NewResponse(mtp.RespOK, 0, 1, 2, 42))
		respondOnce(t, ctx, mock, true, nil, mtp.NewResponse(mtp.RespOK, 0))
	}()

	handle, err := d.SendObjectInfo(ctx, &mtp.ObjectInfo{StorageID: 1, ParentObject: mtp.ParentRoot, Filename: "a.txt"})
	if err != nil {
		t.Fatalf("SendObjectInfo: %v", err)
	}
	if handle != 42 {
		t.Fatalf("want handle 42, got %d", handle)
	}

	if err := d.SendObject(ctx, 4, &zeroReader{}); err != nil {
		t.Fatalf("SendObject: %v", err)
	}

	// A second SendObject without an intervening SendObjectInfo must fail.
	if err := d.SendObject(ctx, 4, &zeroReader{}); err == nil {
		t.Fatal("expected second SendObject to fail, got nil")
	}
}

func TestEventSubmitReapDiscard(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mock := usbtransport.NewMock(64)
	d := newTestDevice(mock)

	handle, err := d.SubmitEventRequest(ctx)
	if err != nil {
		t.Fatalf("SubmitEventRequest: %v", err)
	}

	if _, err := d.SubmitEventRequest(ctx); err == nil {
		t.Fatal("expected second concurrent submit to fail")
	}

	if err := d.DiscardEventRequest(handle); err != nil {
		t.Fatalf("DiscardEventRequest: %v", err)
	}
	code, _, err := d.ReapEventRequest(ctx, handle)
	if err != nil {
		t.Fatalf("ReapEventRequest after discard: %v", err)
	}
	if code != 0 {
		t.Fatalf("want cancelled event code 0, got %d", code)
	}

	handle2, err := d.SubmitEventRequest(ctx)
	if err != nil {
		t.Fatalf("SubmitEventRequest (second round): %v", err)
	}
	mock.SendEvent(mtp.NewEvent(mtp.EventObjectAdded, 0, 7).Marshal())
	code, params, err := d.ReapEventRequest(ctx, handle2)
	if err != nil {
		t.Fatalf("ReapEventRequest: %v", err)
	}
	if code != mtp.EventObjectAdded {
		t.Fatalf("want EventObjectAdded, got 0x%04X", code)
	}
	if len(params) != 1 || params[0] != 7 {
		t.Fatalf("want params [7], got %v", params)
	}
}

type zeroReader struct{ n int }

func (z *zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	z.n += len(p)
	return len(p), nil
}
