package session

import (
	"context"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/mtplog"
)

// eventHandle is the only event-request handle this implementation ever
// hands out: at most one event request is in flight at a time, so a
// single fixed value is enough to let callers name "the" pending
// request.
const eventHandle = 1

// eventOutcome carries the result of one interrupt-in read back from the
// background goroutine started by SubmitEventRequest to ReapEventRequest.
type eventOutcome struct {
	code   uint16
	params []uint32
	err    error
}

// SubmitEventRequest starts waiting for the next event on the
// interrupt-in endpoint and returns a handle to pass to
// ReapEventRequest or DiscardEventRequest. It uses eventMu, not the
// transaction mutex, so it never blocks behind or on an in-flight
// transaction. A second submit while one is already pending fails with
// [mtperr.ErrEventBusy].
func (d *Device) SubmitEventRequest(ctx context.Context) (int, error) {
	d.eventMu.Lock()
	defer d.eventMu.Unlock()
	if d.eventActive {
		return -1, mtperr.ErrEventBusy
	}

	cctx, cancel := context.WithCancel(ctx)
	d.eventActive = true
	d.eventCancel = cancel
	d.eventResult = make(chan eventOutcome, 1)

	go d.waitForEvent(cctx, d.eventResult)

	return eventHandle, nil
}

// ReapEventRequest blocks until the event request identified by handle
// completes, returning the event code it carried. A discarded request
// reaps as event code 0 with a nil error.
func (d *Device) ReapEventRequest(ctx context.Context, handle int) (uint16, []uint32, error) {
	d.eventMu.Lock()
	if !d.eventActive || handle != eventHandle {
		d.eventMu.Unlock()
		return 0, nil, mtperr.ErrNoPendingEvent
	}
	result := d.eventResult
	d.eventMu.Unlock()

	var outcome eventOutcome
	select {
	case outcome = <-result:
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}

	d.eventMu.Lock()
	d.eventActive = false
	d.eventCancel = nil
	d.eventResult = nil
	d.eventMu.Unlock()

	return outcome.code, outcome.params, outcome.err
}

// DiscardEventRequest cancels the pending event request identified by
// handle. The paired ReapEventRequest call then returns event code 0.
func (d *Device) DiscardEventRequest(handle int) error {
	d.eventMu.Lock()
	if !d.eventActive || handle != eventHandle {
		d.eventMu.Unlock()
		return mtperr.ErrNoPendingEvent
	}
	cancel := d.eventCancel
	d.eventMu.Unlock()

	cancel()
	return nil
}

// waitForEvent reads one interrupt-in packet and publishes the result,
// or publishes a cancelled (code 0) outcome if ctx is done first.
func (d *Device) waitForEvent(ctx context.Context, result chan<- eventOutcome) {
	buf := make([]byte, initialReadCapacity)
	n, err := d.transport.InterruptIn(ctx, buf, d.bulkTimeout())
	if ctx.Err() != nil {
		result <- eventOutcome{}
		return
	}
	if err != nil {
		mtplog.Warn(logComponent, "event read failed", "err", err)
		result <- eventOutcome{err: err}
		return
	}
	c, err := mtp.ParseContainer(buf[:n])
	if err != nil {
		result <- eventOutcome{err: err}
		return
	}
	if c.Type != mtp.ContainerEvent {
		result <- eventOutcome{err: mtperr.ErrBadType}
		return
	}
	result <- eventOutcome{code: c.Code, params: c.Params}
}
