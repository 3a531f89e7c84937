package session

import (
	"context"
	"errors"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/mtplog"
	"github.com/ardnew/mtpfs/pkg/usbtransport"
)

// initialReadCapacity is the initial buffer size for a bulk-in read, per
// the codec's 512-byte event/command capacity.
const initialReadCapacity = 512

// runTransaction drives one Command→[Data]→Response exchange. Callers
// must hold d.mu for the duration of the call; runTransaction itself
// never acquires it. On a stall, it issues ClearHalt on both bulk
// endpoints and returns the error without retrying, per the no-auto-retry
// rule (a retry risks re-sending SendObjectInfo).
func (d *Device) runTransaction(ctx context.Context, code uint16, params []uint32, outgoing []byte) (respParams []uint32, data []byte, err error) {
	txid := d.nextTransactionID()

	cmd := mtp.NewCommand(code, txid, params...)
	if _, err := d.transport.BulkOut(ctx, cmd.Marshal(), d.bulkTimeout()); err != nil {
		d.recoverFromStall(ctx, err)
		return nil, nil, err
	}

	if outgoing != nil {
		dataContainer := mtp.NewData(code, txid, outgoing)
		if err := d.writeDataPhase(ctx, dataContainer.Marshal()); err != nil {
			d.recoverFromStall(ctx, err)
			return nil, nil, err
		}
	}

	first, err := d.readContainer(ctx)
	if err != nil {
		d.recoverFromStall(ctx, err)
		return nil, nil, err
	}

	response := first
	switch first.Type {
	case mtp.ContainerData:
		data = first.Payload
		if response, err = d.readContainer(ctx); err != nil {
			d.recoverFromStall(ctx, err)
			return nil, nil, err
		}
	case mtp.ContainerResponse:
		// mReceivedResponse: no data phase, the first packet is final.
	default:
		return nil, nil, mtperr.ErrBadType
	}

	if response.Type != mtp.ContainerResponse {
		return nil, nil, mtperr.ErrBadType
	}
	if response.Transaction != txid {
		mtplog.Error(logComponent, "transaction id mismatch", "want", txid, "got", response.Transaction)
		return nil, nil, mtperr.ErrTransactionMismatch
	}
	if response.Code != mtp.RespOK {
		return response.Params, data, mtperr.NewResponseError(response.Code)
	}
	return response.Params, data, nil
}

func (d *Device) recoverFromStall(ctx context.Context, err error) {
	if !errors.Is(err, mtperr.ErrStall) {
		return
	}
	mtplog.Warn(logComponent, "stall detected, clearing halt")
	_ = d.transport.ClearHalt(ctx, usbtransport.EndpointBulkIn)
	_ = d.transport.ClearHalt(ctx, usbtransport.EndpointBulkOut)
}

// writeDataPhase writes a fully-marshalled Data container, probing the
// packet-division quirk the first time it is called for this device: a
// single bulk-out transfer that completes in full commits to
// one-big-transfer mode; a short one makes the device fall back to
// splitting on wMaxPacketSize for the rest of this data phase and every
// subsequent one. A first transfer that fails returns its error and also
// leaves split mode selected for later data phases.
func (d *Device) writeDataPhase(ctx context.Context, buf []byte) error {
	start := 0
	if d.division == divisionUnknown {
		n, err := d.transport.BulkOut(ctx, buf, d.bulkTimeout())
		if err != nil {
			d.division = divisionSplitOnMaxPacket
			return err
		}
		if n == len(buf) {
			d.division = divisionSingleTransfer
			return nil
		}
		d.division = divisionSplitOnMaxPacket
		start = n
	}

	if d.division == divisionSingleTransfer {
		n, err := d.transport.BulkOut(ctx, buf, d.bulkTimeout())
		if err != nil {
			return err
		}
		if n != len(buf) {
			return mtperr.ErrTruncated
		}
		return nil
	}

	mtu := d.transport.MaxPacketSize()
	if mtu <= 0 {
		mtu = initialReadCapacity
	}
	for off := start; off < len(buf); {
		end := min(off+mtu, len(buf))
		n, err := d.transport.BulkOut(ctx, buf[off:end], d.bulkTimeout())
		if err != nil {
			return err
		}
		if n == 0 {
			return mtperr.ErrTruncated
		}
		off += n
	}
	return nil
}

// readContainer reads one complete container, accumulating further
// bulk-in reads past the first if the container's own length header
// says more bytes follow.
func (d *Device) readContainer(ctx context.Context) (*mtp.Container, error) {
	first := make([]byte, initialReadCapacity)
	n, err := d.transport.BulkIn(ctx, first, d.bulkTimeout())
	if err != nil {
		return nil, err
	}
	length, _, _, _, err := mtp.ParseHeader(first[:n])
	if err != nil {
		return nil, err
	}

	full := make([]byte, length)
	got := copy(full, first[:n])
	for uint32(got) < length {
		chunkSize := min(int(length)-got, initialReadCapacity)
		chunk := make([]byte, chunkSize)
		m, err := d.transport.BulkIn(ctx, chunk, d.bulkTimeout())
		if err != nil {
			return nil, err
		}
		if m == 0 {
			return nil, mtperr.ErrTruncated
		}
		copy(full[got:], chunk[:m])
		got += m
	}

	return mtp.ParseContainer(full)
}
