package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/mtplog"
)

// beginOp clears the SendObjectInfo/SendObject pairing unless the
// operation about to run is one half of that pair. Must be called with
// mu held.
func (d *Device) beginOp(code uint16) {
	if code != mtp.OpSendObject && code != mtp.OpSendObjectInfo {
		d.lastSendObjectInfoValid = false
	}
}

// OpenSession opens an MTP session with session id 1. It succeeds if the
// response is OK or SessionAlreadyOpen, matching the state machine's
// Closed→SessionOpen transition.
func (d *Device) OpenSession(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == stateSessionOpen {
		return nil
	}
	d.state = stateSessionOpening
	d.beginOp(mtp.OpOpenSession)
	_, _, err := d.runTransaction(ctx, mtp.OpOpenSession, []uint32{1}, nil)
	if err != nil {
		var rerr *mtperr.ResponseError
		if errors.As(err, &rerr) && rerr.Code == mtp.RespSessionAlreadyOpen {
			d.sessionID = 1
			d.state = stateSessionOpen
			return nil
		}
		d.state = stateClosed
		return err
	}
	d.sessionID = 1
	d.state = stateSessionOpen
	return nil
}

// CloseSession closes the session and resets transaction sequencing.
func (d *Device) CloseSession(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateSessionOpen {
		return nil
	}
	d.beginOp(mtp.OpCloseSession)
	_, _, err := d.runTransaction(ctx, mtp.OpCloseSession, nil, nil)
	d.state = stateClosed
	d.sessionID = 0
	d.transaction = 0
	return err
}

// GetDeviceInfo fetches and caches the device's capability descriptor.
// Unlike every other operation, it is allowed before a session is open.
func (d *Device) GetDeviceInfo(ctx context.Context) (*mtp.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.beginOp(mtp.OpGetDeviceInfo)
	_, data, err := d.runTransaction(ctx, mtp.OpGetDeviceInfo, nil, nil)
	if err != nil {
		return nil, err
	}
	info := &mtp.DeviceInfo{}
	if err := info.Decode(mtp.NewReader(data)); err != nil {
		return nil, err
	}
	d.info = info
	return info, nil
}

// CachedDeviceInfo returns the last GetDeviceInfo result, or nil if none
// has been fetched yet.
func (d *Device) CachedDeviceInfo() *mtp.DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info
}

// GetStorageIDs returns the storage ids currently present on the device.
func (d *Device) GetStorageIDs(ctx context.Context) ([]uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetStorageIDs)
	_, data, err := d.runTransaction(ctx, mtp.OpGetStorageIDs, nil, nil)
	if err != nil {
		return nil, err
	}
	return mtp.NewReader(data).Uint32Array()
}

// GetStorageInfo fetches the descriptor for one storage id.
func (d *Device) GetStorageInfo(ctx context.Context, storageID uint32) (*mtp.StorageInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetStorageInfo)
	_, data, err := d.runTransaction(ctx, mtp.OpGetStorageInfo, []uint32{storageID}, nil)
	if err != nil {
		return nil, err
	}
	info := &mtp.StorageInfo{StorageID: storageID}
	if err := info.Decode(mtp.NewReader(data)); err != nil {
		return nil, err
	}
	return info, nil
}

// GetObjectHandles lists object handles matching storage/format/parent.
// storage == [mtp.StorageAll], format == [mtp.FormatAll], and
// parent == [mtp.ParentRoot] carry their protocol-sentinel meanings.
func (d *Device) GetObjectHandles(ctx context.Context, storage, format, parent uint32) ([]uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetObjectHandles)
	_, data, err := d.runTransaction(ctx, mtp.OpGetObjectHandles, []uint32{storage, format, parent}, nil)
	if err != nil {
		return nil, err
	}
	return mtp.NewReader(data).Uint32Array()
}

// GetObjectInfo fetches the metadata for one object handle.
func (d *Device) GetObjectInfo(ctx context.Context, handle uint32) (*mtp.ObjectInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetObjectInfo)
	_, data, err := d.runTransaction(ctx, mtp.OpGetObjectInfo, []uint32{handle}, nil)
	if err != nil {
		return nil, err
	}
	info := &mtp.ObjectInfo{Handle: handle}
	if err := info.Decode(mtp.NewReader(data)); err != nil {
		return nil, err
	}
	return info, nil
}

// GetParent returns an object's parent handle. It fetches and decodes the
// object's full ObjectInfo and returns only its parent field.
func (d *Device) GetParent(ctx context.Context, handle uint32) (uint32, error) {
	info, err := d.GetObjectInfo(ctx, handle)
	if err != nil {
		return 0, err
	}
	return info.ParentObject, nil
}

// GetObjectStorageID returns an object's storage id. It fetches and
// decodes the object's full ObjectInfo and returns only its storage id.
func (d *Device) GetObjectStorageID(ctx context.Context, handle uint32) (uint32, error) {
	info, err := d.GetObjectInfo(ctx, handle)
	if err != nil {
		return 0, err
	}
	return info.StorageID, nil
}

// GetObject reads the full object body into sink.
func (d *Device) GetObject(ctx context.Context, handle uint32, sink io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return err
	}
	d.beginOp(mtp.OpGetObject)
	_, data, err := d.runTransaction(ctx, mtp.OpGetObject, []uint32{handle}, nil)
	if err != nil {
		return err
	}
	_, err = sink.Write(data)
	return err
}

// GetThumbnail reads an object's embedded thumbnail into sink.
func (d *Device) GetThumbnail(ctx context.Context, handle uint32, sink io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return err
	}
	d.beginOp(mtp.OpGetThumb)
	_, data, err := d.runTransaction(ctx, mtp.OpGetThumb, []uint32{handle}, nil)
	if err != nil {
		return err
	}
	_, err = sink.Write(data)
	return err
}

// GetPartialObject reads length bytes starting at a 32-bit offset.
func (d *Device) GetPartialObject(ctx context.Context, handle uint32, offset, length uint32, sink io.Writer) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return 0, err
	}
	d.beginOp(mtp.OpGetPartialObject)
	params, data, err := d.runTransaction(ctx, mtp.OpGetPartialObject, []uint32{handle, offset, length}, nil)
	if err != nil {
		return 0, err
	}
	if _, err := sink.Write(data); err != nil {
		return 0, err
	}
	if len(params) > 0 {
		return params[0], nil
	}
	return uint32(len(data)), nil
}

// GetPartialObject64 reads length bytes starting at a 64-bit offset,
// used instead of GetPartialObject when the device advertises support
// for it in DeviceInfo.OperationsSupported.
func (d *Device) GetPartialObject64(ctx context.Context, handle uint32, offset uint64, length uint32, sink io.Writer) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return 0, err
	}
	d.beginOp(mtp.OpGetPartialObject64)
	offsetLow := uint32(offset)
	offsetHigh := uint32(offset >> 32)
	params, data, err := d.runTransaction(ctx, mtp.OpGetPartialObject64, []uint32{handle, offsetLow, offsetHigh, length}, nil)
	if err != nil {
		return 0, err
	}
	if _, err := sink.Write(data); err != nil {
		return 0, err
	}
	if len(params) > 0 {
		return params[0], nil
	}
	return uint32(len(data)), nil
}

// DeleteObject deletes an object (or, for an association, an empty
// folder).
func (d *Device) DeleteObject(ctx context.Context, handle uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return err
	}
	d.beginOp(mtp.OpDeleteObject)
	_, _, err := d.runTransaction(ctx, mtp.OpDeleteObject, []uint32{handle}, nil)
	return err
}

// SendObjectInfo sends a new object's metadata and returns the handle the
// device assigns it. A successful call is the only thing that makes the
// following SendObject valid.
func (d *Device) SendObjectInfo(ctx context.Context, info *mtp.ObjectInfo) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return 0, err
	}
	d.beginOp(mtp.OpSendObjectInfo)

	w := mtp.NewWriter(nil)
	info.Encode(w)

	params, _, err := d.runTransaction(ctx, mtp.OpSendObjectInfo, []uint32{info.StorageID, info.ParentObject}, w.Bytes())
	if err != nil {
		return 0, err
	}
	if len(params) < 3 {
		return 0, fmt.Errorf("mtp: SendObjectInfo response missing new handle")
	}
	newHandle := params[2]
	d.lastSendObjectInfoValid = true
	d.lastSendObjectInfoHandle = newHandle
	d.lastSendObjectInfoTxID = d.transaction - 1
	return newHandle, nil
}

// SendObject streams size bytes from src as the body of the object most
// recently announced by SendObjectInfo. Calling it without an
// immediately preceding successful SendObjectInfo fails with
// [mtperr.ErrNotPaired].
func (d *Device) SendObject(ctx context.Context, size int64, src io.Reader) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return err
	}
	if !d.lastSendObjectInfoValid || d.transaction != d.lastSendObjectInfoTxID+1 {
		return mtperr.ErrNotPaired
	}
	pairedHandle := d.lastSendObjectInfoHandle
	d.lastSendObjectInfoValid = false
	mtplog.Debug(logComponent, "sending object body", "handle", pairedHandle, "size", size)

	payload := make([]byte, size)
	if _, err := io.ReadFull(src, payload); err != nil {
		return err
	}
	_, _, err := d.runTransaction(ctx, mtp.OpSendObject, nil, payload)
	return err
}

// GetDevicePropDesc fetches a device property descriptor.
func (d *Device) GetDevicePropDesc(ctx context.Context, code uint16) (*mtp.MtpProperty, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetDevicePropDesc)
	_, data, err := d.runTransaction(ctx, mtp.OpGetDevicePropDesc, []uint32{uint32(code)}, nil)
	if err != nil {
		return nil, err
	}
	return mtp.DecodeDevicePropDesc(mtp.NewReader(data))
}

// SetDevicePropValueStr sets a string-typed device property.
func (d *Device) SetDevicePropValueStr(ctx context.Context, code uint16, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return err
	}
	d.beginOp(mtp.OpSetDevicePropValue)
	w := mtp.NewWriter(nil)
	w.PutString(value)
	_, _, err := d.runTransaction(ctx, mtp.OpSetDevicePropValue, []uint32{uint32(code)}, w.Bytes())
	return err
}

// GetObjectPropsSupported lists the object property codes supported for
// a given object format.
func (d *Device) GetObjectPropsSupported(ctx context.Context, format uint16) ([]uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetObjectPropsSupported)
	_, data, err := d.runTransaction(ctx, mtp.OpGetObjectPropsSupported, []uint32{uint32(format)}, nil)
	if err != nil {
		return nil, err
	}
	return mtp.NewReader(data).Uint16Array()
}

// GetObjectPropDesc fetches an object property descriptor for a format.
func (d *Device) GetObjectPropDesc(ctx context.Context, propCode, format uint16) (*mtp.MtpProperty, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetObjectPropDesc)
	_, data, err := d.runTransaction(ctx, mtp.OpGetObjectPropDesc, []uint32{uint32(propCode), uint32(format)}, nil)
	if err != nil {
		return nil, err
	}
	return mtp.DecodeObjectPropDesc(mtp.NewReader(data))
}

// GetObjectPropValue fetches one object's value for prop.
func (d *Device) GetObjectPropValue(ctx context.Context, handle uint32, prop *mtp.MtpProperty) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return nil, err
	}
	d.beginOp(mtp.OpGetObjectPropValue)
	_, data, err := d.runTransaction(ctx, mtp.OpGetObjectPropValue, []uint32{handle, uint32(prop.Code)}, nil)
	if err != nil {
		return nil, err
	}
	return prop.DecodeValue(mtp.NewReader(data))
}

// SetObjectPropValue sets one object's value for prop, most often used
// by rename to set [mtp.PropObjectFileName].
func (d *Device) SetObjectPropValue(ctx context.Context, handle uint32, prop *mtp.MtpProperty, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireSession(); err != nil {
		return err
	}
	d.beginOp(mtp.OpSetObjectPropValue)
	w := mtp.NewWriter(nil)
	if err := prop.EncodeValue(w, value); err != nil {
		return err
	}
	_, _, err := d.runTransaction(ctx, mtp.OpSetObjectPropValue, []uint32{handle, uint32(prop.Code)}, w.Bytes())
	return err
}

// SetObjectName is a convenience wrapper around SetObjectPropValue for
// the common rename path: set PropObjectFileName to a plain string.
func (d *Device) SetObjectName(ctx context.Context, handle uint32, name string) error {
	return d.SetObjectPropValue(ctx, handle, &mtp.MtpProperty{Code: mtp.PropObjectFileName, Type: mtp.DatatypeString}, name)
}

