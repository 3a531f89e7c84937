package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/mtplog"
	"github.com/ardnew/mtpfs/pkg/usbtransport"
)

// state is the per-Device session lifecycle.
type state uint8

const (
	stateClosed state = iota
	stateSessionOpening
	stateSessionOpen
)

// divisionMode records the packet-division quirk once it has been probed
// on the first data phase, per the design notes on UrbPacketDivisionMode.
type divisionMode uint8

const (
	divisionUnknown divisionMode = iota
	divisionSingleTransfer
	divisionSplitOnMaxPacket
)

// Device owns one claimed MTP interface and sequences every transaction
// against it. At most one transaction is ever in flight: every exported
// operation acquires mu for its entire duration and releases it on every
// exit path, including failure. The event path (see events.go) uses a
// separate mutex and never contends with mu.
type Device struct {
	transport usbtransport.Transport

	VendorID, ProductID uint16
	Serial              string
	Manufacturer        string
	Model               string

	mu          sync.Mutex
	state       state
	sessionID   uint32
	transaction uint32
	division    divisionMode
	timeout     time.Duration

	info *mtp.DeviceInfo

	// lastSendObjectInfoTxID/Handle track the pairing invariant:
	// SendObject is only valid immediately following a successful
	// SendObjectInfo within the same session.
	lastSendObjectInfoTxID    uint32
	lastSendObjectInfoHandle  uint32
	lastSendObjectInfoValid   bool

	eventMu     sync.Mutex
	eventActive bool
	eventCancel context.CancelFunc
	eventResult chan eventOutcome
}

// New wraps transport as a Device identified by the given vendor/product
// id, serial, and descriptive strings. The returned Device is in the
// Closed state; call OpenSession before any operation other than
// GetDeviceInfo.
func New(transport usbtransport.Transport, vid, pid uint16, serial, manufacturer, model string) *Device {
	return &Device{
		transport:    transport,
		VendorID:     vid,
		ProductID:    pid,
		Serial:       serial,
		Manufacturer: manufacturer,
		Model:        model,
		timeout:      defaultBulkTimeout,
	}
}

// SetTimeout overrides the bulk/interrupt transfer timeout used by every
// subsequent operation. A non-positive duration is ignored.
func (d *Device) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
}

// bulkTimeout returns the timeout to use for the next bulk or interrupt
// transfer.
func (d *Device) bulkTimeout() time.Duration {
	if d.timeout <= 0 {
		return defaultBulkTimeout
	}
	return d.timeout
}

// String renders a one-line description of the device, used in the log
// records the mount command and the filesystem view write when a device
// is claimed and mounted, following the teacher's AndroidMtpDevice::print.
func (d *Device) String() string {
	return fmt.Sprintf("%04x:%04x serial=%q manufacturer=%q model=%q",
		d.VendorID, d.ProductID, d.Serial, d.Manufacturer, d.Model)
}

// nextTransactionID returns the transaction id to use for the command
// about to be built, then increments the counter. Must be called with mu
// held.
func (d *Device) nextTransactionID() uint32 {
	id := d.transaction
	d.transaction++
	return id
}

// requireSession fails with ErrNoSession unless the device has an open
// session, except for the two operations the protocol allows pre-session.
func (d *Device) requireSession() error {
	if d.state != stateSessionOpen {
		return mtperr.ErrNoSession
	}
	return nil
}

// Close releases the underlying transport. It does not send
// CloseSession; callers that want a clean session teardown should call
// CloseSession first.
func (d *Device) Close() error {
	return d.transport.Close()
}

const (
	defaultBulkTimeout = 5 * time.Second
)

// logComponent tags every log record this package emits.
const logComponent = mtplog.ComponentSession
