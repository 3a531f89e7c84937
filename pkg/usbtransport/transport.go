package usbtransport

import (
	"context"
	"time"
)

// Default transfer timeouts, per the transport adapter design.
const (
	DefaultControlTimeout  = 200 * time.Millisecond
	DefaultTransferTimeout = 5 * time.Second
)

// Endpoint identifies one of the three endpoints an MTP interface
// exposes.
type Endpoint uint8

const (
	EndpointBulkIn Endpoint = iota
	EndpointBulkOut
	EndpointInterruptIn
)

// DeviceInfo describes an enumerated USB device candidate, returned by
// ListDevices before any interface is claimed.
type DeviceInfo struct {
	VendorID, ProductID uint16
	Serial              string
	Manufacturer        string
	Product             string
	BusNum, DevNum       int
}

// Transport is the capability the session engine uses to move bytes
// across the wire: bulk and interrupt endpoints, per-endpoint timeouts,
// and stall clearing. It says nothing about MTP; everything
// protocol-specific lives in [github.com/ardnew/mtpfs/pkg/session].
type Transport interface {
	// BulkOut writes buf to the bulk-out endpoint, returning the number
	// of bytes written.
	BulkOut(ctx context.Context, buf []byte, timeout time.Duration) (int, error)

	// BulkIn reads into buf from the bulk-in endpoint, returning the
	// number of bytes read.
	BulkIn(ctx context.Context, buf []byte, timeout time.Duration) (int, error)

	// InterruptIn reads one interrupt-in packet into buf, blocking until
	// data arrives, the context is cancelled, or timeout elapses.
	InterruptIn(ctx context.Context, buf []byte, timeout time.Duration) (int, error)

	// MaxPacketSize reports the bulk-out endpoint's wMaxPacketSize, used
	// by the session engine to probe packet-division mode.
	MaxPacketSize() int

	// ClearHalt queries endpoint status and issues CLEAR_FEATURE(HALT) on
	// the given endpoint if its halt feature is set.
	ClearHalt(ctx context.Context, ep Endpoint) error

	// Close releases the claimed interface and any underlying handle.
	Close() error
}
