//go:build linux

package usbtransport

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/mtpfs/pkg/mtperr"
)

// LinuxTransport is a [Transport] backed by the Linux usbdevfs ioctl
// interface. It claims exactly one interface (the MTP interface) and
// drives its three endpoints with synchronous bulk/control ioctls. Each
// transfer returns on completion, error, or timeout; the ctx argument is
// not consulted, so cancelling it does not end a transfer in progress.
type LinuxTransport struct {
	fd int

	iface           uint8
	bulkInEP        uint8
	bulkOutEP       uint8
	interruptInEP   uint8
	maxPacketSize   int
}

// Open claims the MTP interface on the device identified by (vid, pid
// [, serial]) and returns a ready LinuxTransport.
func Open(vid, pid uint16, serial string, iface uint8, bulkIn, bulkOut, interruptIn uint8, maxPacketSize int) (*LinuxTransport, error) {
	dev, err := findDevice(vid, pid, serial)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(dev.devfsPath(), unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	// Linux usbdevfs requires detaching any kernel driver (usb-storage,
	// mtp-probe helpers) before claiming the interface ourselves.
	_ = disconnectDriver(fd, iface)
	if err := claimInterface(fd, iface); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &LinuxTransport{
		fd:            fd,
		iface:         iface,
		bulkInEP:      bulkIn,
		bulkOutEP:     bulkOut,
		interruptInEP: interruptIn,
		maxPacketSize: maxPacketSize,
	}, nil
}

func (t *LinuxTransport) MaxPacketSize() int { return t.maxPacketSize }

func (t *LinuxTransport) BulkOut(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	n, err := doBulkTransfer(t.fd, t.bulkOutEP, buf, uint32(timeout/time.Millisecond))
	return n, t.mapError(err)
}

func (t *LinuxTransport) BulkIn(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	n, err := doBulkTransfer(t.fd, t.bulkInEP, buf, uint32(timeout/time.Millisecond))
	return n, t.mapError(err)
}

func (t *LinuxTransport) InterruptIn(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	n, err := doBulkTransfer(t.fd, t.interruptInEP, buf, uint32(timeout/time.Millisecond))
	return n, t.mapError(err)
}

func (t *LinuxTransport) ClearHalt(ctx context.Context, ep Endpoint) error {
	addr := t.endpointAddress(ep)
	// GET_STATUS(ENDPOINT): bit 0 of the returned status word is HALT.
	status := make([]byte, 2)
	if _, err := doControlTransfer(t.fd, 0x82, 0x00, 0, uint16(addr), status, uint32(DefaultControlTimeout/time.Millisecond)); err == nil && status[0]&0x01 == 0 {
		return nil
	}
	return clearHalt(t.fd, addr)
}

func (t *LinuxTransport) endpointAddress(ep Endpoint) uint8 {
	switch ep {
	case EndpointBulkIn:
		return t.bulkInEP
	case EndpointBulkOut:
		return t.bulkOutEP
	case EndpointInterruptIn:
		return t.interruptInEP
	default:
		return 0
	}
}

func (t *LinuxTransport) mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case isStall(err):
		return mtperr.ErrStall
	case isNoDevice(err):
		return mtperr.ErrDisconnect
	case err == unix.ETIMEDOUT:
		return mtperr.ErrTimeout
	default:
		return err
	}
}

func (t *LinuxTransport) Close() error {
	_ = releaseInterface(t.fd, t.iface)
	return unix.Close(t.fd)
}
