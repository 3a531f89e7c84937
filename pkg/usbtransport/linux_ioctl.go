//go:build linux

package usbtransport

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// The _IOC encoding used by linux/usbdevice_fs.h, used below to compute
// the same ioctl request numbers the kernel header defines via
// _IOR/_IOW/_IOWR macros.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14
	iocDirBits  = 2

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

func iowr(typ, nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

func iow(typ, nr, size uintptr) uintptr {
	return ioc(iocWrite, typ, nr, size)
}

func ior(typ, nr, size uintptr) uintptr {
	return ioc(iocRead, typ, nr, size)
}

func io(typ, nr uintptr) uintptr {
	return ioc(iocNone, typ, nr, 0)
}

const usbdevfsType = 'U'

var (
	reqControl          = iowr(usbdevfsType, 0, unsafe.Sizeof(ctrlTransfer{}))
	reqBulk             = iowr(usbdevfsType, 2, unsafe.Sizeof(bulkTransfer{}))
	reqGetDriver        = iowr(usbdevfsType, 8, 256)
	reqSubmitURB        = iowr(usbdevfsType, 10, unsafe.Sizeof(urb{}))
	reqDiscardURB       = io(usbdevfsType, 11)
	reqReapURB          = iowr(usbdevfsType, 12, unsafe.Sizeof((*urb)(nil)))
	reqReapURBNDelay    = iowr(usbdevfsType, 13, unsafe.Sizeof((*urb)(nil)))
	reqClaimInterface   = iowr(usbdevfsType, 15, unsafe.Sizeof(uint32(0)))
	reqReleaseInterface = iowr(usbdevfsType, 16, unsafe.Sizeof(uint32(0)))
	reqConnectInfo      = iowr(usbdevfsType, 17, unsafe.Sizeof(connectInfo{}))
	reqResetEP          = iowr(usbdevfsType, 19, unsafe.Sizeof(uint32(0)))
	reqReset            = io(usbdevfsType, 20)
	reqClearHalt        = iowr(usbdevfsType, 21, unsafe.Sizeof(uint32(0)))
	reqDisconnect       = io(usbdevfsType, 22)
	reqConnect          = io(usbdevfsType, 23)
)

// ctrlTransfer mirrors struct usbdevfs_ctrltransfer.
type ctrlTransfer struct {
	requestType uint8
	request     uint8
	value       uint16
	index       uint16
	length      uint16
	timeout     uint32
	data        uintptr
}

// bulkTransfer mirrors struct usbdevfs_bulktransfer.
type bulkTransfer struct {
	endpoint uint32
	length   uint32
	timeout  uint32
	data     uintptr
}

// connectInfo mirrors struct usbdevfs_connectinfo.
type connectInfo struct {
	devnum uint32
	slow   uint8
	_      [3]byte
}

// urb mirrors struct usbdevfs_urb for bulk/interrupt submission.
type urb struct {
	typ          uint8
	endpoint     uint8
	status       int32
	flags        uint32
	buffer       uintptr
	bufferLength int32
	actualLength int32
	startFrame   int32
	streamID     uint32
	errorCount   int32
	signr        uint32
	userContext  uintptr
}

const (
	urbTypeIsochronous = 0
	urbTypeInterrupt   = 1
	urbTypeControl     = 2
	urbTypeBulk        = 3
)

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func doControlTransfer(fd int, reqType, request uint8, value, index uint16, data []byte, timeoutMs uint32) (int, error) {
	ct := ctrlTransfer{
		requestType: reqType,
		request:     request,
		value:       value,
		index:       index,
		length:      uint16(len(data)),
		timeout:     timeoutMs,
	}
	if len(data) > 0 {
		ct.data = uintptr(unsafe.Pointer(&data[0]))
	}
	if err := ioctlPtr(fd, reqControl, unsafe.Pointer(&ct)); err != nil {
		return 0, err
	}
	return len(data), nil
}

func doBulkTransfer(fd int, endpoint uint8, data []byte, timeoutMs uint32) (int, error) {
	bt := bulkTransfer{
		endpoint: uint32(endpoint),
		length:   uint32(len(data)),
		timeout:  timeoutMs,
	}
	if len(data) > 0 {
		bt.data = uintptr(unsafe.Pointer(&data[0]))
	}
	// USBDEVFS_BULK returns the number of bytes actually transferred.
	n, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), reqBulk, uintptr(unsafe.Pointer(&bt)))
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

func claimInterface(fd int, iface uint8) error {
	n := uint32(iface)
	return ioctlPtr(fd, reqClaimInterface, unsafe.Pointer(&n))
}

func releaseInterface(fd int, iface uint8) error {
	n := uint32(iface)
	return ioctlPtr(fd, reqReleaseInterface, unsafe.Pointer(&n))
}

func disconnectDriver(fd int, iface uint8) error {
	n := uint32(iface)
	return ioctlPtr(fd, reqDisconnect, unsafe.Pointer(&n))
}

func clearHalt(fd int, endpoint uint8) error {
	n := uint32(endpoint)
	return ioctlPtr(fd, reqClearHalt, unsafe.Pointer(&n))
}

func isStall(err error) bool {
	errno, ok := err.(unix.Errno)
	return ok && errno == unix.EPIPE
}

func isNoDevice(err error) bool {
	errno, ok := err.(unix.Errno)
	return ok && errno == unix.ENODEV
}
