// Package mtperr collects the sentinel errors used across the session
// engine, packet codec, and filesystem view, plus the typed wrappers
// ([ResponseError], [FsError]) that carry protocol-specific detail.
package mtperr

import (
	"errors"
	"fmt"
)

// Transport-level errors, surfaced by the usbtransport package.
var (
	ErrTimeout    = errors.New("usb: transfer timeout")
	ErrStall      = errors.New("usb: endpoint stalled")
	ErrDisconnect = errors.New("usb: device disconnected")
)

// Codec/framing errors, surfaced by the mtp package.
var (
	ErrTruncated          = errors.New("mtp: packet truncated")
	ErrBadType            = errors.New("mtp: unexpected container type")
	ErrTransactionMismatch = errors.New("mtp: response transaction id mismatch")
	ErrBadEncoding        = errors.New("mtp: inconsistent string encoding")
)

// Session lifecycle errors.
var (
	ErrNoSession       = errors.New("mtp: no open session")
	ErrMultipleDevices = errors.New("mtp: multiple devices match vid/pid, serial required")
	ErrNotPaired       = errors.New("mtp: SendObject without a matching SendObjectInfo")
)

// Event request errors.
var (
	ErrEventBusy       = errors.New("mtp: an event request is already pending")
	ErrNoPendingEvent  = errors.New("mtp: no event request is pending")
)

// Filesystem-view errors, surfaced as the FsOp kinds from the spec's
// error taxonomy. Each has a matching errno-like FsError constructor.
var (
	ErrNoEntry      = errors.New("fs: no such object")
	ErrNotDir       = errors.New("fs: not a directory")
	ErrNotEmpty     = errors.New("fs: directory not empty")
	ErrInvalid      = errors.New("fs: invalid operation")
	ErrNotSupported = errors.New("fs: not supported")
	ErrNoSpace      = errors.New("fs: storage full")
	ErrIO           = errors.New("fs: i/o error")
)

// ResponseError wraps a non-OK MTP response code, preserving it verbatim
// for callers that need to branch on the exact code.
type ResponseError struct {
	Code uint16
}

// NewResponseError builds a [ResponseError] for the given response code.
func NewResponseError(code uint16) *ResponseError {
	return &ResponseError{Code: code}
}

func (e *ResponseError) Error() string {
	if name, ok := responseName[e.Code]; ok {
		return fmt.Sprintf("mtp: response %s (0x%04X)", name, e.Code)
	}
	return fmt.Sprintf("mtp: response 0x%04X", e.Code)
}

// responseName names the well-known codes the spec calls out verbatim.
var responseName = map[uint16]string{
	0x2002: "General_Error",
	0x2003: "Session_Not_Open",
	0x2005: "Operation_Not_Supported",
	0x2008: "Invalid_StorageID",
	0x2009: "Invalid_ObjectHandle",
	0x200C: "Store_Full",
	0x200D: "Object_WriteProtected",
	0x200E: "Store_Read_Only",
	0x200F: "Access_Denied",
	0x201A: "Invalid_Parent_Object",
	0x201D: "Invalid_Parameter",
	0x201E: "Session_Already_Open",
}

// FsError wraps one of the FsOp kinds with the underlying cause, when one
// exists, so callers can both log the root cause and match the kind with
// errors.Is against the Err* sentinels above.
type FsError struct {
	Kind  error
	Cause error
}

func (e *FsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

func (e *FsError) Unwrap() error { return e.Kind }

// Fs builds an [FsError] of the given kind wrapping cause. cause may be nil.
func Fs(kind error, cause error) *FsError {
	return &FsError{Kind: kind, Cause: cause}
}

// FromResponse maps a non-OK MTP response code to the FsOp kind the
// filesystem view surfaces to the VFS binding, per the fixed table in the
// error-handling design.
func FromResponse(code uint16) error {
	switch code {
	case 0x2009, 0x201A, 0x2008:
		return Fs(ErrNoEntry, NewResponseError(code))
	case 0x200F, 0x200D, 0x200E:
		return Fs(ErrInvalid, NewResponseError(code))
	case 0x200C:
		return Fs(ErrNoSpace, NewResponseError(code))
	case 0x2005:
		return Fs(ErrNotSupported, NewResponseError(code))
	default:
		return Fs(ErrIO, NewResponseError(code))
	}
}
