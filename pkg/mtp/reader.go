package mtp

import (
	"encoding/binary"

	"github.com/ardnew/mtpfs/pkg/mtperr"
)

// Reader decodes typed MTP scalars, arrays, and strings from a byte slice
// with an internal cursor. Every method returns [mtperr.ErrTruncated] when
// the read would run past the end of the buffer, except String, which
// returns [mtperr.ErrBadEncoding] when fewer code units remain than its
// count byte announces.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return mtperr.ErrTruncated
	}
	return nil
}

func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// Uint8Array reads a u32 element count followed by that many u8s, per the
// wire layout of AUINT8/AINT8 property values (1 byte per element, unlike
// the 4-byte-per-element u32/i32 arrays).
func (r *Reader) Uint8Array() ([]uint8, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]uint8, n)
	for i := range out {
		if out[i], err = r.Uint8(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Uint32Array reads a u32 element count followed by that many u32s.
func (r *Reader) Uint32Array() ([]uint32, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = r.Uint32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Uint16Array reads a u32 element count followed by that many u16s.
func (r *Reader) Uint16Array() ([]uint16, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		if out[i], err = r.Uint16(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// String reads an MTP string: a u8 character count including the
// terminating NUL, followed by that many UTF-16LE code units. A count of
// zero decodes to the empty string.
func (r *Reader) String() (string, error) {
	count, err := r.Uint8()
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", nil
	}
	units := make([]uint16, count)
	for i := range units {
		if units[i], err = r.Uint16(); err != nil {
			return "", mtperr.ErrBadEncoding
		}
	}
	// Drop the terminating NUL unit if present.
	if units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return utf16Decode(units), nil
}

// DateTime reads an MTP date string and parses it. A string that fails to
// parse yields a zero [DateTime] rather than an error, matching the
// decode-still-succeeds behavior the object info format requires.
func (r *Reader) DateTime() (DateTime, error) {
	s, err := r.String()
	if err != nil {
		return DateTime{}, err
	}
	dt, _ := ParseDateTime(s)
	return dt, nil
}
