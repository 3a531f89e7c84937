package mtp

import "encoding/binary"

// Writer appends typed MTP scalars, arrays, and strings to a growable byte
// buffer. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf as its initial backing storage.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) PutUint8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) PutInt8(v int8)     { w.buf = append(w.buf, uint8(v)) }

func (w *Writer) PutUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) PutInt16(v int16) { w.PutUint16(uint16(v)) }

func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PutInt32(v int32) { w.PutUint32(uint32(v)) }

func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

// PutBytes appends raw bytes with no length prefix.
func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// PutUint8Array writes a u32 element count followed by the elements, per
// the wire layout of AUINT8/AINT8 property values (1 byte per element).
func (w *Writer) PutUint8Array(v []uint8) {
	w.PutUint32(uint32(len(v)))
	for _, e := range v {
		w.PutUint8(e)
	}
}

// PutUint32Array writes a u32 element count followed by the elements.
func (w *Writer) PutUint32Array(v []uint32) {
	w.PutUint32(uint32(len(v)))
	for _, e := range v {
		w.PutUint32(e)
	}
}

// PutUint16Array writes a u32 element count followed by the elements.
func (w *Writer) PutUint16Array(v []uint16) {
	w.PutUint32(uint32(len(v)))
	for _, e := range v {
		w.PutUint16(e)
	}
}

// PutString writes an MTP string: a u8 character count including the
// terminating NUL, followed by UTF-16LE code units. An empty string is
// encoded as a single zero count byte and no code units.
func (w *Writer) PutString(s string) {
	if s == "" {
		w.PutUint8(0)
		return
	}
	units := utf16Encode(s)
	units = append(units, 0)
	if len(units) > 255 {
		units = units[:254]
		units = append(units, 0)
	}
	w.PutUint8(uint8(len(units)))
	for _, u := range units {
		w.PutUint16(u)
	}
}

// PutDateTime writes an MTP date string in YYYYMMDDThhmmss form, or an
// empty string if t is the zero value.
func (w *Writer) PutDateTime(t DateTime) {
	w.PutString(t.Format())
}
