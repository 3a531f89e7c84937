package mtp

import (
	"encoding/binary"

	"github.com/ardnew/mtpfs/pkg/mtperr"
)

// HeaderSize is the fixed size of the MTP container header.
const HeaderSize = 12

// MaxParams is the maximum number of u32 parameters a Command or Response
// container carries.
const MaxParams = 5

// Container is a single MTP container: the 12-byte header plus either up
// to five u32 parameters (Command, Response) or an opaque payload (Data).
type Container struct {
	Type        ContainerType
	Code        uint16
	Transaction uint32
	Params      []uint32
	Payload     []byte
}

// NewCommand builds a Command container.
func NewCommand(code uint16, txid uint32, params ...uint32) *Container {
	return &Container{Type: ContainerCommand, Code: code, Transaction: txid, Params: params}
}

// NewResponse builds a Response container.
func NewResponse(code uint16, txid uint32, params ...uint32) *Container {
	return &Container{Type: ContainerResponse, Code: code, Transaction: txid, Params: params}
}

// NewData builds a Data container carrying payload.
func NewData(code uint16, txid uint32, payload []byte) *Container {
	return &Container{Type: ContainerData, Code: code, Transaction: txid, Payload: payload}
}

// NewEvent builds an Event container.
func NewEvent(code uint16, txid uint32, params ...uint32) *Container {
	return &Container{Type: ContainerEvent, Code: code, Transaction: txid, Params: params}
}

// Len returns the total container length, header included, the value
// written into the length field.
func (c *Container) Len() int {
	if c.Type == ContainerData {
		return HeaderSize + len(c.Payload)
	}
	return HeaderSize + 4*len(c.Params)
}

// Marshal serializes the container to a new byte slice.
func (c *Container) Marshal() []byte {
	buf := make([]byte, HeaderSize, c.Len())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.Len()))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(c.Type))
	binary.LittleEndian.PutUint16(buf[6:8], c.Code)
	binary.LittleEndian.PutUint32(buf[8:12], c.Transaction)
	if c.Type == ContainerData {
		buf = append(buf, c.Payload...)
		return buf
	}
	for _, p := range c.Params {
		buf = binary.LittleEndian.AppendUint32(buf, p)
	}
	return buf
}

// ParseHeader decodes the 12-byte container header from the front of buf.
// It does not require the full container body to be present yet, which
// lets the session engine read a first packet before deciding whether a
// data phase follows.
func ParseHeader(buf []byte) (length uint32, typ ContainerType, code uint16, txid uint32, err error) {
	if len(buf) < HeaderSize {
		return 0, 0, 0, 0, mtperr.ErrTruncated
	}
	length = binary.LittleEndian.Uint32(buf[0:4])
	typ = ContainerType(binary.LittleEndian.Uint16(buf[4:6]))
	code = binary.LittleEndian.Uint16(buf[6:8])
	txid = binary.LittleEndian.Uint32(buf[8:12])
	return length, typ, code, txid, nil
}

// ParseContainer decodes a complete container from buf, which must hold
// at least one container's worth of bytes (length prefix honored, trailing
// bytes ignored). Command, Response, and Event containers decode their
// trailing bytes as a u32 parameter array; Data containers keep the
// trailing bytes as an opaque payload.
func ParseContainer(buf []byte) (*Container, error) {
	length, typ, code, txid, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if int(length) > len(buf) {
		return nil, mtperr.ErrTruncated
	}
	body := buf[HeaderSize:length]
	c := &Container{Type: typ, Code: code, Transaction: txid}
	if typ == ContainerData {
		c.Payload = body
		return c, nil
	}
	if len(body)%4 != 0 {
		return nil, mtperr.ErrBadEncoding
	}
	r := NewReader(body)
	for r.Remaining() > 0 {
		p, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		c.Params = append(c.Params, p)
	}
	return c, nil
}
