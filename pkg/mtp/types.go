package mtp

import "fmt"

// DeviceInfo is the dataset returned by GetDeviceInfo.
type DeviceInfo struct {
	StandardVersion        uint16
	VendorExtensionID       uint32
	VendorExtensionVersion  uint16
	VendorExtensionDesc     string
	FunctionalMode          uint16
	OperationsSupported     []uint16
	EventsSupported         []uint16
	DevicePropertiesSupported []uint16
	CaptureFormats          []uint16
	PlaybackFormats         []uint16
	Manufacturer            string
	Model                   string
	DeviceVersion           string
	SerialNumber            string
}

// Decode reads a DeviceInfo dataset from r.
func (d *DeviceInfo) Decode(r *Reader) (err error) {
	if d.StandardVersion, err = r.Uint16(); err != nil {
		return err
	}
	if d.VendorExtensionID, err = r.Uint32(); err != nil {
		return err
	}
	if d.VendorExtensionVersion, err = r.Uint16(); err != nil {
		return err
	}
	if d.VendorExtensionDesc, err = r.String(); err != nil {
		return err
	}
	if d.FunctionalMode, err = r.Uint16(); err != nil {
		return err
	}
	if d.OperationsSupported, err = r.Uint16Array(); err != nil {
		return err
	}
	if d.EventsSupported, err = r.Uint16Array(); err != nil {
		return err
	}
	if d.DevicePropertiesSupported, err = r.Uint16Array(); err != nil {
		return err
	}
	if d.CaptureFormats, err = r.Uint16Array(); err != nil {
		return err
	}
	if d.PlaybackFormats, err = r.Uint16Array(); err != nil {
		return err
	}
	if d.Manufacturer, err = r.String(); err != nil {
		return err
	}
	if d.Model, err = r.String(); err != nil {
		return err
	}
	if d.DeviceVersion, err = r.String(); err != nil {
		return err
	}
	if d.SerialNumber, err = r.String(); err != nil {
		return err
	}
	return nil
}

// SupportsOperation reports whether code appears in OperationsSupported.
func (d *DeviceInfo) SupportsOperation(code uint16) bool {
	for _, c := range d.OperationsSupported {
		if c == code {
			return true
		}
	}
	return false
}

// SupportsGetPartialObject64 reports whether the device advertises the
// 64-bit partial read operation, the condition the filesystem view uses
// to pick between GetPartialObject and GetPartialObject64.
func (d *DeviceInfo) SupportsGetPartialObject64() bool {
	return d.SupportsOperation(OpGetPartialObject64)
}

// StorageInfo is the dataset returned by GetStorageInfo.
type StorageInfo struct {
	StorageID          uint32
	StorageType        uint16
	FilesystemType     uint16
	AccessCapability   uint16
	MaxCapacity        uint64
	FreeSpaceInBytes   uint64
	FreeSpaceInObjects uint32
	StorageDescription string
	VolumeIdentifier   string
}

// Decode reads a StorageInfo dataset from r. StorageID is not part of the
// wire dataset; callers set it from the GetStorageInfo parameter.
func (s *StorageInfo) Decode(r *Reader) (err error) {
	if s.StorageType, err = r.Uint16(); err != nil {
		return err
	}
	if s.FilesystemType, err = r.Uint16(); err != nil {
		return err
	}
	if s.AccessCapability, err = r.Uint16(); err != nil {
		return err
	}
	if s.MaxCapacity, err = r.Uint64(); err != nil {
		return err
	}
	if s.FreeSpaceInBytes, err = r.Uint64(); err != nil {
		return err
	}
	if s.FreeSpaceInObjects, err = r.Uint32(); err != nil {
		return err
	}
	if s.StorageDescription, err = r.String(); err != nil {
		return err
	}
	if s.VolumeIdentifier, err = r.String(); err != nil {
		return err
	}
	return nil
}

// ObjectInfo is the canonical per-object metadata dataset, decoded from
// GetObjectInfo and built fresh for SendObjectInfo. Handle is not part of
// the wire dataset; it is the GetObjectInfo parameter or the handle
// returned by SendObjectInfo.
type ObjectInfo struct {
	Handle              uint32
	StorageID           uint32
	ObjectFormat        uint16
	ProtectionStatus    uint16
	ObjectCompressedSize uint32
	ThumbFormat         uint16
	ThumbCompressedSize uint32
	ThumbPixWidth       uint32
	ThumbPixHeight      uint32
	ImagePixWidth       uint32
	ImagePixHeight      uint32
	ImageBitDepth       uint32
	ParentObject        uint32
	AssociationType     uint16
	AssociationDesc     uint32
	SequenceNumber      uint32
	Filename            string
	CaptureDate         DateTime
	ModificationDate    DateTime
	Keywords            string
}

// IsFolder reports whether the object is an MTP association (folder).
func (o *ObjectInfo) IsFolder() bool {
	return o.ObjectFormat == FormatAssociation
}

// Decode reads an ObjectInfo dataset from r. Handle is left untouched;
// the caller fills it in from the request parameter.
func (o *ObjectInfo) Decode(r *Reader) (err error) {
	if o.StorageID, err = r.Uint32(); err != nil {
		return err
	}
	if o.ObjectFormat, err = r.Uint16(); err != nil {
		return err
	}
	if o.ProtectionStatus, err = r.Uint16(); err != nil {
		return err
	}
	if o.ObjectCompressedSize, err = r.Uint32(); err != nil {
		return err
	}
	if o.ThumbFormat, err = r.Uint16(); err != nil {
		return err
	}
	if o.ThumbCompressedSize, err = r.Uint32(); err != nil {
		return err
	}
	if o.ThumbPixWidth, err = r.Uint32(); err != nil {
		return err
	}
	if o.ThumbPixHeight, err = r.Uint32(); err != nil {
		return err
	}
	if o.ImagePixWidth, err = r.Uint32(); err != nil {
		return err
	}
	if o.ImagePixHeight, err = r.Uint32(); err != nil {
		return err
	}
	if o.ImageBitDepth, err = r.Uint32(); err != nil {
		return err
	}
	if o.ParentObject, err = r.Uint32(); err != nil {
		return err
	}
	if o.AssociationType, err = r.Uint16(); err != nil {
		return err
	}
	if o.AssociationDesc, err = r.Uint32(); err != nil {
		return err
	}
	if o.SequenceNumber, err = r.Uint32(); err != nil {
		return err
	}
	if o.Filename, err = r.String(); err != nil {
		return err
	}
	if o.CaptureDate, err = r.DateTime(); err != nil {
		return err
	}
	if o.ModificationDate, err = r.DateTime(); err != nil {
		return err
	}
	if o.Keywords, err = r.String(); err != nil {
		return err
	}
	return nil
}

// Encode writes the ObjectInfo dataset in wire form, as built by SendObjectInfo.
func (o *ObjectInfo) Encode(w *Writer) {
	w.PutUint32(o.StorageID)
	w.PutUint16(o.ObjectFormat)
	w.PutUint16(o.ProtectionStatus)
	w.PutUint32(o.ObjectCompressedSize)
	w.PutUint16(o.ThumbFormat)
	w.PutUint32(o.ThumbCompressedSize)
	w.PutUint32(o.ThumbPixWidth)
	w.PutUint32(o.ThumbPixHeight)
	w.PutUint32(o.ImagePixWidth)
	w.PutUint32(o.ImagePixHeight)
	w.PutUint32(o.ImageBitDepth)
	w.PutUint32(o.ParentObject)
	w.PutUint16(o.AssociationType)
	w.PutUint32(o.AssociationDesc)
	w.PutUint32(o.SequenceNumber)
	w.PutString(o.Filename)
	w.PutDateTime(o.CaptureDate)
	w.PutDateTime(o.ModificationDate)
	w.PutString(o.Keywords)
}

// MtpProperty is a typed object or device property descriptor: a code, a
// datatype tag, a writable flag, and default/current values whose Go type
// depends on Datatype (uint8/.../uint64/string, or a slice of one of
// those for the Array* datatypes).
type MtpProperty struct {
	Code         uint16
	Type         Datatype
	Writable     bool
	DefaultValue any
	CurrentValue any
	Form         FormOfValue
	// RangeMin/RangeMax/RangeStep are populated when Form == FormRange.
	RangeMin, RangeMax, RangeStep any
	// EnumValues is populated when Form == FormEnum.
	EnumValues []any
	// GroupCode, for object properties, groups related properties.
	GroupCode uint32
}

func readTypedValue(r *Reader, dt Datatype) (any, error) {
	switch dt {
	case DatatypeInt8:
		return r.Int8()
	case DatatypeUint8:
		return r.Uint8()
	case DatatypeInt16:
		return r.Int16()
	case DatatypeUint16:
		return r.Uint16()
	case DatatypeInt32:
		return r.Int32()
	case DatatypeUint32:
		return r.Uint32()
	case DatatypeInt64:
		return r.Int64()
	case DatatypeUint64:
		return r.Uint64()
	case DatatypeString:
		return r.String()
	case DatatypeArrayUint8, DatatypeArrayInt8:
		return r.Uint8Array()
	case DatatypeArrayUint16, DatatypeArrayInt16:
		return r.Uint16Array()
	case DatatypeArrayUint32, DatatypeArrayInt32:
		return r.Uint32Array()
	default:
		return nil, fmt.Errorf("mtp: unsupported property datatype 0x%04X", dt)
	}
}

func writeTypedValue(w *Writer, dt Datatype, v any) error {
	switch dt {
	case DatatypeInt8:
		w.PutInt8(v.(int8))
	case DatatypeUint8:
		w.PutUint8(v.(uint8))
	case DatatypeInt16:
		w.PutInt16(v.(int16))
	case DatatypeUint16:
		w.PutUint16(v.(uint16))
	case DatatypeInt32:
		w.PutInt32(v.(int32))
	case DatatypeUint32:
		w.PutUint32(v.(uint32))
	case DatatypeInt64:
		w.PutInt64(v.(int64))
	case DatatypeUint64:
		w.PutUint64(v.(uint64))
	case DatatypeString:
		w.PutString(v.(string))
	case DatatypeArrayUint32, DatatypeArrayInt32:
		w.PutUint32Array(v.([]uint32))
	case DatatypeArrayUint8, DatatypeArrayInt8:
		w.PutUint8Array(v.([]uint8))
	case DatatypeArrayUint16, DatatypeArrayInt16:
		w.PutUint16Array(v.([]uint16))
	default:
		return fmt.Errorf("mtp: unsupported property datatype 0x%04X", dt)
	}
	return nil
}

// DecodeObjectPropDesc reads an object property descriptor, as returned
// by GetObjectPropDesc.
func DecodeObjectPropDesc(r *Reader) (*MtpProperty, error) {
	p := &MtpProperty{}
	code, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	p.Code = code
	dt, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	p.Type = Datatype(dt)
	writable, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	p.Writable = writable != 0
	if p.DefaultValue, err = readTypedValue(r, p.Type); err != nil {
		return nil, err
	}
	if p.GroupCode, err = r.Uint32(); err != nil {
		return nil, err
	}
	form, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	p.Form = FormOfValue(form)
	switch p.Form {
	case FormRange:
		if p.RangeMin, err = readTypedValue(r, p.Type); err != nil {
			return nil, err
		}
		if p.RangeMax, err = readTypedValue(r, p.Type); err != nil {
			return nil, err
		}
		if p.RangeStep, err = readTypedValue(r, p.Type); err != nil {
			return nil, err
		}
	case FormEnum:
		n, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		p.EnumValues = make([]any, n)
		for i := range p.EnumValues {
			if p.EnumValues[i], err = readTypedValue(r, p.Type); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// DecodeDevicePropDesc reads a device property descriptor, as returned by
// GetDevicePropDesc. The wire layout matches object property descriptors
// except that it additionally carries CurrentValue right after
// DefaultValue and has no GroupCode: the form flag follows CurrentValue.
func DecodeDevicePropDesc(r *Reader) (*MtpProperty, error) {
	p := &MtpProperty{}
	code, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	p.Code = code
	dt, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	p.Type = Datatype(dt)
	writable, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	p.Writable = writable != 0
	if p.DefaultValue, err = readTypedValue(r, p.Type); err != nil {
		return nil, err
	}
	if p.CurrentValue, err = readTypedValue(r, p.Type); err != nil {
		return nil, err
	}
	form, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	p.Form = FormOfValue(form)
	switch p.Form {
	case FormRange:
		if p.RangeMin, err = readTypedValue(r, p.Type); err != nil {
			return nil, err
		}
		if p.RangeMax, err = readTypedValue(r, p.Type); err != nil {
			return nil, err
		}
		if p.RangeStep, err = readTypedValue(r, p.Type); err != nil {
			return nil, err
		}
	case FormEnum:
		n, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		p.EnumValues = make([]any, n)
		for i := range p.EnumValues {
			if p.EnumValues[i], err = readTypedValue(r, p.Type); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// EncodeValue writes v in the property's datatype, for use as the Data
// phase payload of SetObjectPropValue/SetDevicePropValue.
func (p *MtpProperty) EncodeValue(w *Writer, v any) error {
	return writeTypedValue(w, p.Type, v)
}

// DecodeValue reads a bare value of the property's datatype, for use when
// decoding the Data phase payload of GetObjectPropValue.
func (p *MtpProperty) DecodeValue(r *Reader) (any, error) {
	return readTypedValue(r, p.Type)
}
