package mtp

// ContainerType identifies the kind of payload a container carries.
type ContainerType uint16

// Container types (USB Still Image Capture Device spec, table 2).
const (
	ContainerCommand  ContainerType = 1
	ContainerData     ContainerType = 2
	ContainerResponse ContainerType = 3
	ContainerEvent    ContainerType = 4
)

// Operation codes consumed by the session engine and filesystem view.
const (
	OpGetDeviceInfo         = 0x1001
	OpOpenSession           = 0x1002
	OpCloseSession          = 0x1003
	OpGetStorageIDs         = 0x1004
	OpGetStorageInfo        = 0x1005
	OpGetNumObjects         = 0x1006
	OpGetObjectHandles      = 0x1007
	OpGetObjectInfo         = 0x1008
	OpGetObject             = 0x1009
	OpGetThumb              = 0x100A
	OpDeleteObject          = 0x100B
	OpSendObjectInfo        = 0x100C
	OpSendObject            = 0x100D
	OpGetDevicePropDesc     = 0x1014
	OpGetDevicePropValue    = 0x1015
	OpSetDevicePropValue    = 0x1016
	OpGetPartialObject      = 0x101B
	OpGetObjectPropsSupported = 0x9801
	OpGetObjectPropDesc     = 0x9802
	OpGetObjectPropValue    = 0x9803
	OpSetObjectPropValue    = 0x9804
	OpGetPartialObject64    = 0x95C1
)

// Response codes. Only a subset of the protocol's codes is enumerated;
// any code, listed or not, is carried verbatim by a response error.
const (
	RespOK                   = 0x2001
	RespGeneralError         = 0x2002
	RespSessionNotOpen       = 0x2003
	RespInvalidTransactionID = 0x2004
	RespOperationNotSupported = 0x2005
	RespParameterNotSupported = 0x2006
	RespIncompleteTransfer   = 0x2007
	RespInvalidStorageID     = 0x2008
	RespInvalidObjectHandle  = 0x2009
	RespDevicePropNotSupported = 0x200A
	RespInvalidObjectFormatCode = 0x200B
	RespStoreFull            = 0x200C
	RespObjectWriteProtected = 0x200D
	RespStoreReadOnly        = 0x200E
	RespAccessDenied         = 0x200F
	RespNoThumbnailPresent   = 0x2010
	RespSelfTestFailed       = 0x2011
	RespPartialDeletion      = 0x2012
	RespStoreNotAvailable    = 0x2013
	RespSpecByFormatUnsupported = 0x2014
	RespNoValidObjectInfo    = 0x2015
	RespDeviceBusy           = 0x2019
	RespInvalidParentObject  = 0x201A
	RespInvalidParameter     = 0x201D
	RespSessionAlreadyOpen   = 0x201E
	RespTransactionCancelled = 0x201F
	RespInvalidObjectPropCode = 0xA801
	RespInvalidObjectPropFormat = 0xA802
	RespObjectPropNotSupported  = 0xA80A
)

// Event codes.
const (
	EventObjectAdded       = 0x4002
	EventObjectRemoved     = 0x4003
	EventStoreAdded        = 0x4004
	EventStoreRemoved      = 0x4005
	EventDevicePropChanged = 0x4006
	EventObjectInfoChanged = 0x4007
	EventDeviceInfoChanged = 0x4008
	EventStoreFull         = 0x400A
	EventDeviceReset       = 0x400D
	EventStorageInfoChanged = 0x400C
	EventCancelTransaction  = 0x4013
)

// Protocol sentinels.
const (
	// ParentRoot, used as a GetObjectHandles/GetObjectInfo parent
	// parameter, means "objects directly at the top of the storage".
	ParentRoot uint32 = 0xFFFFFFFF

	// StorageAll, used as a GetObjectHandles storage parameter, means
	// "search every storage on the device".
	StorageAll uint32 = 0

	// FormatAll, used as a GetObjectHandles format parameter, means
	// "objects of every format".
	FormatAll uint32 = 0

	// FormatUndefined is the object format used for a newly created file
	// with no determinable type, as built by the filesystem view's create
	// operation.
	FormatUndefined uint16 = 0x3000

	// FormatAssociation is the object format that marks a folder.
	FormatAssociation uint16 = 0x3001

	// AssociationGenericFolder is the only association subtype this
	// implementation creates via mkdir.
	AssociationGenericFolder uint16 = 0x0001
)

// Datatype codes used by MtpProperty and device/object property
// descriptors to tag the encoding of a value.
type Datatype uint16

const (
	DatatypeUndefined Datatype = 0x0000
	DatatypeInt8      Datatype = 0x0001
	DatatypeUint8     Datatype = 0x0002
	DatatypeInt16     Datatype = 0x0003
	DatatypeUint16    Datatype = 0x0004
	DatatypeInt32     Datatype = 0x0005
	DatatypeUint32    Datatype = 0x0006
	DatatypeInt64     Datatype = 0x0007
	DatatypeUint64    Datatype = 0x0008
	DatatypeInt128    Datatype = 0x0009
	DatatypeUint128   Datatype = 0x000A
	DatatypeArrayInt8  Datatype = 0x4001
	DatatypeArrayUint8 Datatype = 0x4002
	DatatypeArrayInt16 Datatype = 0x4003
	DatatypeArrayUint16 Datatype = 0x4004
	DatatypeArrayInt32 Datatype = 0x4005
	DatatypeArrayUint32 Datatype = 0x4006
	DatatypeArrayInt64 Datatype = 0x4007
	DatatypeArrayUint64 Datatype = 0x4008
	DatatypeString    Datatype = 0xFFFF
)

// FormOfValue describes how a property's allowed-value form is encoded.
type FormOfValue uint8

const (
	FormNone  FormOfValue = 0x00
	FormRange FormOfValue = 0x01
	FormEnum  FormOfValue = 0x02
)

// Object property codes used by GetObjectPropValue/SetObjectPropValue.
const (
	PropStorageID       = 0xDC01
	PropObjectFormat    = 0xDC02
	PropProtectionStatus = 0xDC03
	PropObjectSize      = 0xDC04
	PropObjectFileName  = 0xDC07
	PropDateCreated     = 0xDC08
	PropDateModified    = 0xDC09
	PropParentObject    = 0xDC0B
	PropName            = 0xDC44
)
