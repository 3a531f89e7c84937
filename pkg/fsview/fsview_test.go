package fsview

import (
	"context"
	"testing"
	"time"

	"bazil.org/fuse"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/session"
	"github.com/ardnew/mtpfs/pkg/usbtransport"
)

// respond plays one device-side Command/[Data]/Response exchange,
// draining any data phase the host sends and, if deviceData is non-nil,
// sending it back before the response.
func respond(t *testing.T, ctx context.Context, mock *usbtransport.Mock, hostSendsData bool, deviceData []byte, resp *mtp.Container) *mtp.Container {
	t.Helper()
	raw, err := mock.ReceiveFromHost(ctx)
	if err != nil {
		t.Fatalf("receive command: %v", err)
	}
	cmd, err := mtp.ParseContainer(raw)
	if err != nil {
		t.Fatalf("parse command: %v", err)
	}
	if hostSendsData {
		if _, err := mock.ReceiveFromHost(ctx); err != nil {
			t.Fatalf("receive host data phase: %v", err)
		}
	}
	if deviceData != nil {
		if err := mock.SendToHost(ctx, mtp.NewData(cmd.Code, cmd.Transaction, deviceData).Marshal()); err != nil {
			t.Fatalf("send data: %v", err)
		}
	}
	resp.Transaction = cmd.Transaction
	if err := mock.SendToHost(ctx, resp.Marshal()); err != nil {
		t.Fatalf("send response: %v", err)
	}
	return cmd
}

func deviceInfoPayload(ops ...uint16) []byte {
	w := mtp.NewWriter(nil)
	info := mtp.DeviceInfo{
		StandardVersion:     100,
		OperationsSupported: ops,
		Manufacturer:        "Acme",
		Model:               "Phone",
		DeviceVersion:       "1.0",
		SerialNumber:        "SN1",
	}
	w.PutUint16(info.StandardVersion)
	w.PutUint32(info.VendorExtensionID)
	w.PutUint16(info.VendorExtensionVersion)
	w.PutString(info.VendorExtensionDesc)
	w.PutUint16(info.FunctionalMode)
	w.PutUint16Array(info.OperationsSupported)
	w.PutUint16Array(info.EventsSupported)
	w.PutUint16Array(info.DevicePropertiesSupported)
	w.PutUint16Array(info.CaptureFormats)
	w.PutUint16Array(info.PlaybackFormats)
	w.PutString(info.Manufacturer)
	w.PutString(info.Model)
	w.PutString(info.DeviceVersion)
	w.PutString(info.SerialNumber)
	return w.Bytes()
}

func storageInfoPayload(description string) []byte {
	w := mtp.NewWriter(nil)
	w.PutUint16(0)               // StorageType
	w.PutUint16(0)               // FilesystemType
	w.PutUint16(0)               // AccessCapability
	w.PutUint64(1 << 30)         // MaxCapacity: 1GiB
	w.PutUint64(1 << 29)         // FreeSpaceInBytes: 512MiB
	w.PutUint32(0)               // FreeSpaceInObjects
	w.PutString(description)
	w.PutString("")
	return w.Bytes()
}

func objectInfoPayload(storageID uint32, format uint16, parent uint32, size uint32, name string) []byte {
	w := mtp.NewWriter(nil)
	info := mtp.ObjectInfo{
		StorageID:            storageID,
		ObjectFormat:         format,
		ObjectCompressedSize: size,
		ParentObject:         parent,
		Filename:             name,
	}
	info.Encode(w)
	return w.Bytes()
}

// newMountedTree drives the New() mount handshake (OpenSession,
// GetDeviceInfo, GetStorageIDs, GetStorageInfo×2) against a Mock
// transport and returns the resulting Tree.
func newMountedTree(t *testing.T, ctx context.Context) (*Tree, *usbtransport.Mock) {
	t.Helper()
	mock := usbtransport.NewMock(64)
	device := session.New(mock, 0x18d1, 0x4ee1, "SN1", "Acme", "Phone")

	storageIDs := mtp.NewWriter(nil)
	storageIDs.PutUint32Array([]uint32{0x00010001, 0x00020001})

	done := make(chan *Tree, 1)
	errc := make(chan error, 1)
	go func() {
		tree, err := New(ctx, device)
		if err != nil {
			errc <- err
			return
		}
		done <- tree
	}()

	respond(t, ctx, mock, false, nil, mtp.NewResponse(mtp.RespOK, 0))
	respond(t, ctx, mock, false, deviceInfoPayload(mtp.OpGetPartialObject64), mtp.NewResponse(mtp.RespOK, 0))
	respond(t, ctx, mock, false, storageIDs.Bytes(), mtp.NewResponse(mtp.RespOK, 0))
	respond(t, ctx, mock, false, storageInfoPayload("Internal"), mtp.NewResponse(mtp.RespOK, 0))
	respond(t, ctx, mock, false, storageInfoPayload("SD card"), mtp.NewResponse(mtp.RespOK, 0))

	select {
	case tree := <-done:
		return tree, mock
	case err := <-errc:
		t.Fatalf("New: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out mounting tree")
	}
	return nil, nil
}

func TestMountAndListRoot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tree, _ := newMountedTree(t, ctx)
	root := tree.Root()

	ents, err := root.ReadDirAll(ctx)
	if err != nil {
		t.Fatalf("ReadDirAll: %v", err)
	}
	names := make([]string, len(ents))
	for i, e := range ents {
		names[i] = e.Name
	}
	want := []string{".", "..", "Internal", "SD card"}
	if len(names) != len(want) {
		t.Fatalf("want %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("want %v, got %v", want, names)
		}
	}

	var a fuse.Attr
	if err := root.Attr(ctx, &a); err != nil {
		t.Fatalf("Attr: %v", err)
	}
	if a.Size != 512 {
		t.Errorf("want root size 512, got %d", a.Size)
	}
	if a.Mode&0775 != 0775 {
		t.Errorf("want mode 0775 bits set, got %o", a.Mode)
	}
}

func TestLazyDescentFetchesOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tree, mock := newMountedTree(t, ctx)
	root := tree.Root()

	internalNode, err := root.Lookup(ctx, "Internal")
	if err != nil {
		t.Fatalf("Lookup(Internal): %v", err)
	}
	internal := internalNode.(*Node)

	handles := mtp.NewWriter(nil)
	handles.PutUint32Array([]uint32{5})

	go func() {
		respond(t, ctx, mock, false, handles.Bytes(), mtp.NewResponse(mtp.RespOK, 0))
		respond(t, ctx, mock, false, objectInfoPayload(0x00010001, mtp.FormatAssociation, mtp.ParentRoot, 0, "DCIM"), mtp.NewResponse(mtp.RespOK, 0))
	}()

	ents, err := internal.ReadDirAll(ctx)
	if err != nil {
		t.Fatalf("ReadDirAll(Internal): %v", err)
	}
	if len(ents) != 3 || ents[2].Name != "DCIM" {
		t.Fatalf("want [. .. DCIM], got %v", ents)
	}

	// Second ReadDirAll must issue zero device calls: if it tried, it
	// would block forever since no goroutine is left to answer it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := internal.ReadDirAll(ctx); err != nil {
			t.Errorf("second ReadDirAll: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("second ReadDirAll issued a device call")
	}
}

func TestReadPartialObjectUsesPartialObject64WhenSupported(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tree, mock := newMountedTree(t, ctx)
	root := tree.Root()

	internalNode, _ := root.Lookup(ctx, "Internal")
	internal := internalNode.(*Node)

	handles := mtp.NewWriter(nil)
	handles.PutUint32Array([]uint32{7})
	go func() {
		respond(t, ctx, mock, false, handles.Bytes(), mtp.NewResponse(mtp.RespOK, 0))
		respond(t, ctx, mock, false, objectInfoPayload(0x00010001, mtp.FormatUndefined, mtp.ParentRoot, 1024, "IMG.JPG"), mtp.NewResponse(mtp.RespOK, 0))
	}()
	imgNode, err := internal.Lookup(ctx, "IMG.JPG")
	if err != nil {
		t.Fatalf("Lookup(IMG.JPG): %v", err)
	}

	handle, err := imgNode.(*Node).Open(ctx, &fuse.OpenRequest{}, &fuse.OpenResponse{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fh := handle.(*fileHandle)

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	go func() {
		respond(t, ctx, mock, false, payload, mtp.NewResponse(mtp.RespOK, 0, 1024))
	}()

	req := &fuse.ReadRequest{Offset: 0, Size: 1024}
	resp := &fuse.ReadResponse{}
	if err := fh.Read(ctx, req, resp); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(resp.Data) != 1024 {
		t.Fatalf("want 1024 bytes, got %d", len(resp.Data))
	}
}

func TestRootChildWriteFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tree, _ := newMountedTree(t, ctx)
	root := tree.Root()

	if _, err := root.Mkdir(ctx, &fuse.MkdirRequest{Name: "nope"}); err == nil {
		t.Fatal("expected mkdir at synthetic root to fail")
	}
}
