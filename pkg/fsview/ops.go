package fsview

import (
	"context"
	"io"
	"os"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/mtplog"
)

// FS is the bazil.org/fuse filesystem implementation over one mounted
// device's [Tree].
type FS struct {
	tree *Tree
}

// NewFS wraps tree as a mountable [fusefs.FS].
func NewFS(tree *Tree) *FS { return &FS{tree: tree} }

var _ fusefs.FS = (*FS)(nil)
var _ fusefs.FSStatfser = (*FS)(nil)

// Root implements fusefs.FS.
func (f *FS) Root() (fusefs.Node, error) {
	return f.tree.Root(), nil
}

// Statfs sums maxCapacity/freeSpaceBytes across every storage and reports
// them in 1024-byte blocks, per the statfs operation contract.
func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	total, free, err := f.tree.statfsTotals(ctx)
	if err != nil {
		return err
	}
	const blockSize = 1024
	resp.Bsize = blockSize
	resp.Frsize = blockSize
	resp.Blocks = total / blockSize
	resp.Bfree = free / blockSize
	resp.Bavail = free / blockSize
	resp.Namelen = 255
	return nil
}

var (
	_ fusefs.Node               = (*Node)(nil)
	_ fusefs.NodeStringLookuper = (*Node)(nil)
	_ fusefs.HandleReadDirAller = (*Node)(nil)
	_ fusefs.NodeOpener         = (*Node)(nil)
	_ fusefs.NodeCreater        = (*Node)(nil)
	_ fusefs.NodeMkdirer        = (*Node)(nil)
	_ fusefs.NodeRemover        = (*Node)(nil)
	_ fusefs.NodeRenamer        = (*Node)(nil)
	_ fusefs.NodeSetattrer      = (*Node)(nil)
	_ fusefs.NodeFsyncer        = (*Node)(nil)
)

// Attr fills stat information: DIR when the object is a folder, else REG
// with size from the cached ObjectInfo. Mode is 0775 for directories and
// 0644 for files, per the getattr operation contract.
func (n *Node) Attr(ctx context.Context, a *fuse.Attr) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	a.Inode = n.inode()
	a.Size = n.size()
	a.Blocks = (a.Size + 511) / 512
	a.Atime = n.atime
	a.Mtime = n.mtime
	a.Ctime = n.mtime
	if !n.info.ModificationDate.Zero() {
		a.Mtime = n.info.ModificationDate.Time()
		a.Ctime = a.Mtime
	}
	if n.IsDir() {
		a.Mode = os.ModeDir | 0775
		a.Nlink = 2
	} else {
		a.Mode = 0644
		a.Nlink = 1
	}
	return nil
}

// Lookup resolves one path component against this node's children,
// fetching them from the device on first miss per the path-resolution
// contract. Lookup on a non-directory fails with [mtperr.ErrNotDir].
func (n *Node) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	if !n.IsDir() {
		return nil, fsErr(mtperr.ErrNotDir)
	}

	n.mu.Lock()
	child := n.childNamed(name)
	fetched := n.fetched
	n.mu.Unlock()
	if child != nil {
		return child, nil
	}
	if fetched {
		return nil, fuse.ENOENT
	}

	if n.isRoot {
		// Root's children are fixed at mount time; a miss here is final.
		return nil, fuse.ENOENT
	}

	if err := n.ensureChildren(ctx); err != nil {
		return nil, err
	}
	n.mu.Lock()
	child = n.childNamed(name)
	n.mu.Unlock()
	if child == nil {
		return nil, fuse.ENOENT
	}
	return child, nil
}

// ReadDirAll emits ".", "..", then each child name, fetching children if
// they have not already been fetched.
func (n *Node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	if !n.IsDir() {
		return nil, fsErr(mtperr.ErrNotDir)
	}
	if err := n.ensureChildren(ctx); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ents := make([]fuse.Dirent, 0, len(n.children)+2)
	ents = append(ents,
		fuse.Dirent{Name: ".", Type: fuse.DT_Dir},
		fuse.Dirent{Name: "..", Type: fuse.DT_Dir},
	)
	for _, c := range n.children {
		typ := fuse.DT_File
		if c.IsDir() {
			typ = fuse.DT_Dir
		}
		ents = append(ents, fuse.Dirent{Inode: c.inode(), Name: c.name(), Type: typ})
	}
	return ents, nil
}

// Open returns a read handle for a regular file. For a directory it
// returns the node itself, which serves ReadDirAll.
func (n *Node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	if n.IsDir() {
		return n, nil
	}
	resp.Flags |= fuse.OpenKeepCache
	return &fileHandle{node: n}, nil
}

// Create builds a minimal ObjectInfo (format undefined, this node as
// parent) and sends it via SendObjectInfo, storing the returned handle in
// a new child node. Per spec.md's write contract, the returned handle
// never accepts Write; MTP uploads are whole-object and this core
// revision does not buffer content for a deferred SendObject.
func (n *Node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	if n.isRoot {
		return nil, nil, fsErr(mtperr.ErrInvalid)
	}
	if !n.IsDir() {
		return nil, nil, fsErr(mtperr.ErrNotDir)
	}
	storage, parent := n.childParams()

	info := &mtp.ObjectInfo{
		StorageID:    storage,
		ParentObject: parent,
		ObjectFormat: mtp.FormatUndefined,
		Filename:     req.Name,
	}
	handle, err := n.tree.device.SendObjectInfo(ctx, info)
	if err != nil {
		return nil, nil, translateError(err)
	}
	info.Handle = handle
	child := n.tree.newObjectNode(*info)
	n.addChild(child)
	mtplog.Info(logComponent, "created object", "name", req.Name, "handle", handle)
	return child, &fileHandle{node: child}, nil
}

// Mkdir builds an association ObjectInfo and sends it via SendObjectInfo,
// rejecting any attempt to create a directory directly under the
// synthetic root (per invariant 4: the synthetic root is read-only).
func (n *Node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	if n.isRoot {
		return nil, fsErr(mtperr.ErrInvalid)
	}
	if !n.IsDir() {
		return nil, fsErr(mtperr.ErrNotDir)
	}
	storage, parent := n.childParams()

	info := &mtp.ObjectInfo{
		StorageID:       storage,
		ParentObject:    parent,
		ObjectFormat:    mtp.FormatAssociation,
		AssociationType: mtp.AssociationGenericFolder,
		Filename:        req.Name,
	}
	handle, err := n.tree.device.SendObjectInfo(ctx, info)
	if err != nil {
		return nil, translateError(err)
	}
	info.Handle = handle
	child := n.tree.newObjectNode(*info)
	child.fetched = true // a freshly created folder has no children yet
	n.addChild(child)
	mtplog.Info(logComponent, "created folder", "name", req.Name, "handle", handle)
	return child, nil
}

// Remove deletes an object via DeleteObject. Directories must be empty:
// a directory's children are fetched (if not already) and a non-empty
// one is rejected with [mtperr.ErrNotEmpty] before DeleteObject is sent.
func (n *Node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	n.mu.Lock()
	child := n.childNamed(req.Name)
	n.mu.Unlock()
	if child == nil {
		if err := n.ensureChildren(ctx); err != nil {
			return err
		}
		n.mu.Lock()
		child = n.childNamed(req.Name)
		n.mu.Unlock()
	}
	if child == nil {
		return fuse.ENOENT
	}
	if child.isRoot || child.isStorageRoot {
		return fsErr(mtperr.ErrInvalid)
	}
	if child.IsDir() {
		if err := child.ensureChildren(ctx); err != nil {
			return err
		}
		child.mu.Lock()
		count := len(child.children)
		child.mu.Unlock()
		if count > 0 {
			return fsErr(mtperr.ErrNotEmpty)
		}
	}
	if err := n.tree.device.DeleteObject(ctx, child.info.Handle); err != nil {
		return translateError(err)
	}
	n.removeChildNamed(req.Name)
	return nil
}

// Rename sets the object property FileName to the new basename. Per
// spec.md's rename contract, cross-directory rename is not attempted
// (MTP requires the optional MoveObject operation).
func (n *Node) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	if newDir != n {
		return fsErr(mtperr.ErrNotSupported)
	}
	n.mu.Lock()
	child := n.childNamed(req.OldName)
	n.mu.Unlock()
	if child == nil {
		return fuse.ENOENT
	}
	if child.isRoot || child.isStorageRoot {
		return fsErr(mtperr.ErrInvalid)
	}
	if err := n.tree.device.SetObjectName(ctx, child.info.Handle, req.NewName); err != nil {
		return translateError(err)
	}
	child.mu.Lock()
	child.info.Filename = req.NewName
	child.mu.Unlock()
	return nil
}

// Setattr updates the node's atime/mtime in memory and marks it
// modified; device write-back is deferred to Fsync, per the utimes
// operation contract.
func (n *Node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if n.isRoot || n.isStorageRoot {
		return fsErr(mtperr.ErrInvalid)
	}
	if req.Valid.Mode() {
		// MTP has no notion of permissions; chmod fails cleanly.
		return fsErr(mtperr.ErrNotSupported)
	}
	n.mu.Lock()
	if req.Valid.Atime() {
		n.atime = req.Atime
	}
	if req.Valid.Mtime() {
		n.mtime = req.Mtime
		n.info.ModificationDate = mtp.NewDateTime(req.Mtime)
	}
	n.modified = true
	n.mu.Unlock()
	n.tree.markModified(n)
	return n.Attr(ctx, &resp.Attr)
}

// Fsync flushes every node in the tree's modified set via SendObjectInfo
// and clears the set.
func (n *Node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return n.tree.flushModified(ctx)
}

// Symlink always fails: MTP has no symlink analogue.
func (n *Node) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fusefs.Node, error) {
	return nil, fsErr(mtperr.ErrNotSupported)
}

var _ fusefs.NodeSymlinker = (*Node)(nil)

// childParams returns the (storageID, parentHandle) pair a new child of
// n should carry: for a storage root, parent is [mtp.ParentRoot]; for
// every other directory it is the directory's own handle.
func (n *Node) childParams() (storage, parent uint32) {
	if n.isStorageRoot {
		return n.info.StorageID, mtp.ParentRoot
	}
	return n.info.StorageID, n.info.Handle
}

// fileHandle is the read/write handle for a regular file, returned by
// Open and Create.
type fileHandle struct {
	node *Node
}

var (
	_ fusefs.Handle       = (*fileHandle)(nil)
	_ fusefs.HandleReader = (*fileHandle)(nil)
	_ fusefs.HandleWriter = (*fileHandle)(nil)
	_ fusefs.HandleFlusher = (*fileHandle)(nil)
)

// Read copies length bytes starting at offset into resp.Data, using
// GetPartialObject64 when the device advertises support for it and
// GetPartialObject (32-bit offset) otherwise.
func (h *fileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	h.node.touch(time.Now())
	buf := &limitedBuffer{max: req.Size}
	info := h.node.tree.device.CachedDeviceInfo()

	var err error
	if info != nil && info.SupportsGetPartialObject64() {
		_, err = h.node.tree.device.GetPartialObject64(ctx, h.node.info.Handle, uint64(req.Offset), uint32(req.Size), buf)
	} else {
		_, err = h.node.tree.device.GetPartialObject(ctx, h.node.info.Handle, uint32(req.Offset), uint32(req.Size), buf)
	}
	if err != nil {
		return translateError(err)
	}
	resp.Data = buf.data
	return nil
}

// Write is not supported in this core revision: MTP has no partial-write
// operation, only whole-object upload via SendObjectInfo/SendObject.
func (h *fileHandle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	return fsErr(mtperr.ErrNotSupported)
}

// Flush is a no-op: there is no buffered write state to push, since
// Write always fails before any is accumulated.
func (h *fileHandle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return nil
}

// limitedBuffer is an io.Writer that accumulates up to max bytes, used as
// the sink for GetPartialObject/GetPartialObject64.
type limitedBuffer struct {
	data []byte
	max  int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if len(b.data)+len(p) > b.max {
		p = p[:b.max-len(b.data)]
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

var _ io.Writer = (*limitedBuffer)(nil)
