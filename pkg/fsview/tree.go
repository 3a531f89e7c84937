package fsview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"

	"bazil.org/fuse"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtperr"
	"github.com/ardnew/mtpfs/pkg/mtplog"
	"github.com/ardnew/mtpfs/pkg/session"
)

// Tree owns the node cache for one mounted device: the synthetic root,
// its per-storage children, and the modified-set fsync tracks. The Node
// tree is read and mutated only from the VFS-operation goroutine that
// bazil.org/fuse drives a mount's requests from; no separate mutation
// path exists in this revision.
type Tree struct {
	device *session.Device
	root   *Node

	storageMu sync.Mutex
	storages  map[uint32]*mtp.StorageInfo

	modMu    sync.Mutex
	modified map[uint32]*Node
}

// New builds a Tree by opening a session on device and enumerating its
// storages, populating the synthetic root's children. Per invariant 5,
// root has exactly one child per storage reported by GetStorageIDs at
// mount time.
func New(ctx context.Context, device *session.Device) (*Tree, error) {
	if err := device.OpenSession(ctx); err != nil {
		return nil, fmt.Errorf("fsview: open session: %w", err)
	}
	if _, err := device.GetDeviceInfo(ctx); err != nil {
		return nil, fmt.Errorf("fsview: get device info: %w", err)
	}

	t := &Tree{
		device:   device,
		storages: make(map[uint32]*mtp.StorageInfo),
		modified: make(map[uint32]*Node),
	}

	t.root = &Node{
		tree:   t,
		isRoot: true,
		info: mtp.ObjectInfo{
			Handle:       rootFileHandle,
			ParentObject: invalidFileHandle,
			ObjectFormat: mtp.FormatAssociation,
		},
	}

	ids, err := device.GetStorageIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fsview: get storage ids: %w", err)
	}
	for _, id := range ids {
		info, err := device.GetStorageInfo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fsview: get storage info 0x%08x: %w", id, err)
		}
		t.storageMu.Lock()
		t.storages[id] = info
		t.storageMu.Unlock()

		storageRoot := &Node{
			tree:          t,
			isStorageRoot: true,
			info: mtp.ObjectInfo{
				Handle:       mtp.ParentRoot,
				StorageID:    id,
				ParentObject: invalidFileHandle,
				ObjectFormat: mtp.FormatAssociation,
				Filename:     info.StorageDescription,
			},
		}
		t.root.children = append(t.root.children, storageRoot)
	}
	t.root.fetched = true

	mtplog.Info(logComponent, "mounted device", "storages", len(ids), "device", device.String())
	return t, nil
}

// newObjectNode wraps a decoded ObjectInfo as a fresh Node, owned by the
// caller (typically appended to a parent's children slice).
func (t *Tree) newObjectNode(info mtp.ObjectInfo) *Node {
	return &Node{tree: t, info: info}
}

// Root returns the filesystem's synthetic root node.
func (t *Tree) Root() *Node { return t.root }

// markModified adds n to the fsync flush set, keyed by handle so a node
// marked more than once is flushed once. The set stores the *Node itself,
// not a handle to be resolved again at flush time; its ObjectInfo is
// copied when the set is flushed.
func (t *Tree) markModified(n *Node) {
	t.modMu.Lock()
	t.modified[n.info.Handle] = n
	t.modMu.Unlock()
}

// flushModified re-pushes every modified node's ObjectInfo via
// SendObjectInfo and clears the set, per the fsync operation contract.
func (t *Tree) flushModified(ctx context.Context) error {
	t.modMu.Lock()
	pending := make([]*Node, 0, len(t.modified))
	for _, n := range t.modified {
		pending = append(pending, n)
	}
	t.modified = make(map[uint32]*Node)
	t.modMu.Unlock()

	for _, n := range pending {
		n.mu.Lock()
		info := n.info
		n.modified = false
		n.mu.Unlock()
		if _, err := t.device.SendObjectInfo(ctx, &info); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// statfsTotals sums MaxCapacity and FreeSpaceInBytes across every known
// storage, refreshing the cached StorageInfo for each from the device.
func (t *Tree) statfsTotals(ctx context.Context) (total, free uint64, err error) {
	t.storageMu.Lock()
	ids := make([]uint32, 0, len(t.storages))
	for id := range t.storages {
		ids = append(ids, id)
	}
	t.storageMu.Unlock()

	for _, id := range ids {
		info, err := t.device.GetStorageInfo(ctx, id)
		if err != nil {
			return 0, 0, translateError(err)
		}
		t.storageMu.Lock()
		t.storages[id] = info
		t.storageMu.Unlock()
		total += info.MaxCapacity
		free += info.FreeSpaceInBytes
	}
	return total, free, nil
}

// translateError maps a session/mtperr error into the FsOp-kind errors
// the VFS binding expects, using mtperr.FromResponse for wire-level
// response codes and a fixed fallback map for everything else, per the
// error-handling design in spec.md §7. The result implements
// [fuse.ErrorNumber] so bazil.org/fuse reports the matching errno to the
// kernel instead of defaulting every failure to EIO.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *mtperr.ResponseError
	if errors.As(err, &rerr) {
		return errno{mtperr.FromResponse(rerr.Code)}
	}
	if errors.Is(err, mtperr.ErrNotSupported) {
		return errno{mtperr.Fs(mtperr.ErrNotSupported, err)}
	}
	return errno{mtperr.Fs(mtperr.ErrIO, err)}
}

// errno adapts an *mtperr.FsError to [fuse.ErrorNumber] so the kernel sees
// the right errno (ENOENT, ENOTEMPTY, ...) instead of a blanket EIO.
type errno struct{ error }

func (e errno) Errno() fuse.Errno {
	var fserr *mtperr.FsError
	if !errors.As(e.error, &fserr) {
		return fuse.EIO
	}
	switch fserr.Kind {
	case mtperr.ErrNoEntry:
		return fuse.ENOENT
	case mtperr.ErrNotDir:
		return fuse.Errno(syscall.ENOTDIR)
	case mtperr.ErrNotEmpty:
		return fuse.Errno(syscall.ENOTEMPTY)
	case mtperr.ErrInvalid:
		return fuse.Errno(syscall.EINVAL)
	case mtperr.ErrNotSupported:
		return fuse.ENOSYS
	case mtperr.ErrNoSpace:
		return fuse.Errno(syscall.ENOSPC)
	default:
		return fuse.EIO
	}
}

var _ fuse.ErrorNumber = errno{}

// fsErr builds an errno-carrying [mtperr.FsError] of the given kind, for
// operation handlers that fail locally (no underlying device error to
// wrap).
func fsErr(kind error) error {
	return errno{mtperr.Fs(kind, nil)}
}

