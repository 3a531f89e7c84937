package fsview

import (
	"context"
	"sync"
	"time"

	"github.com/ardnew/mtpfs/pkg/mtp"
	"github.com/ardnew/mtpfs/pkg/mtplog"
)

// logComponent tags every log record this package emits.
const logComponent = mtplog.ComponentFS

// Sentinel handles, distinct from mtp.ParentRoot (the protocol's "top of
// storage" sentinel, used as the storage-root node's own handle).
const (
	rootFileHandle    uint32 = 0
	invalidFileHandle uint32 = 0xFFFFFFFE
)

// Node is the cached local representation of one MTP object (or one of
// the two synthetic kinds: the filesystem root and a per-storage root),
// plus the bookkeeping the filesystem view needs to translate VFS calls
// into MTP operations.
//
// Node.children is authoritative only when Node.fetched is true;
// otherwise it is a partial cache holding only the children added
// locally by Create or Mkdir.
type Node struct {
	tree *Tree

	info mtp.ObjectInfo

	isRoot        bool // the single synthetic top-level root
	isStorageRoot bool // a synthetic per-storage root

	mu       sync.Mutex
	children []*Node
	fetched  bool
	modified bool
	atime    time.Time
	mtime    time.Time
}

// IsDir reports whether this node is a folder: the synthetic root, a
// storage root, or an MTP association.
func (n *Node) IsDir() bool {
	return n.isRoot || n.isStorageRoot || n.info.ObjectFormat == mtp.FormatAssociation
}

// inode derives a stable fuse inode number from the storage id and
// handle, since both are only unique together (handles are only unique
// within a storage in principle, and the two synthetic kinds reuse
// sentinel handle values across storages).
func (n *Node) inode() uint64 {
	if n.isRoot {
		return 1
	}
	return uint64(n.info.StorageID)<<32 | uint64(n.info.Handle)
}

func (n *Node) name() string {
	return n.info.Filename
}

// childNamed returns the cached child with the given name, if present.
// Must be called with n.mu held.
func (n *Node) childNamed(name string) *Node {
	for _, c := range n.children {
		if c.name() == name {
			return c
		}
	}
	return nil
}

// ensureChildren fetches this node's children from the device if they
// have not already been fetched, per the fetched-monotonicity invariant:
// once fetched is true, subsequent calls issue zero device calls.
func (n *Node) ensureChildren(ctx context.Context) error {
	n.mu.Lock()
	if n.fetched {
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	if n.isRoot {
		// Root's children are the fixed per-storage list built at mount
		// time; nothing to fetch lazily.
		n.mu.Lock()
		n.fetched = true
		n.mu.Unlock()
		return nil
	}

	storage := n.info.StorageID
	parent := n.info.Handle
	if n.isStorageRoot {
		parent = mtp.ParentRoot
	}

	handles, err := n.tree.device.GetObjectHandles(ctx, storage, mtp.FormatAll, parent)
	if err != nil {
		return translateError(err)
	}

	children := make([]*Node, 0, len(handles))
	for _, h := range handles {
		info, err := n.tree.device.GetObjectInfo(ctx, h)
		if err != nil {
			return translateError(err)
		}
		children = append(children, n.tree.newObjectNode(*info))
	}

	n.mu.Lock()
	n.children = children
	n.fetched = true
	n.mu.Unlock()
	mtplog.Debug(logComponent, "fetched children", "parent", parent, "storage", storage, "count", len(children))
	return nil
}

// invalidate drops the fetched flag and cached children, forcing the next
// ensureChildren call to re-fetch from the device. Not called by any
// operation in this revision; event-driven invalidation is an open
// question left for a future device-change listener (spec.md §9).
func (n *Node) invalidate() {
	n.mu.Lock()
	n.fetched = false
	n.children = nil
	n.mu.Unlock()
}

func (n *Node) addChild(c *Node) {
	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()
}

func (n *Node) removeChildNamed(name string) {
	n.mu.Lock()
	for i, c := range n.children {
		if c.name() == name {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
}

// touch records now as the node's access time, used by getattr. Both
// atime and mtime default to the zero time (rendered as the Unix epoch)
// until set by a read, a real device timestamp, or a utimes call.
func (n *Node) touch(now time.Time) {
	n.mu.Lock()
	n.atime = now
	n.mu.Unlock()
}

// size returns the node's apparent size in bytes, as reported to getattr.
func (n *Node) size() uint64 {
	if n.IsDir() {
		return 512
	}
	return uint64(n.info.ObjectCompressedSize)
}
