// Package fsview adapts the MTP session engine into a bazil.org/fuse
// filesystem: a synthetic root whose children are per-storage folders, a
// lazily-populated node cache underneath, and operation handlers that
// translate VFS calls into MTP operation sequences.
package fsview
