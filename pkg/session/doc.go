// Package session implements the MTP session and transaction engine: it
// owns a claimed device, sequences transactions over a
// [github.com/ardnew/mtpfs/pkg/usbtransport.Transport], and exposes the
// typed operations (GetStorageIDs, GetObjectInfo, SendObject, ...) the
// filesystem view builds on.
//
// Every exported operation on [Device] serializes through a single
// transaction mutex; events are reaped through a separate path that does
// not contend with it. See the package-level Device type for the exact
// concurrency contract.
package session
