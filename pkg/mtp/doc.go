// Package mtp implements the Media Transfer Protocol wire format: container
// framing, typed scalar/array/string encoding, and the object, storage, and
// device descriptor structures exchanged with an MTP responder.
//
// It does not open a USB connection or sequence transactions; that is the
// job of [github.com/ardnew/mtpfs/pkg/session], which uses this package to
// build and parse the packets it sends and receives.
package mtp
