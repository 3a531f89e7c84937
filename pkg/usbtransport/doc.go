// Package usbtransport defines the USB transport capability the MTP
// session engine runs on top of, and the concrete backends that satisfy
// it: a Linux usbdevfs implementation for real hardware, and an in-memory
// Mock for tests.
//
// The interface is deliberately thin: bulk and interrupt transfers,
// stall recovery, and device lookup by vendor/product id. Descriptor
// parsing, configuration selection, and interface claiming beyond the one
// MTP interface are out of scope, per
// [github.com/ardnew/mtpfs/pkg/session]'s needs.
package usbtransport
