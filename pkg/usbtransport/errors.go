package usbtransport

import (
	"errors"

	"github.com/ardnew/mtpfs/pkg/mtperr"
)

// errNoMatchingDevice is returned by findDevice when no sysfs entry
// matches the requested vendor/product (and serial, if given).
var errNoMatchingDevice = errors.New("usbtransport: no matching device")

// errMultipleDevices aliases the shared sentinel so callers can match
// either name with errors.Is.
var errMultipleDevices = mtperr.ErrMultipleDevices
