//go:build linux

package usbtransport

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const sysfsUSBPath = "/sys/bus/usb/devices"

// sysfsDevice is one candidate found by scanning sysfs.
type sysfsDevice struct {
	path      string
	busNum    int
	devNum    int
	vendorID  uint16
	productID uint16
	serial    string
	manufacturer string
	product   string
}

func scanSysfsDevices() ([]sysfsDevice, error) {
	entries, err := os.ReadDir(sysfsUSBPath)
	if err != nil {
		return nil, err
	}

	var devices []sysfsDevice
	for _, entry := range entries {
		name := entry.Name()
		// Skip root hubs ("usb1", "usb2", ...) and interface entries
		// ("1-1:1.0"), keeping only plain device entries ("1-1", "1-1.2").
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		devPath := filepath.Join(sysfsUSBPath, name)
		dev, err := parseSysfsDevice(devPath)
		if err != nil {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func parseSysfsDevice(path string) (sysfsDevice, error) {
	dev := sysfsDevice{path: path}

	busNum, err := readSysfsUint(filepath.Join(path, "busnum"))
	if err != nil {
		return dev, err
	}
	dev.busNum = int(busNum)

	devNum, err := readSysfsUint(filepath.Join(path, "devnum"))
	if err != nil {
		return dev, err
	}
	dev.devNum = int(devNum)

	if v, err := readSysfsHex(filepath.Join(path, "idVendor")); err == nil {
		dev.vendorID = uint16(v)
	}
	if p, err := readSysfsHex(filepath.Join(path, "idProduct")); err == nil {
		dev.productID = uint16(p)
	}
	dev.serial, _ = readSysfsString(filepath.Join(path, "serial"))
	dev.manufacturer, _ = readSysfsString(filepath.Join(path, "manufacturer"))
	dev.product, _ = readSysfsString(filepath.Join(path, "product"))

	return dev, nil
}

func (d sysfsDevice) devfsPath() string {
	return filepath.Join("/dev/bus/usb", padNum(d.busNum), padNum(d.devNum))
}

func padNum(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readSysfsUint(path string) (uint64, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, 64)
}

func readSysfsHex(path string) (uint64, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}

// ListDevices enumerates USB devices visible via sysfs and returns their
// vendor/product/serial identity, without opening or claiming any of
// them.
func ListDevices() ([]DeviceInfo, error) {
	devices, err := scanSysfsDevices()
	if err != nil {
		return nil, err
	}
	out := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceInfo{
			VendorID:     d.vendorID,
			ProductID:    d.productID,
			Serial:       d.serial,
			Manufacturer: d.manufacturer,
			Product:      d.product,
			BusNum:       d.busNum,
			DevNum:       d.devNum,
		})
	}
	return out, nil
}

// findDevice locates the sysfs entry for (vid, pid[, serial]). When more
// than one device matches vid/pid and no serial disambiguates them, it
// returns [mtperr.ErrMultipleDevices].
func findDevice(vid, pid uint16, serial string) (sysfsDevice, error) {
	devices, err := scanSysfsDevices()
	if err != nil {
		return sysfsDevice{}, err
	}

	var matches []sysfsDevice
	for _, d := range devices {
		if d.vendorID != vid || d.productID != pid {
			continue
		}
		if serial != "" && d.serial != serial {
			continue
		}
		matches = append(matches, d)
	}

	switch len(matches) {
	case 0:
		return sysfsDevice{}, errNoMatchingDevice
	case 1:
		return matches[0], nil
	default:
		return sysfsDevice{}, errMultipleDevices
	}
}
