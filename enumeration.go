package usbproto

import (
	usb "github.com/kevmo314/go-usb"
)

// DeviceInfo describes one enumerated USB device.
type DeviceInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Class        uint8
	Manufacturer string
	Product      string
	Serial       string
}

// IsMassStorage reports whether the device advertises a mass-storage
// interface class.
func (i DeviceInfo) IsMassStorage() bool { return i.Class == ClassMassStorage }

// IsStillImage reports whether the device advertises a still-image
// interface class.
func (i DeviceInfo) IsStillImage() bool { return i.Class == ClassStillImage }

// ListDevices enumerates attached USB devices, filtered by vendor id
// when vendor is nonzero. Class is taken from the first interface of
// the active configuration where the device can be opened, and falls
// back to the device descriptor's class otherwise.
func ListDevices(vendor uint16) ([]DeviceInfo, error) {
	devices, err := usb.DeviceList()
	if err != nil {
		return nil, err
	}

	var out []DeviceInfo
	for _, dev := range devices {
		if vendor != 0 && dev.Descriptor.VendorID != vendor {
			continue
		}
		info := DeviceInfo{
			Path:      dev.Path,
			VendorID:  dev.Descriptor.VendorID,
			ProductID: dev.Descriptor.ProductID,
			Class:     dev.Descriptor.DeviceClass,
		}
		if dev.SysfsStrings != nil {
			info.Manufacturer = dev.SysfsStrings.Manufacturer
			info.Product = dev.SysfsStrings.Product
			info.Serial = dev.SysfsStrings.Serial
		}
		if handle, err := dev.Open(); err == nil {
			if config, err := handle.GetActiveConfigDescriptor(); err == nil {
				for _, iface := range config.Interfaces {
					if len(iface.AltSettings) > 0 {
						info.Class = iface.AltSettings[0].InterfaceClass
						break
					}
				}
			}
			handle.Close()
		}
		out = append(out, info)
	}
	return out, nil
}
