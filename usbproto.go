// Package usbproto opens USB devices and hands out protocol drivers for
// the two request/response protocols that run on bulk pipes: the SCSI
// Bulk-Only Transport spoken by mass-storage devices and the PTP/MTP
// command/data/response protocol spoken by imaging and media devices.
package usbproto

import (
	"fmt"

	usb "github.com/kevmo314/go-usb"

	"github.com/wirebind/go-usbproto/pkg/msc"
	"github.com/wirebind/go-usbproto/pkg/ptp"
	"github.com/wirebind/go-usbproto/pkg/transfers"
)

// USB interface classes for the supported protocols.
const (
	ClassStillImage  = 0x06
	ClassMassStorage = 0x08
)

// Device is an opened USB device that protocol drivers can be claimed
// from.
type Device struct {
	handle *usb.DeviceHandle
}

// Open wraps an already-open file descriptor for a usbfs device node.
func Open(fd uintptr) (*Device, error) {
	handle, err := usb.WrapSysDevice(int(fd))
	if err != nil {
		return nil, err
	}
	return &Device{handle: handle}, nil
}

// FromHandle adopts an existing go-usb device handle.
func FromHandle(handle *usb.DeviceHandle) *Device {
	return &Device{handle: handle}
}

func (d *Device) Close() error {
	return d.handle.Close()
}

// Handle exposes the underlying go-usb handle for operations this
// package does not wrap.
func (d *Device) Handle() *usb.DeviceHandle {
	return d.handle
}

// MassStorage claims the device's mass-storage interface and returns a
// BOT driver on its bulk pipe.
func (d *Device) MassStorage() (*msc.Driver, error) {
	ep, err := d.ClaimBulkInterface(ClassMassStorage)
	if err != nil {
		return nil, err
	}
	return msc.New(ep), nil
}

// StillImage claims the device's still-image interface and returns a
// PTP/MTP driver on its bulk pipe.
func (d *Device) StillImage() (*ptp.Driver, error) {
	ep, err := d.ClaimBulkInterface(ClassStillImage)
	if err != nil {
		return nil, err
	}
	return ptp.New(ep), nil
}

// ClaimBulkInterface finds the first interface of the given class that
// exposes a bulk-in/bulk-out endpoint pair, detaches any kernel driver,
// claims it, and returns the bulk pipe. Failing to satisfy any of that
// is a setup error, not a protocol fault.
func (d *Device) ClaimBulkInterface(class uint8) (*transfers.BulkEndpoint, error) {
	config, err := d.handle.GetActiveConfigDescriptor()
	if err != nil {
		return nil, fmt.Errorf("usbproto: reading config descriptor: %w", err)
	}
	for _, iface := range config.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.InterfaceClass != class {
				continue
			}
			in, out, err := transfers.FindBulkEndpoints(alt.Endpoints)
			if err != nil {
				continue
			}
			ifnum := alt.InterfaceNumber
			if active, err := d.handle.KernelDriverActive(ifnum); err == nil && active {
				if err := d.handle.DetachKernelDriver(ifnum); err != nil {
					return nil, fmt.Errorf("usbproto: detaching kernel driver from interface %d: %w", ifnum, err)
				}
			}
			if err := d.handle.ClaimInterface(ifnum); err != nil {
				return nil, fmt.Errorf("usbproto: claiming interface %d: %w", ifnum, err)
			}
			return transfers.NewBulkEndpoint(d.handle, in, out), nil
		}
	}
	return nil, fmt.Errorf("%w: class %#02x", ErrInterfaceNotFound, class)
}
