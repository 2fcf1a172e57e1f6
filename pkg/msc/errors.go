package msc

import (
	"errors"
	"fmt"

	"github.com/wirebind/go-usbproto/pkg/scsi"
)

var (
	// ErrStatusSignature means the status wrapper did not carry the
	// "USBS" tag; the device is not following the protocol.
	ErrStatusSignature = errors.New("msc: wrong status signature")

	// ErrTagMismatch means the status wrapper echoed a tag that does
	// not belong to the command it should conclude.
	ErrTagMismatch = errors.New("msc: status tag does not match command tag")

	// ErrInconsistentStatus means a data phase stalled but the device
	// then reported the command as successful. The two contradict each
	// other, so the transfer cannot be trusted.
	ErrInconsistentStatus = errors.New("msc: device reported success after a stalled data phase")
)

// DeviceError is a failure the device itself reported through a nonzero
// status byte. Sense is set when a REQUEST SENSE round-trip supplied
// detail, and nil when the caller asked to fail immediately.
type DeviceError struct {
	Status uint8
	Sense  *scsi.Sense
}

func (e *DeviceError) Error() string {
	if e.Sense != nil {
		return fmt.Sprintf("msc: command failed (status %#02x): %v", e.Status, *e.Sense)
	}
	return fmt.Sprintf("msc: command failed (status %#02x)", e.Status)
}
