// Package msc drives the SCSI Bulk-Only Transport protocol used by USB
// mass-storage devices: a 31-byte command wrapper, an optional data
// phase, and a 13-byte status wrapper, with REQUEST SENSE to explain
// failures.
package msc

import (
	"errors"
	"fmt"
	"log"

	"github.com/wirebind/go-usbproto/pkg/scsi"
	"github.com/wirebind/go-usbproto/pkg/transfers"
	"github.com/wirebind/go-usbproto/pkg/wire"
)

// Driver runs BOT command sequences over one bulk pipe. At most one
// command may be in flight; callers sharing a Driver across goroutines
// must serialize access themselves.
type Driver struct {
	t   transfers.BulkTransport
	tag uint32

	// LUN is the logical unit addressed by every command. Zero for
	// single-LUN devices, which is the common case.
	LUN uint8

	// Debug logs every wrapper exchanged on the pipe.
	Debug bool
}

func New(t transfers.BulkTransport) *Driver {
	return &Driver{t: t}
}

// SendCommand runs a command with no data phase and returns the
// device's sense outcome. With failOnError set, a failed status becomes
// a *DeviceError instead of a sense lookup.
func (d *Driver) SendCommand(command []byte, failOnError bool) (scsi.Sense, error) {
	tag, err := d.writeCommand(wire.CBWFlagsDataOut, command, 0)
	if err != nil {
		return scsi.Sense{}, err
	}
	return d.readStatus(tag, failOnError)
}

// SendWriteCommand runs a command with a host-to-device data phase. A
// stall during the data phase is cleared and the status phase decides
// the outcome; a stall that the device then reports as success is an
// ErrInconsistentStatus.
func (d *Driver) SendWriteCommand(command, data []byte, failOnError bool) (scsi.Sense, error) {
	tag, err := d.writeCommand(wire.CBWFlagsDataOut, command, uint32(len(data)))
	if err != nil {
		return scsi.Sense{}, err
	}

	stalled := false
	if _, err := d.t.Write(data); err != nil {
		if !errors.Is(err, transfers.ErrStall) {
			return scsi.Sense{}, fmt.Errorf("msc: data phase write: %w", err)
		}
		stalled = true
		if err := d.t.ClearHalt(transfers.DirectionOut); err != nil {
			return scsi.Sense{}, fmt.Errorf("msc: clearing halt after write stall: %w", err)
		}
	}

	sense, err := d.readStatus(tag, failOnError)
	if err != nil {
		return sense, err
	}
	if stalled && sense.OK() {
		return sense, ErrInconsistentStatus
	}
	return sense, nil
}

// SendReadCommand runs a command with a device-to-host data phase of up
// to size bytes and returns the sense outcome together with the data
// read. The stall rule is the same as for SendWriteCommand.
func (d *Driver) SendReadCommand(command []byte, size int, failOnError bool) (scsi.Sense, []byte, error) {
	tag, err := d.writeCommand(wire.CBWFlagsDataIn, command, uint32(size))
	if err != nil {
		return scsi.Sense{}, nil, err
	}

	stalled := false
	var data []byte
	if data, err = d.t.Read(size); err != nil {
		if !errors.Is(err, transfers.ErrStall) {
			return scsi.Sense{}, nil, fmt.Errorf("msc: data phase read: %w", err)
		}
		stalled = true
		data = nil
		if err := d.t.ClearHalt(transfers.DirectionIn); err != nil {
			return scsi.Sense{}, nil, fmt.Errorf("msc: clearing halt after read stall: %w", err)
		}
	}

	sense, err := d.readStatus(tag, failOnError)
	if err != nil {
		return sense, data, err
	}
	if stalled && sense.OK() {
		return sense, data, ErrInconsistentStatus
	}
	return sense, data, nil
}

// RequestSense asks the device why the previous command failed. It runs
// with failOnError set so a failing REQUEST SENSE cannot recurse into
// another sense lookup.
func (d *Driver) RequestSense() (scsi.Sense, error) {
	cdb := scsi.RequestSenseCDB()
	_, data, err := d.SendReadCommand(cdb[:], scsi.SenseLength, true)
	if err != nil {
		return scsi.Sense{}, err
	}
	var sense scsi.Sense
	if err := sense.UnmarshalBinary(data); err != nil {
		return scsi.Sense{}, fmt.Errorf("msc: parsing sense data: %w", err)
	}
	return sense, nil
}

// Inquiry runs a standard INQUIRY and returns the parsed response.
func (d *Driver) Inquiry() (*scsi.InquiryResponse, error) {
	cdb := scsi.InquiryCDB()
	sense, data, err := d.SendReadCommand(cdb[:], scsi.InquiryLength, false)
	if err != nil {
		return nil, err
	}
	if !sense.OK() {
		return nil, &DeviceError{Status: wire.CSWStatusFailed, Sense: &sense}
	}
	inq := &scsi.InquiryResponse{}
	if err := inq.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return inq, nil
}

// TestUnitReady reports whether the unit is ready to accept commands.
func (d *Driver) TestUnitReady() (scsi.Sense, error) {
	cdb := scsi.TestUnitReadyCDB()
	return d.SendCommand(cdb[:], false)
}

// writeCommand assigns the next tag and ships the CBW. The tag comes
// back in the status wrapper and ties the two together.
func (d *Driver) writeCommand(direction uint8, command []byte, dataLen uint32) (uint32, error) {
	d.tag++
	cbw, err := wire.NewCommandBlockWrapper(direction, d.tag, d.LUN, command, dataLen)
	if err != nil {
		return 0, err
	}
	buf, err := cbw.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if d.Debug {
		log.Printf("msc: -> cbw tag=%d dir=%#02x dataLen=%d cmd=% x", d.tag, direction, dataLen, command)
	}
	if _, err := d.t.Write(buf); err != nil {
		return 0, fmt.Errorf("msc: command phase: %w", err)
	}
	return d.tag, nil
}

// readStatus reads and validates the CSW and turns its status byte into
// the caller's outcome. The status phase is authoritative: stalls in
// the data phase have already been cleared by the time we get here.
func (d *Driver) readStatus(tag uint32, failOnError bool) (scsi.Sense, error) {
	buf, err := d.t.Read(wire.CSWSize)
	if err != nil {
		return scsi.Sense{}, fmt.Errorf("msc: status phase: %w", err)
	}
	var csw wire.CommandStatusWrapper
	if err := csw.UnmarshalBinary(buf); err != nil {
		return scsi.Sense{}, fmt.Errorf("msc: status phase: %w", err)
	}
	if !csw.SignatureOK() {
		return scsi.Sense{}, fmt.Errorf("%w: % x", ErrStatusSignature, csw.Signature)
	}
	if csw.Tag != tag {
		return scsi.Sense{}, fmt.Errorf("%w: got %d, want %d", ErrTagMismatch, csw.Tag, tag)
	}
	if d.Debug {
		log.Printf("msc: <- csw tag=%d residue=%d status=%d", csw.Tag, csw.DataResidue, csw.Status)
	}
	if csw.Status != wire.CSWStatusPassed {
		if failOnError {
			return scsi.Sense{}, &DeviceError{Status: csw.Status}
		}
		return d.RequestSense()
	}
	return scsi.Sense{}, nil
}
