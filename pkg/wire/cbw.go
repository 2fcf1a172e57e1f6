// This file implements the Command Block Wrapper as defined in the USB
// Mass Storage Class Bulk-Only Transport spec 1.0, section 5.1.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// CBWSize is the wire size of a Command Block Wrapper. It is fixed
// regardless of the actual command length.
const CBWSize = 31

// CBWSignature is the dCBWSignature tag, "USBC" on the wire.
var CBWSignature = [4]byte{'U', 'S', 'B', 'C'}

// Direction of the data phase, carried in the bmCBWFlags field.
const (
	CBWFlagsDataOut uint8 = 0x00
	CBWFlagsDataIn  uint8 = 0x80
)

// ErrCommandLength is returned when a CBW carries a command block whose
// length is outside the 1..16 range the wrapper can express.
var ErrCommandLength = errors.New("wire: command block length not in 1..16")

// CommandBlockWrapper frames a single SCSI command sent to the device.
type CommandBlockWrapper struct {
	Signature          [4]byte
	Tag                uint32
	DataTransferLength uint32
	Flags              uint8
	LUN                uint8
	CommandLength      uint8
	Command            [16]byte
}

// NewCommandBlockWrapper builds a CBW for the given SCSI command block,
// left-justified and zero-padded into the 16-byte command field.
func NewCommandBlockWrapper(direction uint8, tag uint32, lun uint8, command []byte, dataLen uint32) (*CommandBlockWrapper, error) {
	if len(command) == 0 || len(command) > 16 {
		return nil, ErrCommandLength
	}
	cbw := &CommandBlockWrapper{
		Signature:          CBWSignature,
		Tag:                tag,
		DataTransferLength: dataLen,
		Flags:              direction,
		LUN:                lun,
		CommandLength:      uint8(len(command)),
	}
	copy(cbw.Command[:], command)
	return cbw, nil
}

func (cbw *CommandBlockWrapper) MarshalInto(buf []byte) error {
	if len(buf) < CBWSize {
		return io.ErrShortBuffer
	}
	if cbw.CommandLength == 0 || cbw.CommandLength > 16 {
		return ErrCommandLength
	}
	copy(buf[0:4], cbw.Signature[:])
	binary.LittleEndian.PutUint32(buf[4:8], cbw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], cbw.DataTransferLength)
	buf[12] = cbw.Flags
	buf[13] = cbw.LUN
	buf[14] = cbw.CommandLength
	copy(buf[15:31], cbw.Command[:])
	return nil
}

func (cbw *CommandBlockWrapper) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CBWSize)
	return buf, cbw.MarshalInto(buf)
}

// UnmarshalBinary validates only the buffer length; signature and flag
// checking is left to the caller.
func (cbw *CommandBlockWrapper) UnmarshalBinary(buf []byte) error {
	if len(buf) < CBWSize {
		return io.ErrShortBuffer
	}
	copy(cbw.Signature[:], buf[0:4])
	cbw.Tag = binary.LittleEndian.Uint32(buf[4:8])
	cbw.DataTransferLength = binary.LittleEndian.Uint32(buf[8:12])
	cbw.Flags = buf[12]
	cbw.LUN = buf[13]
	cbw.CommandLength = buf[14]
	copy(cbw.Command[:], buf[15:31])
	return nil
}
