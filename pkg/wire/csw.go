// This file implements the Command Status Wrapper as defined in the USB
// Mass Storage Class Bulk-Only Transport spec 1.0, section 5.2.
package wire

import (
	"encoding/binary"
	"io"
)

// CSWSize is the wire size of a Command Status Wrapper.
const CSWSize = 13

// CSWSignature is the dCSWSignature tag, "USBS" on the wire.
var CSWSignature = [4]byte{'U', 'S', 'B', 'S'}

// Command status values from BOT spec 1.0, table 5.3.
const (
	CSWStatusPassed     uint8 = 0x00
	CSWStatusFailed     uint8 = 0x01
	CSWStatusPhaseError uint8 = 0x02
)

// CommandStatusWrapper is the device's report on a completed command.
type CommandStatusWrapper struct {
	Signature   [4]byte
	Tag         uint32
	DataResidue uint32
	Status      uint8
}

// SignatureOK reports whether the wrapper carries the "USBS" tag.
func (csw *CommandStatusWrapper) SignatureOK() bool {
	return csw.Signature == CSWSignature
}

func (csw *CommandStatusWrapper) MarshalInto(buf []byte) error {
	if len(buf) < CSWSize {
		return io.ErrShortBuffer
	}
	copy(buf[0:4], csw.Signature[:])
	binary.LittleEndian.PutUint32(buf[4:8], csw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], csw.DataResidue)
	buf[12] = csw.Status
	return nil
}

func (csw *CommandStatusWrapper) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CSWSize)
	return buf, csw.MarshalInto(buf)
}

// UnmarshalBinary validates only the buffer length; the caller decides
// what to do about a wrong signature.
func (csw *CommandStatusWrapper) UnmarshalBinary(buf []byte) error {
	if len(buf) < CSWSize {
		return io.ErrShortBuffer
	}
	copy(csw.Signature[:], buf[0:4])
	csw.Tag = binary.LittleEndian.Uint32(buf[4:8])
	csw.DataResidue = binary.LittleEndian.Uint32(buf[8:12])
	csw.Status = buf[12]
	return nil
}
