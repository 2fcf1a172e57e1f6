// This file implements the generic container header that precedes every
// PTP/MTP packet on the USB bulk pipe, as defined in PIMA 15740 annex D
// and the MTP spec, appendix E.
package wire

import (
	"encoding/binary"
	"io"
)

// PTPHeaderSize is the wire size of the container header.
const PTPHeaderSize = 12

// PTPContainerType identifies the phase a container belongs to.
type PTPContainerType uint16

const (
	PTPContainerUndefined PTPContainerType = 0
	PTPContainerCommand   PTPContainerType = 1
	PTPContainerData      PTPContainerType = 2
	PTPContainerResponse  PTPContainerType = 3
	PTPContainerEvent     PTPContainerType = 4
)

func (t PTPContainerType) String() string {
	switch t {
	case PTPContainerCommand:
		return "command"
	case PTPContainerData:
		return "data"
	case PTPContainerResponse:
		return "response"
	case PTPContainerEvent:
		return "event"
	default:
		return "undefined"
	}
}

// PTPHeader precedes every PTP/MTP container. Size counts the header
// itself plus the payload that follows it.
type PTPHeader struct {
	Size        uint32
	Type        PTPContainerType
	Code        uint16
	Transaction uint32
}

func (h *PTPHeader) MarshalInto(buf []byte) error {
	if len(buf) < PTPHeaderSize {
		return io.ErrShortBuffer
	}
	binary.LittleEndian.PutUint32(buf[0:4], h.Size)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(h.Type))
	binary.LittleEndian.PutUint16(buf[6:8], h.Code)
	binary.LittleEndian.PutUint32(buf[8:12], h.Transaction)
	return nil
}

func (h *PTPHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PTPHeaderSize)
	return buf, h.MarshalInto(buf)
}

func (h *PTPHeader) UnmarshalBinary(buf []byte) error {
	if len(buf) < PTPHeaderSize {
		return io.ErrShortBuffer
	}
	h.Size = binary.LittleEndian.Uint32(buf[0:4])
	h.Type = PTPContainerType(binary.LittleEndian.Uint16(buf[4:6]))
	h.Code = binary.LittleEndian.Uint16(buf[6:8])
	h.Transaction = binary.LittleEndian.Uint32(buf[8:12])
	return nil
}
