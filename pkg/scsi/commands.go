// Package scsi carries the small slice of SCSI that a Bulk-Only
// Transport host needs: command opcodes, the fixed-format sense data
// returned by REQUEST SENSE, and the standard INQUIRY response.
package scsi

import (
	"fmt"
	"io"
)

// SCSI opcodes used by this package. Find the full list in SPC-4;
// sense codes are at www.t10.org/lists/asc-num.txt.
const (
	TestUnitReady = 0x00
	RequestSense  = 0x03
	Inquiry       = 0x12
	ModeSense6    = 0x1a
	ReadCapacity  = 0x25
	Read10        = 0x28
	Write10       = 0x2a
)

// Fixed-format sense data length requested by REQUEST SENSE.
const SenseLength = 18

// Minimum length of a standard INQUIRY response.
const InquiryLength = 36

// CDB types by command length.
type CDB6 [6]byte
type CDB10 [10]byte
type CDB16 [16]byte

// RequestSenseCDB builds the 6-byte REQUEST SENSE command block asking
// for the fixed 18-byte sense format.
func RequestSenseCDB() CDB6 {
	return CDB6{RequestSense, 0, 0, 0, SenseLength, 0}
}

// InquiryCDB builds the 6-byte INQUIRY command block for the standard
// 36-byte response.
func InquiryCDB() CDB6 {
	return CDB6{Inquiry, 0, 0, 0, InquiryLength, 0}
}

// TestUnitReadyCDB builds the 6-byte TEST UNIT READY command block.
func TestUnitReadyCDB() CDB6 {
	return CDB6{}
}

// InquiryResponse is the standard INQUIRY response, SPC-4 section 6.6.2.
type InquiryResponse struct {
	Peripheral   byte // peripheral qualifier, device type
	Removable    bool
	Version      byte
	VendorIdent  [8]byte
	ProductIdent [16]byte
	ProductRev   [4]byte
}

func (inq *InquiryResponse) UnmarshalBinary(buf []byte) error {
	if len(buf) < InquiryLength {
		return io.ErrShortBuffer
	}
	inq.Peripheral = buf[0]
	inq.Removable = buf[1]&0x80 != 0
	inq.Version = buf[2]
	copy(inq.VendorIdent[:], buf[8:16])
	copy(inq.ProductIdent[:], buf[16:32])
	copy(inq.ProductRev[:], buf[32:36])
	return nil
}

func (inq InquiryResponse) String() string {
	return fmt.Sprintf("%.8s  %.16s  %.4s", inq.VendorIdent, inq.ProductIdent, inq.ProductRev)
}
