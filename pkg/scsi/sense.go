package scsi

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SenseKey is the 4-bit classification in fixed-format sense data.
type SenseKey uint8

// Sense keys from SPC-4, table 54.
const (
	SenseNoSense        SenseKey = 0x00
	SenseRecoveredError SenseKey = 0x01
	SenseNotReady       SenseKey = 0x02
	SenseMediumError    SenseKey = 0x03
	SenseHardwareError  SenseKey = 0x04
	SenseIllegalRequest SenseKey = 0x05
	SenseUnitAttention  SenseKey = 0x06
	SenseDataProtect    SenseKey = 0x07
	SenseBlankCheck     SenseKey = 0x08
	SenseCopyAborted    SenseKey = 0x0a
	SenseAbortedCommand SenseKey = 0x0b
	SenseVolumeOverflow SenseKey = 0x0d
	SenseMiscompare     SenseKey = 0x0e
)

var senseKeyNames = map[SenseKey]string{
	SenseNoSense:        "no sense",
	SenseRecoveredError: "recovered error",
	SenseNotReady:       "not ready",
	SenseMediumError:    "medium error",
	SenseHardwareError:  "hardware error",
	SenseIllegalRequest: "illegal request",
	SenseUnitAttention:  "unit attention",
	SenseDataProtect:    "data protect",
	SenseBlankCheck:     "blank check",
	SenseCopyAborted:    "copy aborted",
	SenseAbortedCommand: "aborted command",
	SenseVolumeOverflow: "volume overflow",
	SenseMiscompare:     "miscompare",
}

func (k SenseKey) String() string {
	if n, ok := senseKeyNames[k]; ok {
		return n
	}
	return fmt.Sprintf("sense key %#x", uint8(k))
}

// Sense is the parsed fixed-format sense data (SPC-4 section 4.5.3)
// returned by REQUEST SENSE. The zero value means no sense, i.e. the
// device had nothing to report.
type Sense struct {
	ResponseCode uint8 // 0x70 current, 0x71 deferred; valid bit stripped
	Key          SenseKey
	Information  uint32
	ASC          uint8 // additional sense code
	ASCQ         uint8 // additional sense code qualifier
}

// OK reports whether the sense data describes a successful command.
func (s Sense) OK() bool {
	return s.Key == SenseNoSense
}

func (s Sense) String() string {
	if s.OK() {
		return "ok"
	}
	return fmt.Sprintf("%v (asc=%#02x ascq=%#02x)", s.Key, s.ASC, s.ASCQ)
}

func (s *Sense) UnmarshalBinary(buf []byte) error {
	if len(buf) < SenseLength {
		return io.ErrShortBuffer
	}
	s.ResponseCode = buf[0] & 0x7f
	s.Key = SenseKey(buf[2] & 0x0f)
	s.Information = binary.BigEndian.Uint32(buf[3:7])
	s.ASC = buf[12]
	s.ASCQ = buf[13]
	return nil
}
