package ptp

import "fmt"

// Operation codes from PIMA 15740 section 10.4.
const (
	CodeGetDeviceInfo    uint16 = 0x1001
	CodeOpenSession      uint16 = 0x1002
	CodeCloseSession     uint16 = 0x1003
	CodeGetStorageIDs    uint16 = 0x1004
	CodeGetStorageInfo   uint16 = 0x1005
	CodeGetNumObjects    uint16 = 0x1006
	CodeGetObjectHandles uint16 = 0x1007
	CodeGetObjectInfo    uint16 = 0x1008
	CodeGetObject        uint16 = 0x1009
	CodeSendObjectInfo   uint16 = 0x100C
	CodeSendObject       uint16 = 0x100D
)

// Response codes from PIMA 15740 section 11.
const (
	ResponseOK                    uint16 = 0x2001
	ResponseGeneralError          uint16 = 0x2002
	ResponseSessionNotOpen        uint16 = 0x2003
	ResponseInvalidTransactionID  uint16 = 0x2004
	ResponseOperationNotSupported uint16 = 0x2005
	ResponseParameterNotSupported uint16 = 0x2006
	ResponseIncompleteTransfer    uint16 = 0x2007
	ResponseInvalidStorageID      uint16 = 0x2008
	ResponseInvalidObjectHandle   uint16 = 0x2009
	ResponseDeviceBusy            uint16 = 0x2019
	ResponseSessionAlreadyOpen    uint16 = 0x201E
)

var responseNames = map[uint16]string{
	ResponseGeneralError:          "general error",
	ResponseSessionNotOpen:        "session not open",
	ResponseInvalidTransactionID:  "invalid transaction id",
	ResponseOperationNotSupported: "operation not supported",
	ResponseParameterNotSupported: "parameter not supported",
	ResponseIncompleteTransfer:    "incomplete transfer",
	ResponseInvalidStorageID:      "invalid storage id",
	ResponseInvalidObjectHandle:   "invalid object handle",
	ResponseDeviceBusy:            "device busy",
	ResponseSessionAlreadyOpen:    "session already open",
}

// ResponseError is a non-OK response code returned by the device.
type ResponseError uint16

func (e ResponseError) Error() string {
	if n, ok := responseNames[uint16(e)]; ok {
		return fmt.Sprintf("ptp: %s", n)
	}
	return fmt.Sprintf("ptp: response %#04x", uint16(e))
}

// CheckResponse turns a response code into an error, nil for OK.
func CheckResponse(code uint16) error {
	if code == ResponseOK {
		return nil
	}
	return ResponseError(code)
}
