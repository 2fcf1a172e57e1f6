package transfers

import (
	"errors"
	"fmt"
	"time"

	usb "github.com/kevmo314/go-usb"
	"golang.org/x/sys/unix"
)

const (
	endpointDirectionIn  = 0x80
	endpointTransferMask = 0x03
	endpointTransferBulk = 0x02
)

// ErrNoBulkEndpoints is returned when an interface does not expose a
// bulk-in/bulk-out endpoint pair.
var ErrNoBulkEndpoints = errors.New("transfers: interface has no bulk in/out endpoint pair")

// FindBulkEndpoints picks the first bulk-in and bulk-out endpoint
// addresses from an alternate setting's endpoint descriptors.
func FindBulkEndpoints(endpoints []usb.Endpoint) (in, out uint8, err error) {
	for _, ep := range endpoints {
		if ep.Attributes&endpointTransferMask != endpointTransferBulk {
			continue
		}
		if ep.EndpointAddr&endpointDirectionIn != 0 {
			if in == 0 {
				in = ep.EndpointAddr
			}
		} else if out == 0 {
			out = ep.EndpointAddr
		}
	}
	if in == 0 || out == 0 {
		return 0, 0, ErrNoBulkEndpoints
	}
	return in, out, nil
}

// BulkEndpoint is a BulkTransport over a go-usb device handle and a
// bulk-in/bulk-out endpoint pair. The zero Timeout means transfers
// block indefinitely; this layer imposes no policy of its own.
type BulkEndpoint struct {
	handle  *usb.DeviceHandle
	in, out uint8
	Timeout time.Duration
}

func NewBulkEndpoint(handle *usb.DeviceHandle, in, out uint8) *BulkEndpoint {
	return &BulkEndpoint{handle: handle, in: in, out: out}
}

// stallErr maps an endpoint halt (EPIPE from usbfs) to ErrStall so the
// drivers can tell a recoverable stall from a hard transport fault.
func stallErr(err error) error {
	if errors.Is(err, unix.EPIPE) {
		return fmt.Errorf("%w: %v", ErrStall, err)
	}
	return err
}

func (e *BulkEndpoint) Read(maxLen int) ([]byte, error) {
	buf := make([]byte, maxLen)
	n, err := e.handle.BulkTransfer(e.in, buf, e.Timeout)
	if err != nil {
		return nil, stallErr(err)
	}
	return buf[:n], nil
}

func (e *BulkEndpoint) Write(data []byte) (int, error) {
	n, err := e.handle.BulkTransfer(e.out, data, e.Timeout)
	if err != nil {
		return n, stallErr(err)
	}
	return n, nil
}

func (e *BulkEndpoint) ClearHalt(dir Direction) error {
	if dir == DirectionIn {
		return e.handle.ClearHalt(e.in)
	}
	return e.handle.ClearHalt(e.out)
}

func (e *BulkEndpoint) Reset() error {
	return e.handle.ResetDevice()
}
