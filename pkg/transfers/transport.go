// Package transfers provides the bulk pipe that the msc and ptp drivers
// run on: a pair of bulk endpoints on a claimed interface, with stall
// detection and recovery.
package transfers

import "errors"

// Direction selects one endpoint of a bulk pipe.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "in"
	}
	return "out"
}

// ErrStall is returned by Read and Write when the endpoint reported a
// halt condition. The caller clears it with ClearHalt and decides
// whether the surrounding protocol can continue.
var ErrStall = errors.New("transfers: endpoint stalled")

// BulkTransport is a synchronous bulk pipe to one USB interface. Reads
// and writes block until the transfer completes or fails; the protocol
// drivers layer their phase sequencing on top of it.
type BulkTransport interface {
	// Read performs one bulk-in transfer of up to maxLen bytes and
	// returns whatever the device sent, possibly nothing.
	Read(maxLen int) ([]byte, error)
	// Write performs bulk-out transfers until all of data is sent.
	Write(data []byte) (int, error)
	// ClearHalt clears a halt condition on one endpoint of the pipe.
	ClearHalt(dir Direction) error
	// Reset performs a device-level reset, dropping any halted state.
	Reset() error
}
