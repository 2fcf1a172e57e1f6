// Package ptp drives the PTP/MTP command, data, response sequence used
// by imaging and media devices over a USB bulk pipe. Every packet in
// one command sequence shares a transaction identifier assigned by the
// host when the sequence starts.
package ptp

import (
	"errors"
	"fmt"
	"log"

	"github.com/wirebind/go-usbproto/pkg/transfers"
	"github.com/wirebind/go-usbproto/pkg/wire"
)

// MaxPacketLen is the read size for a single bulk transfer. Packets
// whose declared size exceeds it are fetched with follow-up reads.
const MaxPacketLen = 512

var (
	// ErrUnexpectedPacket means the device sent a container of the
	// wrong type at a phase boundary.
	ErrUnexpectedPacket = errors.New("ptp: unexpected packet type")

	// ErrTransactionMismatch means a received container carried a
	// transaction id other than the one this command sequence uses.
	ErrTransactionMismatch = errors.New("ptp: transaction id mismatch")

	// ErrShortPacket means a container header declared a size smaller
	// than the header itself.
	ErrShortPacket = errors.New("ptp: declared packet size shorter than header")
)

// Driver runs PTP/MTP transactions over one bulk pipe. The transaction
// counter is owned by the driver for its lifetime; at most one command
// sequence may be in flight at a time.
type Driver struct {
	t           transfers.BulkTransport
	transaction uint32

	// Debug logs every container exchanged on the pipe.
	Debug bool
}

func New(t transfers.BulkTransport) *Driver {
	return &Driver{t: t}
}

// SendCommand runs a command with no data phase and returns the
// response code.
func (d *Driver) SendCommand(code uint16, args []uint32) (uint16, error) {
	tid, err := d.writeCommand(code, args)
	if err != nil {
		return 0, err
	}
	return d.readResponse(tid)
}

// SendWriteCommand runs a command with a host-to-device data phase. The
// data container reuses the operation code and transaction id of the
// command that started the sequence.
func (d *Driver) SendWriteCommand(code uint16, args []uint32, data []byte) (uint16, error) {
	tid, err := d.writeCommand(code, args)
	if err != nil {
		return 0, err
	}
	if err := d.writePacket(wire.PTPContainerData, code, tid, data); err != nil {
		return 0, err
	}
	return d.readResponse(tid)
}

// SendReadCommand runs a command with a device-to-host data phase and
// returns the response code together with the data payload.
func (d *Driver) SendReadCommand(code uint16, args []uint32) (uint16, []byte, error) {
	tid, err := d.writeCommand(code, args)
	if err != nil {
		return 0, nil, err
	}
	data, err := d.readData(tid)
	if err != nil {
		return 0, nil, err
	}
	rc, err := d.readResponse(tid)
	return rc, data, err
}

// writeCommand starts a new sequence: it claims the next transaction id
// and ships a command container with the arguments as its payload.
func (d *Driver) writeCommand(code uint16, args []uint32) (uint32, error) {
	tid := d.transaction
	d.transaction++

	payload := make([]byte, 0, 4*len(args))
	for _, arg := range args {
		payload = append(payload, byte(arg), byte(arg>>8), byte(arg>>16), byte(arg>>24))
	}
	return tid, d.writePacket(wire.PTPContainerCommand, code, tid, payload)
}

func (d *Driver) writePacket(typ wire.PTPContainerType, code uint16, tid uint32, payload []byte) error {
	h := wire.PTPHeader{
		Size:        uint32(wire.PTPHeaderSize + len(payload)),
		Type:        typ,
		Code:        code,
		Transaction: tid,
	}
	buf := make([]byte, wire.PTPHeaderSize+len(payload))
	if err := h.MarshalInto(buf); err != nil {
		return err
	}
	copy(buf[wire.PTPHeaderSize:], payload)
	if d.Debug {
		log.Printf("ptp: -> %v code=%#04x tid=%d size=%d", typ, code, tid, h.Size)
	}
	if _, err := d.t.Write(buf); err != nil {
		return fmt.Errorf("ptp: writing %v packet: %w", typ, err)
	}
	return nil
}

// readPacket reads one container. Empty reads are retried: the
// transport may poll and come back with nothing while the device
// prepares its answer. A container larger than one read is fetched
// with follow-up reads until the declared size is reached.
func (d *Driver) readPacket() (*wire.PTPHeader, []byte, error) {
	var data []byte
	for len(data) == 0 {
		var err error
		if data, err = d.t.Read(MaxPacketLen); err != nil {
			return nil, nil, fmt.Errorf("ptp: reading packet: %w", err)
		}
	}

	h := &wire.PTPHeader{}
	if err := h.UnmarshalBinary(data); err != nil {
		return nil, nil, fmt.Errorf("ptp: parsing packet header: %w", err)
	}
	if h.Size < wire.PTPHeaderSize {
		return nil, nil, fmt.Errorf("%w: declared size %d", ErrShortPacket, h.Size)
	}
	for len(data) < int(h.Size) {
		more, err := d.t.Read(int(h.Size) - len(data))
		if err != nil {
			return nil, nil, fmt.Errorf("ptp: reading packet remainder: %w", err)
		}
		data = append(data, more...)
	}
	if d.Debug {
		log.Printf("ptp: <- %v code=%#04x tid=%d size=%d", h.Type, h.Code, h.Transaction, h.Size)
	}
	return h, data[wire.PTPHeaderSize:h.Size], nil
}

func (d *Driver) readData(tid uint32) ([]byte, error) {
	h, body, err := d.readPacket()
	if err != nil {
		return nil, err
	}
	if h.Type != wire.PTPContainerData {
		return nil, fmt.Errorf("%w: got %v, want data", ErrUnexpectedPacket, h.Type)
	}
	if h.Transaction != tid {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTransactionMismatch, h.Transaction, tid)
	}
	return body, nil
}

func (d *Driver) readResponse(tid uint32) (uint16, error) {
	h, _, err := d.readPacket()
	if err != nil {
		return 0, err
	}
	if h.Type != wire.PTPContainerResponse {
		return 0, fmt.Errorf("%w: got %v, want response", ErrUnexpectedPacket, h.Type)
	}
	if h.Transaction != tid {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrTransactionMismatch, h.Transaction, tid)
	}
	return h.Code, nil
}

// OpenSession opens a PTP session. Most devices require one before any
// other operation.
func (d *Driver) OpenSession(sessionID uint32) error {
	rc, err := d.SendCommand(CodeOpenSession, []uint32{sessionID})
	if err != nil {
		return err
	}
	return CheckResponse(rc)
}

// CloseSession closes the current session.
func (d *Driver) CloseSession() error {
	rc, err := d.SendCommand(CodeCloseSession, nil)
	if err != nil {
		return err
	}
	return CheckResponse(rc)
}
