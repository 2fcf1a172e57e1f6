package ptp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/wirebind/go-usbproto/pkg/transfers"
	"github.com/wirebind/go-usbproto/pkg/wire"
)

// fakeTransport replays scripted reads and records writes. A packet
// longer than the requested read length is split, the way a bulk pipe
// hands back at most what was asked for.
type fakeTransport struct {
	reads  [][]byte
	writes [][]byte
}

func (f *fakeTransport) Read(maxLen int) ([]byte, error) {
	if len(f.reads) == 0 {
		return nil, errors.New("fakeTransport: unexpected read")
	}
	data := f.reads[0]
	f.reads = f.reads[1:]
	if len(data) > maxLen {
		data, f.reads = data[:maxLen], append([][]byte{data[maxLen:]}, f.reads...)
	}
	return data, nil
}

func (f *fakeTransport) Write(data []byte) (int, error) {
	f.writes = append(f.writes, append([]byte(nil), data...))
	return len(data), nil
}

func (f *fakeTransport) ClearHalt(dir transfers.Direction) error { return nil }

func (f *fakeTransport) Reset() error { return nil }

func packet(t *testing.T, typ wire.PTPContainerType, code uint16, tid uint32, payload []byte) []byte {
	t.Helper()
	h := &wire.PTPHeader{
		Size:        uint32(wire.PTPHeaderSize + len(payload)),
		Type:        typ,
		Code:        code,
		Transaction: tid,
	}
	buf := make([]byte, wire.PTPHeaderSize+len(payload))
	if err := h.MarshalInto(buf); err != nil {
		t.Fatalf("marshaling packet header: %v", err)
	}
	copy(buf[wire.PTPHeaderSize:], payload)
	return buf
}

func parseHeader(t *testing.T, buf []byte) *wire.PTPHeader {
	t.Helper()
	h := &wire.PTPHeader{}
	if err := h.UnmarshalBinary(buf); err != nil {
		t.Fatalf("parsing written packet: %v", err)
	}
	return h
}

func TestSendCommand(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerResponse, ResponseOK, 0, nil),
	}}
	d := New(ft)

	rc, err := d.SendCommand(CodeGetDeviceInfo, []uint32{0x00000005})
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if rc != ResponseOK {
		t.Errorf("response code = %#04x, want %#04x", rc, ResponseOK)
	}

	if len(ft.writes) != 1 {
		t.Fatalf("wrote %d packets, want 1", len(ft.writes))
	}
	h := parseHeader(t, ft.writes[0])
	if h.Type != wire.PTPContainerCommand {
		t.Errorf("type = %v, want command", h.Type)
	}
	if h.Code != CodeGetDeviceInfo {
		t.Errorf("code = %#04x, want %#04x", h.Code, CodeGetDeviceInfo)
	}
	if h.Transaction != 0 {
		t.Errorf("transaction = %d, want 0", h.Transaction)
	}
	if h.Size != wire.PTPHeaderSize+4 {
		t.Errorf("size = %d, want %d", h.Size, wire.PTPHeaderSize+4)
	}
	if args := ft.writes[0][wire.PTPHeaderSize:]; !bytes.Equal(args, []byte{0x05, 0, 0, 0}) {
		t.Errorf("argument payload = % x, want 05 00 00 00", args)
	}
}

func TestTransactionCounter(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerResponse, ResponseOK, 0, nil),
		packet(t, wire.PTPContainerData, CodeGetStorageIDs, 1, []byte{1, 2}),
		packet(t, wire.PTPContainerResponse, ResponseOK, 1, nil),
		packet(t, wire.PTPContainerResponse, ResponseOK, 2, nil),
	}}
	d := New(ft)

	if _, err := d.SendCommand(CodeOpenSession, []uint32{1}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.SendReadCommand(CodeGetStorageIDs, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := d.SendWriteCommand(CodeSendObject, nil, []byte{0xff}); err != nil {
		t.Fatal(err)
	}

	// command, command, command+data
	var tids []uint32
	for _, w := range ft.writes {
		tids = append(tids, parseHeader(t, w).Transaction)
	}
	want := []uint32{0, 1, 2, 2}
	if len(tids) != len(want) {
		t.Fatalf("wrote %d packets, want %d", len(tids), len(want))
	}
	for i := range want {
		if tids[i] != want[i] {
			t.Errorf("packet %d transaction = %d, want %d", i, tids[i], want[i])
		}
	}
}

func TestZeroLengthReadsAreRetried(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{
		{},
		{},
		packet(t, wire.PTPContainerResponse, ResponseOK, 0, nil),
	}}
	d := New(ft)

	rc, err := d.SendCommand(CodeGetDeviceInfo, nil)
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if rc != ResponseOK {
		t.Errorf("response code = %#04x, want OK", rc)
	}
}

func TestSendReadCommand(t *testing.T) {
	payload := []byte("device info payload")
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerData, CodeGetDeviceInfo, 0, payload),
		packet(t, wire.PTPContainerResponse, ResponseOK, 0, nil),
	}}
	d := New(ft)

	rc, data, err := d.SendReadCommand(CodeGetDeviceInfo, nil)
	if err != nil {
		t.Fatalf("SendReadCommand failed: %v", err)
	}
	if rc != ResponseOK {
		t.Errorf("response code = %#04x, want OK", rc)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %q, want %q", data, payload)
	}
}

func TestSendReadCommand_LargePacket(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 600)
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerData, CodeGetObject, 0, payload),
		packet(t, wire.PTPContainerResponse, ResponseOK, 0, nil),
	}}
	d := New(ft)

	_, data, err := d.SendReadCommand(CodeGetObject, []uint32{1})
	if err != nil {
		t.Fatalf("SendReadCommand failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("reassembled %d bytes, want %d", len(data), len(payload))
	}
}

func TestSendWriteCommand(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerResponse, ResponseOK, 0, nil),
	}}
	d := New(ft)

	if _, err := d.SendWriteCommand(CodeSendObject, nil, data); err != nil {
		t.Fatalf("SendWriteCommand failed: %v", err)
	}
	if len(ft.writes) != 2 {
		t.Fatalf("wrote %d packets, want 2", len(ft.writes))
	}

	h := parseHeader(t, ft.writes[1])
	if h.Type != wire.PTPContainerData {
		t.Errorf("type = %v, want data", h.Type)
	}
	if h.Code != CodeSendObject {
		t.Errorf("data packet code = %#04x, want command code", h.Code)
	}
	if h.Transaction != 0 {
		t.Errorf("data packet transaction = %d, want 0", h.Transaction)
	}
	if !bytes.Equal(ft.writes[1][wire.PTPHeaderSize:], data) {
		t.Error("data packet payload does not match")
	}
}

func TestWrongPacketType(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerData, ResponseOK, 0, nil),
	}}
	d := New(ft)
	if _, err := d.SendCommand(CodeGetDeviceInfo, nil); !errors.Is(err, ErrUnexpectedPacket) {
		t.Errorf("response phase: got %v, want ErrUnexpectedPacket", err)
	}

	ft = &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerResponse, ResponseGeneralError, 0, nil),
	}}
	d = New(ft)
	if _, _, err := d.SendReadCommand(CodeGetDeviceInfo, nil); !errors.Is(err, ErrUnexpectedPacket) {
		t.Errorf("data phase: got %v, want ErrUnexpectedPacket", err)
	}
}

func TestShortDeclaredSize(t *testing.T) {
	h := &wire.PTPHeader{
		Size:        4,
		Type:        wire.PTPContainerResponse,
		Code:        ResponseOK,
		Transaction: 0,
	}
	buf := make([]byte, wire.PTPHeaderSize)
	if err := h.MarshalInto(buf); err != nil {
		t.Fatalf("marshaling packet header: %v", err)
	}

	ft := &fakeTransport{reads: [][]byte{buf}}
	d := New(ft)
	if _, err := d.SendCommand(CodeGetDeviceInfo, nil); !errors.Is(err, ErrShortPacket) {
		t.Errorf("got %v, want ErrShortPacket", err)
	}
}

func TestTransactionMismatch(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{
		packet(t, wire.PTPContainerResponse, ResponseOK, 9, nil),
	}}
	d := New(ft)
	if _, err := d.SendCommand(CodeGetDeviceInfo, nil); !errors.Is(err, ErrTransactionMismatch) {
		t.Errorf("got %v, want ErrTransactionMismatch", err)
	}
}

func TestCheckResponse(t *testing.T) {
	if err := CheckResponse(ResponseOK); err != nil {
		t.Errorf("CheckResponse(OK) = %v, want nil", err)
	}
	err := CheckResponse(ResponseDeviceBusy)
	if err == nil || !strings.Contains(err.Error(), "device busy") {
		t.Errorf("CheckResponse(DeviceBusy) = %v, want device busy", err)
	}
	var rcErr ResponseError
	if !errors.As(err, &rcErr) || uint16(rcErr) != ResponseDeviceBusy {
		t.Errorf("error should carry the response code, got %v", err)
	}
}
