package mtp

import (
	"bytes"
	"testing"
)

func TestContainerCommandRoundTrip(t *testing.T) {
	c := NewCommand(OpGetObjectInfo, 7, 0x00010001)
	buf := c.Marshal()
	if len(buf) != HeaderSize+4 {
		t.Fatalf("Marshal length = %d, want %d", len(buf), HeaderSize+4)
	}

	got, err := ParseContainer(buf)
	if err != nil {
		t.Fatalf("ParseContainer: %v", err)
	}
	if got.Type != ContainerCommand {
		t.Errorf("Type = %v, want Command", got.Type)
	}
	if got.Code != OpGetObjectInfo {
		t.Errorf("Code = 0x%04X, want 0x%04X", got.Code, OpGetObjectInfo)
	}
	if got.Transaction != 7 {
		t.Errorf("Transaction = %d, want 7", got.Transaction)
	}
	if len(got.Params) != 1 || got.Params[0] != 0x00010001 {
		t.Errorf("Params = %v, want [0x00010001]", got.Params)
	}
}

func TestContainerDataRoundTrip(t *testing.T) {
	payload := []byte("hello object data")
	c := NewData(OpGetObject, 3, payload)
	buf := c.Marshal()

	got, err := ParseContainer(buf)
	if err != nil {
		t.Fatalf("ParseContainer: %v", err)
	}
	if got.Type != ContainerData {
		t.Errorf("Type = %v, want Data", got.Type)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, payload)
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	_, _, _, _, err := ParseHeader([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("ParseHeader on short buffer: want error, got nil")
	}
}

func TestParseContainerTruncatedBody(t *testing.T) {
	c := NewCommand(OpOpenSession, 1, 1)
	buf := c.Marshal()
	_, err := ParseContainer(buf[:HeaderSize+2])
	if err == nil {
		t.Fatal("ParseContainer on truncated body: want error, got nil")
	}
}
