package main

import (
	"bytes"
	"testing"
)

// TestOutWriters tests the little-endian write methods
func TestOutWriters(t *testing.T) {
	o := &Out{}

	o.Write(0x42)
	if got := o.Bytes(); len(got) != 1 || got[0] != 0x42 {
		t.Errorf("Write failed: got %v", got)
	}

	o = &Out{}
	o.Write2(0x1234)
	if got := o.Bytes(); !bytes.Equal(got, []byte{0x34, 0x12}) {
		t.Errorf("Write2 failed: got %x", got)
	}

	o = &Out{}
	o.Write4(0x12345678)
	// Should be little-endian: 78 56 34 12
	if got := o.Bytes(); !bytes.Equal(got, []byte{0x78, 0x56, 0x34, 0x12}) {
		t.Errorf("Write4 failed: got %x", got)
	}

	o = &Out{}
	o.Write8(0x0102030405060708)
	if got := o.Bytes(); !bytes.Equal(got, []byte{8, 7, 6, 5, 4, 3, 2, 1}) {
		t.Errorf("Write8 failed: got %x", got)
	}
}

// TestOutAlign tests zero padding up to an alignment boundary
func TestOutAlign(t *testing.T) {
	o := &Out{}
	o.WriteBytes([]byte{1, 2, 3})
	if n := o.Align(8); n != 5 {
		t.Errorf("Expected 5 bytes of padding, got %d", n)
	}
	if o.Len() != 8 {
		t.Errorf("Expected length 8, got %d", o.Len())
	}
	if n := o.Align(8); n != 0 {
		t.Errorf("Aligned buffer was padded by %d bytes", n)
	}
	if !bytes.Equal(o.Bytes()[3:], make([]byte, 5)) {
		t.Errorf("Padding is not zero: %x", o.Bytes()[3:])
	}
}

// TestOutWriteN tests repeated byte emission
func TestOutWriteN(t *testing.T) {
	o := &Out{}
	if n := o.WriteN(0x90, 3); n != 3 {
		t.Errorf("Expected 3, got %d", n)
	}
	if !bytes.Equal(o.Bytes(), []byte{0x90, 0x90, 0x90}) {
		t.Errorf("WriteN failed: got %x", o.Bytes())
	}
}
