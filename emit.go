package main

import (
	"bytes"
	"encoding/binary"
)

// Out accumulates little-endian machine code and object file bytes
type Out struct {
	buf bytes.Buffer
}

func (o *Out) Write(b byte) int {
	o.buf.WriteByte(b)
	return 1
}

func (o *Out) WriteN(b byte, n int) int {
	for i := 0; i < n; i++ {
		o.Write(b)
	}
	return n
}

func (o *Out) Write2(v uint16) int {
	o.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
	return 2
}

func (o *Out) Write4(v uint32) int {
	o.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
	return 4
}

func (o *Out) Write8(v uint64) int {
	o.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
	return 8
}

func (o *Out) WriteBytes(bs []byte) int {
	o.buf.Write(bs)
	return len(bs)
}

// Align pads with zeros up to a multiple of n
func (o *Out) Align(n int) int {
	pad := (n - o.buf.Len()%n) % n
	return o.WriteN(0, pad)
}

func (o *Out) Len() int {
	return o.buf.Len()
}

func (o *Out) Bytes() []byte {
	return o.buf.Bytes()
}
