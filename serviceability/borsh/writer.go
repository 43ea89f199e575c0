package borsh

import (
	"encoding/binary"
	"math"
)

// Writer builds borsh-serialized binary data. Writes never fail; the buffer
// grows as needed and Bytes returns the accumulated encoding.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteU128(v [16]byte) {
	w.buf = append(w.buf, v[:]...)
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

func (w *Writer) WritePubkey(v [32]byte) {
	w.buf = append(w.buf, v[:]...)
}

func (w *Writer) WriteIPv4(v [4]byte) {
	w.buf = append(w.buf, v[:]...)
}

func (w *Writer) WriteNetworkV4(v [5]byte) {
	w.buf = append(w.buf, v[:]...)
}

func (w *Writer) WriteString(v string) {
	w.WriteU32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *Writer) WriteBytes(v []byte) {
	w.buf = append(w.buf, v...)
}

func (w *Writer) WritePubkeySlice(v [][32]byte) {
	w.WriteU32(uint32(len(v)))
	for _, pk := range v {
		w.WritePubkey(pk)
	}
}

func (w *Writer) WriteNetworkV4Slice(v [][5]byte) {
	w.WriteU32(uint32(len(v)))
	for _, n := range v {
		w.WriteNetworkV4(n)
	}
}

func (w *Writer) WriteU32Slice(v []uint32) {
	w.WriteU32(uint32(len(v)))
	for _, x := range v {
		w.WriteU32(x)
	}
}
