package state

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"github.com/malbeclabs/doublezero-controlplane/serviceability/borsh"
)

// MaxCodeLength caps every entity code string.
const MaxCodeLength = 32

// Allowlist size caps enforced by validate().
const (
	MaxFoundationAllowlist = 128
	MaxQAAllowlist         = 128
	MaxMGroupAllowlist     = 64
	MaxAdministrators      = 16
)

type Uint128 struct {
	Low  uint64
	High uint64
}

func (u Uint128) Bytes() [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[:8], u.Low)
	binary.LittleEndian.PutUint64(out[8:], u.High)
	return out
}

func Uint128FromBytes(b [16]byte) Uint128 {
	return Uint128{
		Low:  binary.LittleEndian.Uint64(b[:8]),
		High: binary.LittleEndian.Uint64(b[8:]),
	}
}

// NextIndex returns the successor of u. The account index is monotonic and
// practically never wraps; the carry is handled anyway.
func (u Uint128) NextIndex() Uint128 {
	next := Uint128{Low: u.Low + 1, High: u.High}
	if next.Low == 0 {
		next.High++
	}
	return next
}

// ByteReader wraps the incremental borsh reader with a no-error API: reads
// past the end of the buffer yield zero values, which is exactly the
// incremental-deserialization default rule for trailing fields.
type ByteReader struct {
	r *borsh.Reader
}

func NewByteReader(data []byte) *ByteReader {
	return &ByteReader{r: borsh.NewReader(data)}
}

func (br *ByteReader) Offset() int    { return br.r.Offset() }
func (br *ByteReader) Remaining() int { return br.r.Remaining() }

func (br *ByteReader) ReadU8() uint8          { return br.r.TryReadU8(0) }
func (br *ByteReader) ReadBool() bool         { return br.r.TryReadBool(false) }
func (br *ByteReader) ReadU16() uint16        { return br.r.TryReadU16(0) }
func (br *ByteReader) ReadU32() uint32        { return br.r.TryReadU32(0) }
func (br *ByteReader) ReadU64() uint64        { return br.r.TryReadU64(0) }
func (br *ByteReader) ReadF64() float64       { return br.r.TryReadF64(0) }
func (br *ByteReader) ReadPubkey() [32]byte   { return br.r.TryReadPubkey([32]byte{}) }
func (br *ByteReader) ReadIPv4() [4]byte      { return br.r.TryReadIPv4([4]byte{}) }
func (br *ByteReader) ReadNetworkV4() [5]byte { return br.r.TryReadNetworkV4([5]byte{}) }
func (br *ByteReader) ReadString() string     { return br.r.TryReadString("") }

func (br *ByteReader) ReadU128() Uint128 {
	return Uint128FromBytes(br.r.TryReadU128([16]byte{}))
}

func (br *ByteReader) ReadPubkeySlice() [][32]byte {
	return br.r.TryReadPubkeySlice(nil)
}

func (br *ByteReader) ReadNetworkV4Slice() [][5]byte {
	return br.r.TryReadNetworkV4Slice(nil)
}

func (br *ByteReader) ReadU32Slice() []uint32 {
	return br.r.TryReadU32Slice(nil)
}

func (br *ByteReader) ReadBytes(n int) []byte {
	if br.r.Remaining() < n {
		return make([]byte, n)
	}
	v, _ := br.r.ReadBytes(n)
	return v
}

// ByteWriter mirrors ByteReader for encoding.
type ByteWriter struct {
	w *borsh.Writer
}

func NewByteWriter() *ByteWriter {
	return &ByteWriter{w: borsh.NewWriter()}
}

func (bw *ByteWriter) Bytes() []byte { return bw.w.Bytes() }
func (bw *ByteWriter) Len() int      { return bw.w.Len() }

func (bw *ByteWriter) WriteU8(v uint8)            { bw.w.WriteU8(v) }
func (bw *ByteWriter) WriteBool(v bool)           { bw.w.WriteBool(v) }
func (bw *ByteWriter) WriteU16(v uint16)          { bw.w.WriteU16(v) }
func (bw *ByteWriter) WriteU32(v uint32)          { bw.w.WriteU32(v) }
func (bw *ByteWriter) WriteU64(v uint64)          { bw.w.WriteU64(v) }
func (bw *ByteWriter) WriteF64(v float64)         { bw.w.WriteF64(v) }
func (bw *ByteWriter) WritePubkey(v [32]byte)     { bw.w.WritePubkey(v) }
func (bw *ByteWriter) WriteIPv4(v [4]byte)        { bw.w.WriteIPv4(v) }
func (bw *ByteWriter) WriteNetworkV4(v [5]byte)   { bw.w.WriteNetworkV4(v) }
func (bw *ByteWriter) WriteString(v string)       { bw.w.WriteString(v) }
func (bw *ByteWriter) WriteU128(v Uint128)        { bw.w.WriteU128(v.Bytes()) }
func (bw *ByteWriter) WriteBytes(v []byte)        { bw.w.WriteBytes(v) }
func (bw *ByteWriter) WritePubkeySlice(v [][32]byte) {
	bw.w.WritePubkeySlice(v)
}
func (bw *ByteWriter) WriteNetworkV4Slice(v [][5]byte) {
	bw.w.WriteNetworkV4Slice(v)
}
func (bw *ByteWriter) WriteU32Slice(v []uint32) {
	bw.w.WriteU32Slice(v)
}

// NormalizeCode lowercases a code string; codes are stored ASCII-lowercased.
func NormalizeCode(code string) string {
	return strings.ToLower(code)
}

// ValidateCode checks the universal code rules: non-empty, at most 32 bytes,
// ASCII lowercase letters, digits, and separators.
func ValidateCode(code string) error {
	if code == "" {
		return fmt.Errorf("code is empty")
	}
	if len(code) > MaxCodeLength {
		return fmt.Errorf("code length %d exceeds max %d", len(code), MaxCodeLength)
	}
	for _, c := range code {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == ':':
		default:
			return fmt.Errorf("code contains invalid character %q", c)
		}
	}
	return nil
}

// NetworkV4String renders a [5]byte network as CIDR, or "" when unset.
func NetworkV4String(n [5]byte) string {
	if n[4] == 0 || n[4] > 32 {
		return ""
	}
	return fmt.Sprintf("%s/%d", net.IP(n[:4]).String(), n[4])
}

// ParseNetworkV4 parses CIDR notation into the on-chain [5]byte form.
func ParseNetworkV4(s string) ([5]byte, error) {
	ip, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		return [5]byte{}, err
	}
	v4 := ip.To4()
	if v4 == nil {
		return [5]byte{}, fmt.Errorf("not an ipv4 network: %s", s)
	}
	ones, _ := ipNet.Mask.Size()
	var out [5]byte
	copy(out[:4], v4)
	out[4] = byte(ones)
	return out, nil
}

func hasDuplicatePubkeys(keys [][32]byte) bool {
	seen := make(map[[32]byte]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}

func containsPubkey(keys [][32]byte, k [32]byte) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

// RemovePubkey removes the first occurrence of k using swap-remove, matching
// the on-chain vector mutation order.
func RemovePubkey(keys [][32]byte, k [32]byte) ([][32]byte, bool) {
	for i, key := range keys {
		if key == k {
			keys[i] = keys[len(keys)-1]
			return keys[:len(keys)-1], true
		}
	}
	return keys, false
}
