package proto

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// MaxStringUnits bounds every string on the wire, in UTF-16 code units.
const MaxStringUnits = 1024

var (
	// ErrEmpty is returned when a frame carries no opcode.
	ErrEmpty = errors.New("proto: empty frame")
	// ErrUnknownOpcode is returned for an opcode the direction does not define.
	ErrUnknownOpcode = errors.New("proto: unknown opcode")
	// ErrTruncated is returned when the payload ends before a field does.
	ErrTruncated = errors.New("proto: truncated payload")
	// ErrLength is returned when a declared count cannot fit its field or
	// the remaining payload.
	ErrLength = errors.New("proto: invalid length")
	// ErrStringTooLong is returned when a string exceeds MaxStringUnits.
	ErrStringTooLong = errors.New("proto: string too long")
	// ErrReservedID is returned when a node record uses the terminator id 0.
	ErrReservedID = errors.New("proto: node id 0 is reserved")
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Writer appends little-endian fields to a frame. The first error sticks and
// later writes are ignored.
type Writer struct {
	buf []byte
	err error
}

// NewWriter starts a frame with op.
func NewWriter(op uint8, sizeHint int) *Writer {
	w := &Writer{buf: make([]byte, 0, sizeHint+1)}
	w.buf = append(w.buf, op)
	return w
}

// Bytes returns the frame or the first error.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) U8(v uint8) {
	if w.err == nil {
		w.buf = append(w.buf, v)
	}
}

func (w *Writer) U16(v uint16) {
	if w.err == nil {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	}
}

func (w *Writer) U32(v uint32) {
	if w.err == nil {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	}
}

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

func (w *Writer) F64(v float64) {
	if w.err == nil {
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
	}
}

// Count16 writes n as a u16 count.
func (w *Writer) Count16(n int) {
	if n < 0 || n > math.MaxUint16 {
		w.fail(ErrLength)
		return
	}
	w.U16(uint16(n))
}

// Count32 writes n as a u32 count.
func (w *Writer) Count32(n int) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		w.fail(ErrLength)
		return
	}
	w.U32(uint32(n))
}

// String writes s as UTF-16LE code units followed by a zero unit. NUL runes
// are dropped since they would end the string early.
func (w *Writer) String(s string) {
	if w.err != nil {
		return
	}
	if strings.IndexByte(s, 0) >= 0 {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	encoded, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		w.fail(err)
		return
	}
	if len(encoded)/2 > MaxStringUnits {
		w.fail(ErrStringTooLong)
		return
	}
	w.buf = append(w.buf, encoded...)
	w.buf = append(w.buf, 0, 0)
}

// Reader consumes little-endian fields from a payload. The first error
// sticks and later reads return zero values.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader reads payload, which excludes the opcode byte.
func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

// Err returns the first error hit.
func (r *Reader) Err() error { return r.err }

// Remaining reports the unread byte count.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.fail(ErrTruncated)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) U16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) U32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

func (r *Reader) F64() float64 {
	if b := r.take(8); b != nil {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// Count reads a count already decoded as n and checks that n elements of at
// least minSize bytes fit in the rest of the payload.
func (r *Reader) Count(n uint64, minSize int) int {
	if r.err != nil {
		return 0
	}
	if minSize > 0 && n > uint64(r.Remaining()/minSize) {
		r.fail(ErrLength)
		return 0
	}
	return int(n)
}

// String reads zero-terminated UTF-16LE code units.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	start := r.off
	for units := 0; ; units++ {
		if units > MaxStringUnits {
			r.fail(ErrStringTooLong)
			return ""
		}
		unit := r.take(2)
		if unit == nil {
			return ""
		}
		if unit[0] == 0 && unit[1] == 0 {
			break
		}
	}
	raw := r.buf[start : r.off-2]
	if len(raw) == 0 {
		return ""
	}
	if !pairedSurrogates(raw) {
		r.fail(ErrLength)
		return ""
	}
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		r.fail(err)
		return ""
	}
	return string(decoded)
}

// pairedSurrogates reports whether every surrogate unit in raw is part of a
// high/low pair. A lone surrogate has no string form that re-encodes to the
// same units.
func pairedSurrogates(raw []byte) bool {
	for i := 0; i < len(raw); i += 2 {
		unit := rune(binary.LittleEndian.Uint16(raw[i:]))
		if !utf16.IsSurrogate(unit) {
			continue
		}
		if unit >= 0xDC00 || i+4 > len(raw) {
			return false
		}
		next := rune(binary.LittleEndian.Uint16(raw[i+2:]))
		if next < 0xDC00 || next > 0xDFFF {
			return false
		}
		i += 2
	}
	return true
}
