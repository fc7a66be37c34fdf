package tuple

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Type codes of the encoding.
const (
	codeNil     = 0x00
	codeBytes   = 0x01
	codeString  = 0x02
	codeNested  = 0x05
	codeIntZero = 0x14
	codeEscape  = 0xff
)

// ErrMalformed is returned by Unpack when the input is not a valid packed tuple.
var ErrMalformed = errors.New("malformed tuple")

// Tuple is an ordered list of elements.
type Tuple []any

// Pack encodes the tuple. The empty tuple packs to a non-nil empty slice.
// It panics if the tuple holds an element of an unsupported type.
func (t Tuple) Pack() []byte {
	var buf bytes.Buffer
	for _, e := range t {
		encode(&buf, e, false)
	}
	if buf.Len() == 0 {
		return []byte{}
	}
	return buf.Bytes()
}

// Range returns the key range [packed+0x00, packed+0xff) covering every tuple that has t as a prefix.
func (t Tuple) Range() (begin, end []byte) {
	p := t.Pack()
	begin = append(append([]byte{}, p...), 0x00)
	end = append(append([]byte{}, p...), 0xff)
	return begin, end
}

// Pack is a shorthand for Tuple(elems).Pack().
func Pack(elems ...any) []byte {
	return Tuple(elems).Pack()
}

func encode(buf *bytes.Buffer, e any, nested bool) {
	switch v := e.(type) {
	case nil:
		buf.WriteByte(codeNil)
		if nested {
			buf.WriteByte(codeEscape)
		}
	case []byte:
		buf.WriteByte(codeBytes)
		writeEscaped(buf, v)
	case string:
		buf.WriteByte(codeString)
		writeEscaped(buf, []byte(v))
	case int:
		encodeInt(buf, int64(v))
	case int64:
		encodeInt(buf, v)
	case Tuple:
		buf.WriteByte(codeNested)
		for _, inner := range v {
			encode(buf, inner, true)
		}
		buf.WriteByte(0x00)
	default:
		panic(fmt.Sprintf("tuple: unsupported element type %T", e))
	}
}

func writeEscaped(buf *bytes.Buffer, b []byte) {
	for _, c := range b {
		buf.WriteByte(c)
		if c == 0x00 {
			buf.WriteByte(codeEscape)
		}
	}
	buf.WriteByte(0x00)
}

func encodeInt(buf *bytes.Buffer, v int64) {
	if v == 0 {
		buf.WriteByte(codeIntZero)
		return
	}
	var mag uint64
	if v > 0 {
		mag = uint64(v)
	} else {
		mag = uint64(-(v + 1)) + 1
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], mag)
	n := 8
	for n > 0 && raw[8-n] == 0 {
		n--
	}
	body := raw[8-n:]
	if v > 0 {
		buf.WriteByte(byte(codeIntZero + n))
		buf.Write(body)
		return
	}
	buf.WriteByte(byte(codeIntZero - n))
	for _, c := range body {
		buf.WriteByte(^c)
	}
}

// Unpack decodes a packed tuple.
func Unpack(b []byte) (Tuple, error) {
	t, rest, err := decodeAll(b, false)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}
	return t, nil
}

func decodeAll(b []byte, nested bool) (Tuple, []byte, error) {
	t := Tuple{}
	for len(b) > 0 {
		if nested && b[0] == 0x00 {
			if len(b) > 1 && b[1] == codeEscape {
				t = append(t, nil)
				b = b[2:]
				continue
			}
			return t, b[1:], nil
		}
		e, rest, err := decode(b)
		if err != nil {
			return nil, nil, err
		}
		t = append(t, e)
		b = rest
	}
	if nested {
		return nil, nil, fmt.Errorf("%w: unterminated nested tuple", ErrMalformed)
	}
	return t, b, nil
}

func decode(b []byte) (any, []byte, error) {
	code := b[0]
	switch {
	case code == codeNil:
		return nil, b[1:], nil
	case code == codeBytes:
		v, rest, err := readEscaped(b[1:])
		return v, rest, err
	case code == codeString:
		v, rest, err := readEscaped(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return string(v), rest, nil
	case code == codeNested:
		return decodeAll(b[1:], true)
	case code >= codeIntZero-8 && code <= codeIntZero+8:
		return decodeInt(b)
	default:
		return nil, nil, fmt.Errorf("%w: unknown type code 0x%02x", ErrMalformed, code)
	}
}

func readEscaped(b []byte) ([]byte, []byte, error) {
	out := []byte{}
	for i := 0; i < len(b); i++ {
		if b[i] != 0x00 {
			out = append(out, b[i])
			continue
		}
		if i+1 < len(b) && b[i+1] == codeEscape {
			out = append(out, 0x00)
			i++
			continue
		}
		return out, b[i+1:], nil
	}
	return nil, nil, fmt.Errorf("%w: unterminated byte string", ErrMalformed)
}

func decodeInt(b []byte) (any, []byte, error) {
	code := int(b[0])
	if code == codeIntZero {
		return int64(0), b[1:], nil
	}
	n := code - codeIntZero
	negative := n < 0
	if negative {
		n = -n
	}
	if len(b) < 1+n {
		return nil, nil, fmt.Errorf("%w: truncated integer", ErrMalformed)
	}
	var raw [8]byte
	for i, c := range b[1 : 1+n] {
		if negative {
			c = ^c
		}
		raw[8-n+i] = c
	}
	mag := binary.BigEndian.Uint64(raw[:])
	if !negative {
		if mag > 1<<63-1 {
			return nil, nil, fmt.Errorf("%w: integer overflows int64", ErrMalformed)
		}
		return int64(mag), b[1+n:], nil
	}
	if mag > 1<<63 {
		return nil, nil, fmt.Errorf("%w: integer overflows int64", ErrMalformed)
	}
	return -int64(mag-1) - 1, b[1+n:], nil
}

// Printable renders a byte string with printable ASCII kept as is and
// everything else escaped as \xNN. Backslashes are doubled.
func Printable(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c >= 32 && c < 127:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}
	return sb.String()
}
