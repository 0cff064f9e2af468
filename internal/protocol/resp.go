// Package protocol implements the tagged, length-prefixed wire codec used by
// minikv: a bidirectional mapping between the Value model and its byte-stream
// framing.
package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrInvalidProtocol indicates a malformed frame on the wire.
	ErrInvalidProtocol = errors.New("protocol: invalid frame")
	// ErrUnexpectedType indicates a Value outside the closed variant set.
	ErrUnexpectedType = errors.New("protocol: unexpected value type")
)

// Wire type tags. Each frame starts with exactly one of these bytes.
const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
	TypeMap          = '%'
)

const (
	maxBulkStringLength = 512 * 1024 * 1024 // 512 MiB
	maxElementCount     = 1_000_000
	defaultBufSize      = 64 * 1024 // 64 KiB read/write buffers
)

// Pair is one key/value entry of a map value. Order and duplicate keys are
// preserved exactly as supplied.
type Pair struct {
	Key   Value
	Value Value
}

// Value represents a single protocol value. The Type byte selects the
// variant; Null marks the length -1 bulk string. Go strings are binary safe,
// so Str carries bulk payloads without loss.
type Value struct {
	Type  byte
	Str   string
	Num   int64
	Array []Value
	Pairs []Pair
	Null  bool
}

// SimpleString returns a '+' value. Note that the encoder canonicalizes all
// string values to bulk strings on the wire.
func SimpleString(s string) Value { return Value{Type: TypeSimpleString, Str: s} }

// ErrorValue returns a '-' value carrying a human-readable message.
func ErrorValue(msg string) Value { return Value{Type: TypeError, Str: msg} }

// Integer returns a ':' value.
func Integer(n int64) Value { return Value{Type: TypeInteger, Num: n} }

// BulkString returns a '$' value.
func BulkString(s string) Value { return Value{Type: TypeBulkString, Str: s} }

// NullBulkString returns the null value, encoded as a bulk string of
// length -1.
func NullBulkString() Value { return Value{Type: TypeBulkString, Null: true} }

// ArrayValue returns a '*' value from the given elements.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: TypeArray, Array: items}
}

// MapValue returns a '%' value from the given pairs, in order.
func MapValue(pairs ...Pair) Value {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Value{Type: TypeMap, Pairs: pairs}
}

// IsString reports whether v carries text: a non-null simple or bulk string.
func (v Value) IsString() bool {
	return (v.Type == TypeSimpleString || v.Type == TypeBulkString) && !v.Null
}

// Text returns the textual form of v for command-name and key use. Integers
// render in decimal; every other variant yields Str.
func (v Value) Text() string {
	if v.Type == TypeInteger {
		return strconv.FormatInt(v.Num, 10)
	}
	return v.Str
}

// Reader decodes values from a buffered byte stream.
type Reader struct {
	rd *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{rd: bufio.NewReaderSize(r, defaultBufSize)}
}

// ReadValue reads a single value from the stream. io.EOF before the tag byte
// means the peer closed the connection between frames; callers treat it as a
// normal disconnect, not an error. Malformed framing is reported as an error
// wrapping ErrInvalidProtocol.
func (r *Reader) ReadValue() (Value, error) {
	typeByte, err := r.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	switch typeByte {
	case TypeSimpleString:
		return r.readSimpleString()
	case TypeError:
		return r.readError()
	case TypeInteger:
		return r.readInteger()
	case TypeBulkString:
		return r.readBulkString()
	case TypeArray:
		return r.readArray()
	case TypeMap:
		return r.readMap()
	default:
		return Value{}, fmt.Errorf("%w: unknown type %c", ErrInvalidProtocol, typeByte)
	}
}

// readLine reads a line until \r\n
func (r *Reader) readLine() (string, error) {
	line, err := r.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ErrInvalidProtocol
	}
	return line[:len(line)-2], nil
}

// readCount reads a line and parses it as a length or element count.
func (r *Reader) readCount(what string) (int64, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", ErrInvalidProtocol, what)
	}
	return n, nil
}

func (r *Reader) readSimpleString() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	return Value{Type: TypeSimpleString, Str: line}, nil
}

func (r *Reader) readError() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	return Value{Type: TypeError, Str: line}, nil
}

func (r *Reader) readInteger() (Value, error) {
	line, err := r.readLine()
	if err != nil {
		return Value{}, err
	}
	num, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid integer", ErrInvalidProtocol)
	}
	return Value{Type: TypeInteger, Num: num}, nil
}

func (r *Reader) readBulkString() (Value, error) {
	length, err := r.readCount("bulk string length")
	if err != nil {
		return Value{}, err
	}

	// Null bulk string
	if length == -1 {
		return Value{Type: TypeBulkString, Null: true}, nil
	}

	if length < 0 {
		return Value{}, fmt.Errorf("%w: negative bulk string length", ErrInvalidProtocol)
	}
	if length > maxBulkStringLength {
		return Value{}, fmt.Errorf("%w: bulk string too large", ErrInvalidProtocol)
	}

	// Read the payload + \r\n
	data := make([]byte, length+2)
	if _, err := io.ReadFull(r.rd, data); err != nil {
		return Value{}, err
	}

	if data[length] != '\r' || data[length+1] != '\n' {
		return Value{}, ErrInvalidProtocol
	}

	return Value{Type: TypeBulkString, Str: string(data[:length])}, nil
}

func (r *Reader) readArray() (Value, error) {
	count, err := r.readCount("array length")
	if err != nil {
		return Value{}, err
	}

	// Null array
	if count == -1 {
		return Value{Type: TypeArray, Null: true}, nil
	}

	if count < 0 {
		return Value{}, fmt.Errorf("%w: negative array length", ErrInvalidProtocol)
	}
	if count > maxElementCount {
		return Value{}, fmt.Errorf("%w: array too large", ErrInvalidProtocol)
	}

	array := make([]Value, count)
	for i := int64(0); i < count; i++ {
		val, err := r.ReadValue()
		if err != nil {
			return Value{}, err
		}
		array[i] = val
	}

	return Value{Type: TypeArray, Array: array}, nil
}

// readMap reads a '%' frame. The declared count is a pair count: 2*count
// values follow, zipped into key/value pairs in arrival order. Duplicate keys
// are kept as supplied.
func (r *Reader) readMap() (Value, error) {
	count, err := r.readCount("map length")
	if err != nil {
		return Value{}, err
	}

	if count < 0 {
		return Value{}, fmt.Errorf("%w: negative map length", ErrInvalidProtocol)
	}
	if count > maxElementCount {
		return Value{}, fmt.Errorf("%w: map too large", ErrInvalidProtocol)
	}

	pairs := make([]Pair, count)
	for i := int64(0); i < count; i++ {
		key, err := r.ReadValue()
		if err != nil {
			return Value{}, err
		}
		val, err := r.ReadValue()
		if err != nil {
			return Value{}, err
		}
		pairs[i] = Pair{Key: key, Value: val}
	}

	return Value{Type: TypeMap, Pairs: pairs}, nil
}

// Writer encodes values onto a buffered byte stream. Each value is fully
// assembled in a scratch buffer before a single write and flush, so a
// response is never observed partially written by the peer.
type Writer struct {
	wr  *bufio.Writer
	buf bytes.Buffer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{wr: bufio.NewWriterSize(w, defaultBufSize)}
}

// WriteValue encodes v and flushes it as one atomic unit.
func (w *Writer) WriteValue(v Value) error {
	w.buf.Reset()
	if err := appendValue(&w.buf, v); err != nil {
		return err
	}
	if _, err := w.wr.Write(w.buf.Bytes()); err != nil {
		return err
	}
	return w.wr.Flush()
}

// appendValue appends the canonical encoding of v. String values always frame
// as '$' bulk strings regardless of how they were decoded; null frames as a
// bulk string of length -1.
func appendValue(buf *bytes.Buffer, v Value) error {
	if v.Null {
		buf.WriteString("$-1\r\n")
		return nil
	}

	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		appendTaggedInt(buf, '$', int64(len(v.Str)))
		buf.WriteString(v.Str)
		buf.WriteString("\r\n")
	case TypeError:
		buf.WriteByte('-')
		buf.WriteString(v.Str)
		buf.WriteString("\r\n")
	case TypeInteger:
		appendTaggedInt(buf, ':', v.Num)
	case TypeArray:
		appendTaggedInt(buf, '*', int64(len(v.Array)))
		for _, item := range v.Array {
			if err := appendValue(buf, item); err != nil {
				return err
			}
		}
	case TypeMap:
		appendTaggedInt(buf, '%', int64(len(v.Pairs)))
		for _, pair := range v.Pairs {
			if err := appendValue(buf, pair.Key); err != nil {
				return err
			}
			if err := appendValue(buf, pair.Value); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedType, v.Type)
	}
	return nil
}

// appendTaggedInt appends a tag byte, the decimal form of n and CRLF.
func appendTaggedInt(buf *bytes.Buffer, tag byte, n int64) {
	var scratch [20]byte // max int64 is 19 digits + sign
	buf.WriteByte(tag)
	buf.Write(strconv.AppendInt(scratch[:0], n, 10))
	buf.WriteString("\r\n")
}
