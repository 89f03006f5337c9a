package dictionary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/pierrec/lz4"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
)

// Blob layout:
//
//	magic "TDIC" | version byte | flags byte | payload
//
// The payload is lz4 framed when flagCompressed is set. It holds a uvarint
// entry count followed by the entries in attribute order.
const (
	codecMagic   = "TDIC"
	codecVersion = 1

	flagCompressed byte = 1 << 0
	knownFlags          = flagCompressed

	headerSize = len(codecMagic) + 2
)

const (
	tagNil byte = iota
	tagString
	tagInt
	tagFloat
	tagBool
	tagTime
)

type EncodeOptions struct {
	Compress bool
}

// Encode serializes the entries. The table name is not part of the blob.
func (d *Dictionary) Encode(opts EncodeOptions) ([]byte, error) {
	return encodeEntries(d.entries, opts)
}

func (d *Dictionary) MarshalBinary() ([]byte, error) {
	return d.Encode(EncodeOptions{})
}

// UnmarshalBinary replaces all entries with the ones in data. The table name
// is left as is.
func (d *Dictionary) UnmarshalBinary(data []byte) error {
	entries, err := decodeEntries(data)
	if err != nil {
		return err
	}
	d.entries = entries
	return nil
}

func encodeEntries(entries map[string]Entry, opts EncodeOptions) ([]byte, error) {
	names := make([]string, 0, len(entries))
	for k := range entries {
		names = append(names, k)
	}
	sort.Strings(names)

	var w writer
	w.uvarint(uint64(len(names)))
	for _, name := range names {
		e := entries[name]
		w.str(name)
		w.str(e.Query.Table)
		w.str(e.Query.Attribute)
		w.str(e.Query.Statement)
		w.uvarint(uint64(len(e.Query.Filter.Clauses)))
		for _, c := range e.Query.Filter.Clauses {
			w.str(c.Column)
			w.str(string(c.Op))
			if err := w.value(c.Value); err != nil {
				return nil, fmt.Errorf("encode %s filter: %w", name, err)
			}
		}
		w.varint(e.TotalCount)
		w.uvarint(uint64(len(e.Values)))
		for _, v := range e.Values {
			if err := w.value(v.Value); err != nil {
				return nil, fmt.Errorf("encode %s: %w", name, err)
			}
			w.varint(v.Count)
		}
	}

	out := make([]byte, 0, headerSize+w.buf.Len())
	out = append(out, codecMagic...)
	out = append(out, codecVersion)
	if !opts.Compress {
		out = append(out, 0)
		return append(out, w.buf.Bytes()...), nil
	}

	out = append(out, flagCompressed)
	buf := bytes.NewBuffer(out)
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(w.buf.Bytes()); err != nil {
		return nil, fmt.Errorf("compress dictionary: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress dictionary: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntries(data []byte) (map[string]Entry, error) {
	if len(data) < headerSize || string(data[:len(codecMagic)]) != codecMagic {
		return nil, fmt.Errorf("%w: missing %s header", ErrCorruptBlob, codecMagic)
	}
	version, flags := data[len(codecMagic)], data[len(codecMagic)+1]
	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptBlob, version)
	}
	if flags&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#x", ErrCorruptBlob, flags)
	}
	payload := data[headerSize:]
	if flags&flagCompressed != 0 {
		raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", ErrCorruptBlob, err)
		}
		payload = raw
	}

	r := &reader{buf: payload}
	n := r.uvarint()
	entries := make(map[string]Entry)
	for i := uint64(0); i < n && r.err == nil; i++ {
		name := r.str()
		e := Entry{Attribute: name}
		e.Query.Table = r.str()
		e.Query.Attribute = r.str()
		e.Query.Statement = r.str()
		if nc := r.count(); nc > 0 {
			e.Query.Filter.Clauses = make([]filter.Clause, 0, nc)
			for j := 0; j < nc && r.err == nil; j++ {
				c := filter.Clause{Column: r.str(), Op: filter.Op(r.str())}
				c.Value = r.value()
				e.Query.Filter.Clauses = append(e.Query.Filter.Clauses, c)
			}
		}
		e.TotalCount = r.varint()
		nv := r.count()
		e.Values = make([]ValueCount, 0, nv)
		for j := 0; j < nv && r.err == nil; j++ {
			v := r.value()
			e.Values = append(e.Values, ValueCount{Value: v, Count: r.varint()})
		}
		if r.err != nil {
			break
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
		}
		entries[name] = e
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, r.err)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptBlob, len(r.buf))
	}
	return entries, nil
}

type writer struct {
	buf bytes.Buffer
	tmp [binary.MaxVarintLen64]byte
}

func (w *writer) uvarint(v uint64) {
	n := binary.PutUvarint(w.tmp[:], v)
	w.buf.Write(w.tmp[:n])
}

func (w *writer) varint(v int64) {
	n := binary.PutVarint(w.tmp[:], v)
	w.buf.Write(w.tmp[:n])
}

func (w *writer) str(s string) {
	w.uvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) value(v any) error {
	switch x := filter.Normalize(v).(type) {
	case nil:
		w.buf.WriteByte(tagNil)
	case string:
		w.buf.WriteByte(tagString)
		w.str(x)
	case int64:
		w.buf.WriteByte(tagInt)
		w.varint(x)
	case float64:
		w.buf.WriteByte(tagFloat)
		binary.LittleEndian.PutUint64(w.tmp[:8], math.Float64bits(x))
		w.buf.Write(w.tmp[:8])
	case bool:
		w.buf.WriteByte(tagBool)
		if x {
			w.buf.WriteByte(1)
		} else {
			w.buf.WriteByte(0)
		}
	case time.Time:
		b, err := x.MarshalBinary()
		if err != nil {
			return err
		}
		w.buf.WriteByte(tagTime)
		w.str(string(b))
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// reader records the first error and returns zero values afterwards, so
// decode loops only need to check r.err once per record.
type reader struct {
	buf []byte
	err error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
	r.buf = nil
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.fail("bad uvarint")
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf)
	if n <= 0 {
		r.fail("bad varint")
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

// count reads a length and rejects values larger than the remaining bytes.
func (r *reader) count() int {
	n := r.uvarint()
	if n > uint64(len(r.buf)) {
		r.fail("length %d exceeds remaining %d bytes", n, len(r.buf))
		return 0
	}
	return int(n)
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.buf) {
		r.fail("need %d bytes, have %d", n, len(r.buf))
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) str() string {
	return string(r.bytes(r.count()))
}

func (r *reader) value() any {
	tag := r.bytes(1)
	if tag == nil {
		return nil
	}
	switch tag[0] {
	case tagNil:
		return nil
	case tagString:
		return r.str()
	case tagInt:
		return r.varint()
	case tagFloat:
		b := r.bytes(8)
		if b == nil {
			return nil
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case tagBool:
		b := r.bytes(1)
		if b == nil {
			return nil
		}
		return b[0] == 1
	case tagTime:
		var t time.Time
		if err := t.UnmarshalBinary([]byte(r.str())); err != nil {
			r.fail("bad time: %v", err)
			return nil
		}
		return t
	default:
		r.fail("unknown value tag %d", tag[0])
		return nil
	}
}
