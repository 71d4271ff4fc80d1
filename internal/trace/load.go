package trace

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Format identifies the on-disk layout of a trace.
type Format int

const (
	// FormatDocument is a single JSON object with metadata and entries.
	FormatDocument Format = iota
	// FormatJSONL is one flat record per line, as written by the test tracer.
	FormatJSONL
)

func (f Format) String() string {
	switch f {
	case FormatDocument:
		return "document"
	case FormatJSONL:
		return "jsonl"
	default:
		return "unknown"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Load reads and decodes the trace stored at path.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Loaded trace", "file", path, "entries", t.Len(), "skipped", t.meta.SkippedRecords)
	return t, nil
}

// Decode reads a trace document or JSONL stream from r, decompressing gzip
// and zstd input transparently.
func Decode(r io.Reader) (*Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	data, err = decompress(data)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, missingField(-1, "entries")
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err == nil && isDocument(doc) {
		return decodeDocument(doc)
	}
	return decodeJSONL(data)
}

func isDocument(doc map[string]json.RawMessage) bool {
	_, hasEntries := doc["entries"]
	_, hasMeta := doc["metadata"]
	return hasEntries || hasMeta
}

func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		slog.Debug("Detected gzip compression")
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		return out, nil
	case bytes.HasPrefix(data, zstdMagic):
		slog.Debug("Detected zstd compression")
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zstd: %w", err)
		}
		return out, nil
	}
	return data, nil
}

func decodeDocument(doc map[string]json.RawMessage) (*Trace, error) {
	rawMeta, ok := doc["metadata"]
	if !ok || isNull(rawMeta) {
		return nil, missingField(-1, "metadata")
	}
	rawEntries, ok := doc["entries"]
	if !ok || isNull(rawEntries) {
		return nil, missingField(-1, "entries")
	}

	var metaFields map[string]json.RawMessage
	if err := json.Unmarshal(rawMeta, &metaFields); err != nil {
		return nil, badField(-1, "metadata", "has non-object")
	}
	var records []json.RawMessage
	if err := json.Unmarshal(rawEntries, &records); err != nil {
		return nil, badField(-1, "entries", "has non-array")
	}

	entries := make([]Entry, 0, len(records))
	for i, raw := range records {
		rec, err := flatten(raw)
		if err != nil {
			return nil, badField(i, "record", "has non-object")
		}
		e, err := decodeEntry(i, rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	meta, err := decodeMetadata(metaFields, len(entries))
	if err != nil {
		return nil, err
	}
	return New(meta, entries), nil
}

func decodeJSONL(data []byte) (*Trace, error) {
	var entries []Entry
	skipped := 0

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		text := bytes.TrimSpace(sc.Bytes())
		line++
		if len(text) == 0 {
			continue
		}
		rec, err := flatten(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTrace, line, err)
		}
		if !hasValue(rec, "pc") || !hasValue(rec, "instruction") {
			skipped++
			continue
		}
		e, err := decodeEntry(len(entries), rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace: %w", err)
	}
	if skipped > 0 {
		slog.Warn("Skipped non-instruction records", "count", skipped)
	}

	meta := Metadata{EntryCount: len(entries), SkippedRecords: skipped, Format: FormatJSONL}
	return New(meta, entries), nil
}

// flatten merges a record's nested "fields" and "registers" objects into a
// single key space. Nested keys win over top-level ones.
func flatten(raw []byte) (map[string]json.RawMessage, error) {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	// fields first: it may carry its own registers object
	mergeNested(rec, "fields")
	mergeNested(rec, "registers")
	return rec, nil
}

func mergeNested(rec map[string]json.RawMessage, key string) {
	inner, ok := rec[key]
	if !ok || isNull(inner) {
		return
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(inner, &m); err != nil {
		return
	}
	for k, v := range m {
		rec[k] = v
	}
}

func decodeEntry(idx int, rec map[string]json.RawMessage) (Entry, error) {
	var e Entry

	pc, ok, err := number(rec, "pc")
	if err != nil {
		return e, badField(idx, "pc", "has non-numeric")
	}
	if !ok {
		return e, missingField(idx, "pc")
	}
	if pc > math.MaxUint16 {
		return e, badField(idx, "pc", "has out-of-range")
	}
	e.PC = uint16(pc)

	raw, ok := rec["instruction"]
	if !ok || isNull(raw) {
		return e, missingField(idx, "instruction")
	}
	if err := json.Unmarshal(raw, &e.Instruction); err != nil {
		return e, badField(idx, "instruction", "has non-string")
	}

	cycles, ok, err := number(rec, "cycles")
	if err != nil || cycles > math.MaxUint32 {
		return e, badField(idx, "cycles", "has invalid")
	}
	if ok {
		e.Cycles = uint32(cycles)
		e.HasCycles = true
	}

	for _, reg := range AllRegisters {
		v, ok, err := number(rec, reg.String())
		if err != nil || v > math.MaxUint8 {
			return e, badField(idx, reg.String(), "has invalid")
		}
		if ok {
			e.Registers.Set(reg, uint8(v))
		}
	}
	sp, ok, err := number(rec, "sp")
	if err != nil || sp > math.MaxUint16 {
		return e, badField(idx, "sp", "has invalid")
	}
	if ok {
		e.Registers.SetSP(uint16(sp))
	}
	return e, nil
}

func decodeMetadata(fields map[string]json.RawMessage, loaded int) (Metadata, error) {
	meta := Metadata{EntryCount: loaded}

	ts, ok, err := number(fields, "timestamp")
	if err != nil {
		return meta, badField(-1, "metadata.timestamp", "has invalid")
	}
	if ok {
		meta.Timestamp = int64(ts)
	}

	count, ok, err := number(fields, "entry_count")
	if err != nil {
		return meta, badField(-1, "metadata.entry_count", "has invalid")
	}
	if ok {
		meta.EntryCount = int(count)
	}

	for _, key := range []string{"buffer_capacity", "buffer_size"} {
		capacity, ok, err := number(fields, key)
		if err != nil {
			return meta, badField(-1, "metadata."+key, "has invalid")
		}
		if ok {
			meta.BufferCapacity = int(capacity)
			break
		}
	}
	return meta, nil
}

// number reads a non-negative integer stored either as a JSON number or as a
// numeric string ("0x1F", "31"). ok is false when the key is absent or null.
func number(rec map[string]json.RawMessage, key string) (v uint64, ok bool, err error) {
	raw, present := rec[key]
	if !present || isNull(raw) {
		return 0, false, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("field %s: %w", key, err)
		}
		return v, true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, fmt.Errorf("field %s: not a number", key)
	}
	v, err = strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, false, fmt.Errorf("field %s: %w", key, err)
	}
	return v, true, nil
}

func hasValue(rec map[string]json.RawMessage, key string) bool {
	raw, ok := rec[key]
	return ok && !isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
