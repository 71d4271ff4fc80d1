// Package trace holds the in-memory model of an execution trace captured by
// the emulator's test runner, and the loader that builds it from disk.
package trace

import "iter"

// Metadata describes how and when a trace was captured.
type Metadata struct {
	Timestamp      int64 // unix seconds
	EntryCount     int   // count declared by the recorder
	BufferCapacity int   // max entries the recorder could hold, 0 if unknown
	SkippedRecords int   // records dropped by the loader (non-instruction events)
	Format         Format
}

// Entry is one executed instruction. Entries are values; handing one out
// never exposes the trace's own storage.
type Entry struct {
	PC          uint16
	Instruction string
	Cycles      uint32
	HasCycles   bool
	Registers   Registers
}

// Trace is an immutable, ordered record of execution. Entry order is
// execution order.
type Trace struct {
	meta    Metadata
	entries []Entry
}

// New builds a trace. The entries slice is copied so later changes by the
// caller are not visible through the trace.
func New(meta Metadata, entries []Entry) *Trace {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Trace{meta: meta, entries: cp}
}

func (t *Trace) Metadata() Metadata { return t.meta }

// Len returns the number of loaded entries.
func (t *Trace) Len() int { return len(t.entries) }

// Entry returns the i-th entry in execution order. It panics if i is out of
// range, like a slice index.
func (t *Trace) Entry(i int) Entry { return t.entries[i] }

// All yields (position, entry) pairs in execution order.
func (t *Trace) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range t.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Slice returns a copy of entries [from, to).
func (t *Trace) Slice(from, to int) []Entry {
	out := make([]Entry, to-from)
	copy(out, t.entries[from:to])
	return out
}

// BufferUsage reports declared entry count over buffer capacity. ok is false
// when the capacity is unknown (zero).
func (t *Trace) BufferUsage() (ratio float64, ok bool) {
	if t.meta.BufferCapacity <= 0 {
		return 0, false
	}
	return float64(t.meta.EntryCount) / float64(t.meta.BufferCapacity), true
}
