package analysis

import (
	"fmt"

	"gbtrace/internal/trace"
)

// newTrace builds a trace whose metadata matches its entries.
func newTrace(entries ...trace.Entry) *trace.Trace {
	return trace.New(trace.Metadata{EntryCount: len(entries), BufferCapacity: 1000}, entries)
}

// pcTrace builds a trace of NOP-like entries at the given PCs.
func pcTrace(pcs ...uint16) *trace.Trace {
	entries := make([]trace.Entry, len(pcs))
	for i, pc := range pcs {
		entries[i] = trace.Entry{PC: pc, Instruction: fmt.Sprintf("INST_%04X", pc)}
	}
	return newTrace(entries...)
}

func entry(pc uint16, inst string) trace.Entry {
	return trace.Entry{PC: pc, Instruction: inst, Cycles: 4, HasCycles: true}
}
