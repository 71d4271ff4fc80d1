package analysis

import (
	"gbtrace/internal/disasm"
	"gbtrace/internal/trace"
)

// Summary is the one-screen overview of a trace.
type Summary struct {
	Entries            int      `json:"entries"`
	DeclaredEntries    int      `json:"declared_entries"`
	BufferCapacity     int      `json:"buffer_capacity"`
	BufferUsage        *float64 `json:"buffer_usage,omitempty"` // nil when capacity is unknown
	SkippedRecords     int      `json:"skipped_records"`
	UniquePCs          int      `json:"unique_pcs"`
	UniqueInstructions int      `json:"unique_instructions"`
	UniqueMnemonics    int      `json:"unique_mnemonics"`
	TotalCycles        uint64   `json:"total_cycles"`
	EntriesWithCycles  int      `json:"entries_with_cycles"`
	FirstPC            *uint16  `json:"first_pc,omitempty"`
	LastPC             *uint16  `json:"last_pc,omitempty"`
}

// Summarize computes counts over the whole trace in one pass.
func Summarize(t *trace.Trace) Summary {
	meta := t.Metadata()
	s := Summary{
		Entries:         t.Len(),
		DeclaredEntries: meta.EntryCount,
		BufferCapacity:  meta.BufferCapacity,
		SkippedRecords:  meta.SkippedRecords,
	}
	if ratio, ok := t.BufferUsage(); ok {
		s.BufferUsage = &ratio
	}

	pcs := make(map[uint16]struct{})
	insts := make(map[string]struct{})
	mnemonics := make(map[string]struct{})
	for _, e := range t.All() {
		pcs[e.PC] = struct{}{}
		insts[e.Instruction] = struct{}{}
		mnemonics[disasm.Mnemonic(e.Instruction)] = struct{}{}
		if e.HasCycles {
			s.TotalCycles += uint64(e.Cycles)
			s.EntriesWithCycles++
		}
	}
	s.UniquePCs = len(pcs)
	s.UniqueInstructions = len(insts)
	s.UniqueMnemonics = len(mnemonics)

	if t.Len() > 0 {
		first, last := t.Entry(0).PC, t.Entry(t.Len()-1).PC
		s.FirstPC, s.LastPC = &first, &last
	}
	return s
}
