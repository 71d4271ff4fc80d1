package analysis

import (
	"testing"

	"gbtrace/internal/trace"
)

func TestSummarize(t *testing.T) {
	nocycles := trace.Entry{PC: 0x100, Instruction: "LD A,B"}
	tr := trace.New(trace.Metadata{EntryCount: 4, BufferCapacity: 8, SkippedRecords: 2}, []trace.Entry{
		entry(0x100, "LD A,B"),
		entry(0x101, "LD A,C"),
		nocycles,
		entry(0x102, "JP 0100"),
	})

	s := Summarize(tr)
	if s.Entries != 4 || s.DeclaredEntries != 4 || s.SkippedRecords != 2 {
		t.Errorf("counts = %+v", s)
	}
	if s.UniquePCs != 3 || s.UniqueInstructions != 3 || s.UniqueMnemonics != 2 {
		t.Errorf("unique = pcs %d insts %d mnemonics %d", s.UniquePCs, s.UniqueInstructions, s.UniqueMnemonics)
	}
	if s.TotalCycles != 12 || s.EntriesWithCycles != 3 {
		t.Errorf("cycles = %d over %d entries", s.TotalCycles, s.EntriesWithCycles)
	}
	if s.BufferUsage == nil || *s.BufferUsage != 0.5 {
		t.Errorf("BufferUsage = %v, want 0.5", s.BufferUsage)
	}
	if s.FirstPC == nil || *s.FirstPC != 0x100 || s.LastPC == nil || *s.LastPC != 0x102 {
		t.Errorf("first/last pc = %v/%v", s.FirstPC, s.LastPC)
	}
}

func TestSummarizeEmptyUnknownCapacity(t *testing.T) {
	s := Summarize(trace.New(trace.Metadata{}, nil))
	if s.Entries != 0 || s.BufferUsage != nil || s.FirstPC != nil {
		t.Fatalf("Summarize(empty) = %+v", s)
	}
}
