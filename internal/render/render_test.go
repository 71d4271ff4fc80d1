package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"gbtrace/internal/analysis"
	"gbtrace/internal/trace"
)

func loopTrace() *trace.Trace {
	regs := trace.NewRegisters(0x01, 0xB0, 0x00, 0x13, 0x00, 0xD8, 0x01, 0x4D, 0xFFFE)
	var entries []trace.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries,
			trace.Entry{PC: 0x100, Instruction: "LD A,B", Cycles: 4, HasCycles: true, Registers: regs},
			trace.Entry{PC: 0x102, Instruction: "JP 0100", Cycles: 16, HasCycles: true, Registers: regs},
		)
	}
	return trace.New(trace.Metadata{Timestamp: 1700000000, EntryCount: 10, BufferCapacity: 1000}, entries)
}

func TestFormatEntry(t *testing.T) {
	regs := trace.NewRegisters(0x01, 0xB0, 0x00, 0x13, 0x00, 0xD8, 0x01, 0x4D, 0xFFFE)
	e := trace.Entry{PC: 0x0150, Instruction: "JP 0150", Cycles: 16, HasCycles: true, Registers: regs}

	want := "[0150] JP 0150              (cycles: 16) ; A=01 F=B0 BC=0013 DE=00D8 HL=014D SP=FFFE"
	if got := FormatEntry(e, true); got != want {
		t.Errorf("FormatEntry = %q\nwant          %q", got, want)
	}
	if got := FormatEntry(e, false); strings.Contains(got, ";") {
		t.Errorf("FormatEntry without registers = %q", got)
	}

	bare := trace.Entry{PC: 0x1, Instruction: "NOP"}
	if got := FormatEntry(bare, true); !strings.HasSuffix(got, "(cycles: -)") {
		t.Errorf("FormatEntry(bare) = %q", got)
	}
}

func TestFormatRegistersPartial(t *testing.T) {
	var regs trace.Registers
	regs.Set(trace.RegA, 0x10)
	regs.Set(trace.RegB, 0x20)
	regs.Set(trace.RegD, 0x30)
	regs.Set(trace.RegE, 0x40)
	regs.Set(trace.RegL, 0x50)

	if got, want := FormatRegisters(regs), "A=10 B=20 DE=3040 L=50"; got != want {
		t.Errorf("FormatRegisters = %q, want %q", got, want)
	}
}

func TestMetadataUnknownCapacity(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).Metadata(trace.New(trace.Metadata{EntryCount: 3}, nil))

	out := buf.String()
	for _, want := range []string{"=== Trace Metadata ===", "Timestamp:        N/A", "Buffer usage:     N/A", "Loaded entries:   0"} {
		if !strings.Contains(out, want) {
			t.Errorf("metadata output missing %q:\n%s", want, out)
		}
	}
}

func TestMetadata(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).Metadata(loopTrace())

	out := buf.String()
	for _, want := range []string{"2023-11-14 22:13:20", "Buffer capacity:  1000", "Buffer usage:     1.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("metadata output missing %q:\n%s", want, out)
		}
	}
}

func TestEntriesLimit(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Limit: 3}).Entries("Last 10 Instructions", analysis.LastN(loopTrace(), 10))

	out := buf.String()
	if n := strings.Count(out, "[0100]") + strings.Count(out, "[0102]"); n != 3 {
		t.Errorf("printed %d entries, want 3:\n%s", n, out)
	}
	if !strings.Contains(out, "... (7 more entries)") {
		t.Errorf("missing elision line:\n%s", out)
	}

	buf.Reset()
	New(&buf, Options{Limit: 3}).WithLimit(0).Entries("All", analysis.LastN(loopTrace(), 10))
	if strings.Contains(buf.String(), "more entries") {
		t.Errorf("WithLimit(0) still elides:\n%s", buf.String())
	}
}

func TestEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{})
	empty := trace.New(trace.Metadata{}, nil)

	r.Histogram("Instruction Frequency (Top 20)", analysis.TopMnemonics(empty, 20), 0)
	r.Loops(analysis.WindowOptions{WindowSize: 5, MinIterations: 3}, analysis.DetectWindowedLoops(empty, analysis.WindowOptions{}))
	r.HotPCs(5, analysis.DetectHotPCs(empty, 5))
	r.Entries("Last 5 Instructions", analysis.LastN(empty, 5))

	out := buf.String()
	for _, want := range []string{"No instructions", "No loops detected", "No hot PCs detected", "No matching entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLoopsOutput(t *testing.T) {
	var buf bytes.Buffer
	opts := analysis.WindowOptions{WindowSize: 2, MinIterations: 2}
	New(&buf, Options{}).Loops(opts, analysis.DetectWindowedLoops(loopTrace(), opts))

	out := buf.String()
	for _, want := range []string{
		"Loop detected at positions [0, 2, 4, 6, 8]",
		"PC sequence: 0100 -> 0102",
		"Iterations: 5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("loops output missing %q:\n%s", want, out)
		}
	}
}

func TestRegistersOutput(t *testing.T) {
	var buf bytes.Buffer
	samples := analysis.TrackRegister(loopTrace(), trace.RegA)
	New(&buf, Options{Limit: 2}).Registers(trace.RegA, samples)

	out := buf.String()
	if !strings.Contains(out, "0x0100: A=$01 (LD A,B)") {
		t.Errorf("registers output:\n%s", out)
	}
	if !strings.Contains(out, fmt.Sprintf("... (%d more changes)", len(samples)-2)) {
		t.Errorf("missing elision line:\n%s", out)
	}
}

func TestHistogramTable(t *testing.T) {
	var buf bytes.Buffer
	tr := loopTrace()
	New(&buf, Options{}).Histogram("Instruction Frequency (Top 20)", analysis.TopMnemonics(tr, 20), tr.Len())

	out := buf.String()
	for _, want := range []string{"LD                     5     50.00%", "JP                     5     50.00%", "Total instructions: 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("histogram output missing %q:\n%s", want, out)
		}
	}
}

func TestDocumentJSON(t *testing.T) {
	tr := loopTrace()
	doc := NewDocument("trace.json", tr)
	doc.Last = EntryViews(analysis.LastN(tr, 1))
	doc.Loops = analysis.DetectWindowedLoops(trace.New(trace.Metadata{}, nil), analysis.WindowOptions{})

	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := decoded["histogram"]; ok {
		t.Error("unrequested histogram encoded")
	}
	if loops, ok := decoded["loops"].([]any); !ok || len(loops) != 0 {
		t.Errorf("loops = %#v, want empty array", decoded["loops"])
	}
	last := decoded["last"].([]any)[0].(map[string]any)
	if last["pc"] != "0x0102" || last["instruction"] != "JP 0100" {
		t.Errorf("last entry = %v", last)
	}
	if regs := last["registers"].(map[string]any); regs["l"] != float64(0x4D) {
		t.Errorf("registers = %v", regs)
	}
}
