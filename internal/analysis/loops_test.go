package analysis

import (
	"slices"
	"testing"
)

func TestDetectWindowedLoopsScenario(t *testing.T) {
	tr := newTrace(
		entry(0x100, "LD A,B"),
		entry(0x102, "JP 0100"),
		entry(0x100, "LD A,B"),
		entry(0x102, "JP 0100"),
		entry(0x100, "LD A,B"),
	)

	loops := DetectWindowedLoops(tr, WindowOptions{WindowSize: 2, MinIterations: 2})
	if len(loops) == 0 {
		t.Fatal("expected a loop")
	}
	first := loops[0]
	if !slices.Equal(first.PCs, []uint16{0x100, 0x102}) {
		t.Errorf("PCs = %04X, want [0100 0102]", first.PCs)
	}
	if first.Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", first.Occurrences)
	}
	if !slices.Equal(first.Positions, []int{0, 2}) {
		t.Errorf("Positions = %v, want [0 2]", first.Positions)
	}
	if first.Truncated() {
		t.Error("loop should not be truncated")
	}

	// the overlapping rotation is reported separately, in first-seen order
	if len(loops) != 2 || !slices.Equal(loops[1].PCs, []uint16{0x102, 0x100}) {
		t.Fatalf("loops = %+v", loops)
	}
}

func TestDetectWindowedLoopsThreshold(t *testing.T) {
	// 0x10,0x11 repeats 4 times, then an irregular tail
	tr := pcTrace(0x10, 0x11, 0x10, 0x11, 0x10, 0x11, 0x10, 0x11, 0x20, 0x30, 0x40)

	for _, minIter := range []int{2, 3, 4, 5} {
		loops := DetectWindowedLoops(tr, WindowOptions{WindowSize: 2, MinIterations: minIter})
		for _, l := range loops {
			if l.Occurrences < minIter {
				t.Errorf("min %d: reported loop with %d occurrences", minIter, l.Occurrences)
			}
		}
		if minIter == 5 && len(loops) != 0 {
			t.Errorf("min 5: got %d loops, want none", len(loops))
		}
	}
}

func TestDetectWindowedLoopsTruncatesPositions(t *testing.T) {
	pcs := make([]uint16, 0, 40)
	for range 20 {
		pcs = append(pcs, 0x200, 0x201)
	}
	loops := DetectWindowedLoops(pcTrace(pcs...), WindowOptions{WindowSize: 2, MinIterations: 3})
	if len(loops) != 2 {
		t.Fatalf("got %d loops, want 2", len(loops))
	}
	l := loops[0]
	if len(l.Positions) != MaxReportedPositions {
		t.Errorf("listed %d positions, want %d", len(l.Positions), MaxReportedPositions)
	}
	if !l.Truncated() || l.MorePositions != l.Occurrences-MaxReportedPositions {
		t.Errorf("MorePositions = %d with %d occurrences", l.MorePositions, l.Occurrences)
	}
	// windows start at 0..len-window inclusive
	if l.Occurrences != 20 {
		t.Errorf("Occurrences = %d, want 20", l.Occurrences)
	}
}

func TestDetectWindowedLoopsShortTrace(t *testing.T) {
	tr := pcTrace(0x1, 0x1, 0x1, 0x1, 0x1, 0x1, 0x1, 0x1, 0x1)
	if got := DetectWindowedLoops(tr, WindowOptions{}); len(got) != 0 {
		t.Fatalf("trace shorter than two windows reported %+v", got)
	}
	if got := DetectWindowedLoops(newTrace(), WindowOptions{}); got == nil || len(got) != 0 {
		t.Fatalf("empty trace = %v", got)
	}
}

func TestDetectWindowedLoopsDefaults(t *testing.T) {
	pcs := []uint16{}
	for range 4 {
		pcs = append(pcs, 1, 2, 3, 4, 5)
	}
	loops := DetectWindowedLoops(pcTrace(pcs...), WindowOptions{})
	if len(loops) == 0 || !slices.Equal(loops[0].PCs, []uint16{1, 2, 3, 4, 5}) {
		t.Fatalf("default window did not find the 5-step loop: %+v", loops)
	}
	if loops[0].Occurrences != 4 {
		t.Errorf("Occurrences = %d, want 4", loops[0].Occurrences)
	}
}

func TestDetectHotPCs(t *testing.T) {
	var pcs []uint16
	for range 5 {
		pcs = append(pcs, 0x300, 0x100)
	}
	pcs = append(pcs, 0x200, 0x200, 0x200, 0x200, 0x200, 0x200, 0x400)
	tr := pcTrace(pcs...)

	got := DetectHotPCs(tr, 5)
	want := []HotPC{
		{PC: 0x200, Count: 6, Instruction: "INST_0200"},
		{PC: 0x100, Count: 5, Instruction: "INST_0100"},
		{PC: 0x300, Count: 5, Instruction: "INST_0300"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("DetectHotPCs = %+v, want %+v", got, want)
	}

	for _, h := range DetectHotPCs(tr, 6) {
		if h.Count < 6 {
			t.Errorf("min 6 reported %04X with %d", h.PC, h.Count)
		}
	}
}

func TestDetectHotPCsLabelsFirstOccurrence(t *testing.T) {
	tr := newTrace(
		entry(0x40, "PUSH AF"),
		entry(0x40, "patched"),
		entry(0x40, "patched"),
	)
	got := DetectHotPCs(tr, 2)
	if len(got) != 1 || got[0].Instruction != "PUSH AF" {
		t.Fatalf("DetectHotPCs = %+v", got)
	}
}

func TestPCDistribution(t *testing.T) {
	tr := pcTrace(0x2, 0x1, 0x2, 0x3)
	got := PCDistribution(tr)
	if len(got) != 3 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0].PC != 0x2 || got[0].Count != 2 || got[0].Percentage != 50 || got[0].First != 0 {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].PC != 0x1 || got[2].PC != 0x3 {
		t.Errorf("ties not broken by ascending pc: %+v", got)
	}
}

func TestTopPCs(t *testing.T) {
	tr := pcTrace(0x2, 0x1, 0x2, 0x3, 0x2)
	got := TopPCs(tr, 2)
	if len(got) != 2 || got[0].PC != 0x2 || got[1].PC != 0x1 {
		t.Fatalf("TopPCs(2) = %+v", got)
	}
	if got[0].Percentage != 60 {
		t.Errorf("percentage = %v, want 60 over the whole trace", got[0].Percentage)
	}
	if all := TopPCs(tr, 0); len(all) != 3 {
		t.Errorf("TopPCs(0) returned %d rows, want 3", len(all))
	}
}

func TestDetectTightLoops(t *testing.T) {
	tr := newTrace(
		entry(0x150, "LD A,B"),
		entry(0x151, "HALT"), entry(0x151, "HALT"), entry(0x151, "HALT"), entry(0x151, "HALT"),
		entry(0x152, "NOP"),
		entry(0x153, "JR $FE"), entry(0x153, "JR $FE"), entry(0x153, "JR $FE"),
	)

	got := DetectTightLoops(tr, 3)
	want := []TightLoop{
		{Start: 1, PC: 0x151, Instruction: "HALT", Run: 4},
		{Start: 6, PC: 0x153, Instruction: "JR $FE", Run: 3},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("DetectTightLoops = %+v, want %+v", got, want)
	}
	if got := DetectTightLoops(tr, 5); len(got) != 0 {
		t.Errorf("threshold 5 reported %+v", got)
	}
}

func TestDetectSequenceRuns(t *testing.T) {
	tr := newTrace(
		entry(0x10, "DEC B"), entry(0x11, "JR NZ, $FD"),
		entry(0x10, "DEC B"), entry(0x11, "JR NZ, $FD"),
		entry(0x10, "DEC B"), entry(0x11, "JR NZ, $FD"),
		entry(0x10, "DEC B"), entry(0x11, "JR NZ, $FD"),
		entry(0x20, "RET"),
	)

	got := DetectSequenceRuns(tr, SequenceOptions{MinIterations: 3})
	if len(got) != 1 {
		t.Fatalf("got %d runs: %+v", len(got), got)
	}
	r := got[0]
	if r.Start != 0 || r.End != 8 || r.Iterations != 4 {
		t.Errorf("run = %+v", r)
	}
	if !slices.Equal(r.PCs, []uint16{0x10, 0x11}) || !slices.Equal(r.Instructions, []string{"DEC B", "JR NZ, $FD"}) {
		t.Errorf("pattern = %04X %q", r.PCs, r.Instructions)
	}

	if got := DetectSequenceRuns(tr, SequenceOptions{MinIterations: 5}); len(got) != 0 {
		t.Errorf("min 5 reported %+v", got)
	}
}

func TestDetectorsOnEmptyTrace(t *testing.T) {
	empty := newTrace()
	if len(DetectHotPCs(empty, 1)) != 0 || len(DetectTightLoops(empty, 1)) != 0 ||
		len(DetectSequenceRuns(empty, SequenceOptions{})) != 0 || len(PCDistribution(empty)) != 0 {
		t.Fatal("detectors should report nothing on an empty trace")
	}
}
