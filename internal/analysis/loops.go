package analysis

import (
	"sort"

	"gbtrace/internal/trace"
)

// WindowOptions configures windowed loop detection. Zero values select the
// package defaults.
type WindowOptions struct {
	WindowSize    int
	MinIterations int
}

func (o WindowOptions) withDefaults() WindowOptions {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.MinIterations <= 0 {
		o.MinIterations = DefaultMinIterations
	}
	return o
}

// Loop is a PC window that recurred at least MinIterations times. Every
// window start counts, including overlapping ones from the same pass.
type Loop struct {
	PCs           []uint16 `json:"pcs"`
	Occurrences   int      `json:"occurrences"`
	Positions     []int    `json:"positions"`      // first MaxReportedPositions starts
	MorePositions int      `json:"more_positions"` // starts not listed in Positions
}

// Truncated reports whether Positions omits some starts.
func (l Loop) Truncated() bool { return l.MorePositions > 0 }

// DetectWindowedLoops slides a window of WindowSize PCs over the trace and
// groups start positions by the PC tuple they cover. Loops are returned in
// order of first occurrence. Traces shorter than two windows yield none.
func DetectWindowedLoops(t *trace.Trace, opts WindowOptions) []Loop {
	opts = opts.withDefaults()
	w := opts.WindowSize
	n := t.Len()
	if n < 2*w {
		return []Loop{}
	}

	pcs := make([]uint16, n)
	for i, e := range t.All() {
		pcs[i] = e.PC
	}

	type group struct {
		first     int
		positions []int
	}
	groups := make(map[string]*group)
	var order []*group
	key := make([]byte, 2*w)
	for i := 0; i <= n-w; i++ {
		for j, pc := range pcs[i : i+w] {
			key[2*j] = byte(pc >> 8)
			key[2*j+1] = byte(pc)
		}
		g, ok := groups[string(key)]
		if !ok {
			g = &group{first: i}
			groups[string(key)] = g
			order = append(order, g)
		}
		g.positions = append(g.positions, i)
	}

	loops := []Loop{}
	for _, g := range order {
		if len(g.positions) < opts.MinIterations {
			continue
		}
		shown := min(len(g.positions), MaxReportedPositions)
		seq := make([]uint16, w)
		copy(seq, pcs[g.first:g.first+w])
		loops = append(loops, Loop{
			PCs:           seq,
			Occurrences:   len(g.positions),
			Positions:     append([]int(nil), g.positions[:shown]...),
			MorePositions: len(g.positions) - shown,
		})
	}
	return loops
}

// HotPC is an address executed at least MinRepeats times anywhere in the
// trace. Instruction is the text of its first execution.
type HotPC struct {
	PC          uint16 `json:"pc"`
	Count       int    `json:"count"`
	Instruction string `json:"instruction"`
}

// DetectHotPCs counts executions per PC regardless of order and reports PCs
// with count >= minRepeats, highest count first, ties by ascending PC.
// minRepeats <= 0 selects DefaultMinRepeats.
func DetectHotPCs(t *trace.Trace, minRepeats int) []HotPC {
	if minRepeats <= 0 {
		minRepeats = DefaultMinRepeats
	}
	hot := []HotPC{}
	for _, d := range PCDistribution(t) {
		if d.Count < minRepeats {
			break
		}
		hot = append(hot, HotPC{PC: d.PC, Count: d.Count, Instruction: d.Instruction})
	}
	return hot
}

// PCCount is one row of the per-address execution distribution.
type PCCount struct {
	PC          uint16  `json:"pc"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
	Instruction string  `json:"instruction"` // first execution at PC
	First       int     `json:"first"`       // position of first execution
}

// PCDistribution counts executions per PC, highest count first, ties by
// ascending PC.
func PCDistribution(t *trace.Trace) []PCCount {
	total := t.Len()
	if total == 0 {
		return []PCCount{}
	}

	index := make(map[uint16]int)
	var rows []PCCount
	for i, e := range t.All() {
		r, ok := index[e.PC]
		if !ok {
			r = len(rows)
			index[e.PC] = r
			rows = append(rows, PCCount{PC: e.PC, Instruction: e.Instruction, First: i})
		}
		rows[r].Count++
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].PC < rows[j].PC
	})
	for i := range rows {
		rows[i].Percentage = 100 * float64(rows[i].Count) / float64(total)
	}
	return rows
}

// TopPCs is PCDistribution truncated to k rows. Percentages still cover the
// whole trace. k <= 0 keeps all rows.
func TopPCs(t *trace.Trace, k int) []PCCount {
	return truncate(PCDistribution(t), k)
}

// TightLoop is a run of consecutive executions of the same instruction at
// the same PC, such as HALT spinning or a JR to itself.
type TightLoop struct {
	Start       int    `json:"start"`
	PC          uint16 `json:"pc"`
	Instruction string `json:"instruction"`
	Run         int    `json:"run"`
}

// DetectTightLoops reports runs of identical (pc, instruction) entries of at
// least threshold length. threshold <= 0 selects DefaultTightLoopThreshold.
func DetectTightLoops(t *trace.Trace, threshold int) []TightLoop {
	if threshold <= 0 {
		threshold = DefaultTightLoopThreshold
	}
	loops := []TightLoop{}
	n := t.Len()
	for start := 0; start < n; {
		head := t.Entry(start)
		end := start + 1
		for end < n {
			e := t.Entry(end)
			if e.PC != head.PC || e.Instruction != head.Instruction {
				break
			}
			end++
		}
		if run := end - start; run >= threshold {
			loops = append(loops, TightLoop{Start: start, PC: head.PC, Instruction: head.Instruction, Run: run})
		}
		start = end
	}
	return loops
}

// SequenceRun is a pattern of (pc, instruction) steps repeated back to back.
// Unlike windowed loops, each iteration is counted once.
type SequenceRun struct {
	Start        int      `json:"start"`
	End          int      `json:"end"` // exclusive
	PCs          []uint16 `json:"pcs"`
	Instructions []string `json:"instructions"`
	Iterations   int      `json:"iterations"`
}

// SequenceOptions configures DetectSequenceRuns. Zero values select defaults.
type SequenceOptions struct {
	MinIterations int
	MaxLen        int
}

// DetectSequenceRuns tries pattern lengths from 2 to MaxLen. For each length
// it scans forward; a pattern that repeats MinIterations times back to back
// is reported and scanning resumes after its last iteration.
func DetectSequenceRuns(t *trace.Trace, opts SequenceOptions) []SequenceRun {
	if opts.MinIterations <= 0 {
		opts.MinIterations = DefaultSequenceMinIterations
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = DefaultMaxSequenceLen
	}

	n := t.Len()
	same := func(a, b int) bool {
		x, y := t.Entry(a), t.Entry(b)
		return x.PC == y.PC && x.Instruction == y.Instruction
	}
	segmentEqual := func(a, b, length int) bool {
		for k := 0; k < length; k++ {
			if !same(a+k, b+k) {
				return false
			}
		}
		return true
	}

	runs := []SequenceRun{}
	for length := 2; length <= opts.MaxLen; length++ {
		if length > n/2 {
			break
		}
		for i := 0; i+2*length <= n; {
			iterations := 1
			j := i + length
			for j+length <= n && segmentEqual(i, j, length) {
				iterations++
				j += length
			}
			if iterations < opts.MinIterations {
				i++
				continue
			}
			run := SequenceRun{Start: i, End: j, Iterations: iterations}
			for k := i; k < i+length; k++ {
				e := t.Entry(k)
				run.PCs = append(run.PCs, e.PC)
				run.Instructions = append(run.Instructions, e.Instruction)
			}
			runs = append(runs, run)
			i = j
		}
	}
	return runs
}
