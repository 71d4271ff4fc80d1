// Package render turns engine results into terminal text, JSON and markdown.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"

	"gbtrace/internal/analysis"
	"gbtrace/internal/trace"
	"gbtrace/internal/ui/colorize"
)

// TimeLayout formats metadata timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Options controls text output.
type Options struct {
	Color     bool // ANSI styling
	Registers bool // register snapshot after each entry
	Limit     int  // rows per list before eliding, 0 shows all
}

// Renderer writes human readable reports to w.
type Renderer struct {
	w    io.Writer
	opts Options

	heading lipgloss.Style
	addr    lipgloss.Style
	value   lipgloss.Style
	dim     lipgloss.Style
}

// New creates a text renderer.
func New(w io.Writer, opts Options) *Renderer {
	return &Renderer{
		w:       w,
		opts:    opts,
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		addr:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("170")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

// WithLimit returns a copy of r that elides lists after n rows.
func (r *Renderer) WithLimit(n int) *Renderer {
	cp := *r
	cp.opts.Limit = n
	return &cp
}

func (r *Renderer) paint(st lipgloss.Style, s string) string {
	if !r.opts.Color {
		return s
	}
	return st.Render(s)
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func (r *Renderer) section(title string) {
	r.printf("\n%s\n\n", r.paint(r.heading, "=== "+title+" ==="))
}

// shown returns how many of n rows to print and how many are elided.
func (r *Renderer) shown(n int) (int, int) {
	if r.opts.Limit <= 0 || n <= r.opts.Limit {
		return n, 0
	}
	return r.opts.Limit, n - r.opts.Limit
}

func (r *Renderer) more(n int, noun string) {
	if n > 0 {
		r.printf("  %s\n", r.paint(r.dim, fmt.Sprintf("... (%d more %s)", n, noun)))
	}
}

// Metadata prints the capture details of t.
func (r *Renderer) Metadata(t *trace.Trace) {
	meta := t.Metadata()
	r.section("Trace Metadata")

	ts := "N/A"
	if meta.Timestamp > 0 {
		ts = time.Unix(meta.Timestamp, 0).UTC().Format(TimeLayout)
	}
	capacity, usage := "N/A", "N/A"
	if ratio, ok := t.BufferUsage(); ok {
		capacity = fmt.Sprint(meta.BufferCapacity)
		usage = fmt.Sprintf("%.1f%%", ratio*100)
	}

	r.printf("Timestamp:        %s\n", ts)
	r.printf("Format:           %s\n", meta.Format)
	r.printf("Entry count:      %d\n", meta.EntryCount)
	if meta.EntryCount != t.Len() {
		r.printf("Loaded entries:   %d\n", t.Len())
	}
	r.printf("Buffer capacity:  %s\n", capacity)
	r.printf("Buffer usage:     %s\n", usage)
	if meta.SkippedRecords > 0 {
		r.printf("Skipped records:  %d\n", meta.SkippedRecords)
	}
}

// FormatRegisters renders a snapshot as "A=01 F=B0 BC=0013 DE=00D8 HL=014D
// SP=FFFE". Pairs with one half missing fall back to the single register;
// absent registers are omitted.
func FormatRegisters(regs trace.Registers) string {
	var parts []string
	for _, reg := range []trace.Register{trace.RegA, trace.RegF} {
		if v, ok := regs.Get(reg); ok {
			parts = append(parts, fmt.Sprintf("%s=%02X", strings.ToUpper(reg.String()), v))
		}
	}
	pairs := [][2]trace.Register{
		{trace.RegB, trace.RegC},
		{trace.RegD, trace.RegE},
		{trace.RegH, trace.RegL},
	}
	for _, p := range pairs {
		hi, hiOK := regs.Get(p[0])
		lo, loOK := regs.Get(p[1])
		switch {
		case hiOK && loOK:
			parts = append(parts, fmt.Sprintf("%s=%02X%02X", strings.ToUpper(p[0].String()+p[1].String()), hi, lo))
		case hiOK:
			parts = append(parts, fmt.Sprintf("%s=%02X", strings.ToUpper(p[0].String()), hi))
		case loOK:
			parts = append(parts, fmt.Sprintf("%s=%02X", strings.ToUpper(p[1].String()), lo))
		}
	}
	if sp, ok := regs.SP(); ok {
		parts = append(parts, fmt.Sprintf("SP=%04X", sp))
	}
	return strings.Join(parts, " ")
}

// FormatEntry renders one entry as "[0150] JP 0150              (cycles: 16)",
// followed by the register snapshot when registers is set and one exists.
func FormatEntry(e trace.Entry, registers bool) string {
	cycles := "-"
	if e.HasCycles {
		cycles = fmt.Sprint(e.Cycles)
	}
	line := fmt.Sprintf("[%04X] %-20s (cycles: %s)", e.PC, e.Instruction, cycles)
	if registers && !e.Registers.Empty() {
		line += " ; " + FormatRegisters(e.Registers)
	}
	return line
}

// Entries prints a titled list of entries.
func (r *Renderer) Entries(title string, entries []trace.Entry) {
	r.section(title)
	if len(entries) == 0 {
		r.printf("No matching entries\n")
		return
	}
	n, rest := r.shown(len(entries))
	for _, e := range entries[:n] {
		line := FormatEntry(e, r.opts.Registers)
		if r.opts.Color {
			line = colorize.Line(line)
		}
		r.printf("%s\n", line)
	}
	r.more(rest, "entries")
}

// Histogram prints ranked buckets as a table. total is the trace length.
func (r *Renderer) Histogram(title string, buckets []analysis.Bucket, total int) {
	r.section(title)
	if len(buckets) == 0 {
		r.printf("No instructions\n")
		return
	}
	r.printf("%-15s %8s %10s\n", "Instruction", "Count", "Percentage")
	r.printf("%s\n", strings.Repeat("-", 40))
	for _, b := range buckets {
		name := b.Mnemonic
		if name == "" {
			name = "(empty)"
		}
		r.printf("%-15s %8d %9.2f%%\n", name, b.Count, b.Percentage)
	}
	r.printf("\nTotal instructions: %d\n", total)
}

// PCs prints the per-address execution distribution.
func (r *Renderer) PCs(title string, rows []analysis.PCCount) {
	r.section(title)
	if len(rows) == 0 {
		r.printf("No instructions\n")
		return
	}
	r.printf("%-6s %8s %10s  %s\n", "PC", "Count", "Percentage", "First instruction")
	r.printf("%s\n", strings.Repeat("-", 48))
	for _, row := range rows {
		r.printf("%s %8d %9.2f%%  %s\n", r.paint(r.addr, fmt.Sprintf("%04X  ", row.PC)), row.Count, row.Percentage, row.Instruction)
	}
}

func joinPCs(pcs []uint16) string {
	parts := make([]string, len(pcs))
	for i, pc := range pcs {
		parts[i] = fmt.Sprintf("%04X", pc)
	}
	return strings.Join(parts, " -> ")
}

func formatPositions(positions []int, truncated bool) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprint(p)
	}
	s := "[" + strings.Join(parts, ", ") + "]"
	if truncated {
		s += "..."
	}
	return s
}

// Loops prints windowed loop detection results.
func (r *Renderer) Loops(opts analysis.WindowOptions, loops []analysis.Loop) {
	r.section(fmt.Sprintf("Potential Loops (window %d, min %d iterations)", opts.WindowSize, opts.MinIterations))
	if len(loops) == 0 {
		r.printf("No loops detected\n")
		return
	}
	n, rest := r.shown(len(loops))
	for _, l := range loops[:n] {
		r.printf("Loop detected at positions %s\n", formatPositions(l.Positions, l.Truncated()))
		r.printf("  PC sequence: %s\n", r.paint(r.addr, joinPCs(l.PCs)))
		r.printf("  Iterations: %s\n\n", r.paint(r.value, fmt.Sprint(l.Occurrences)))
	}
	r.more(rest, "loops")
}

// HotPCs prints frequency-threshold detection results.
func (r *Renderer) HotPCs(minRepeats int, hot []analysis.HotPC) {
	r.section(fmt.Sprintf("Hot PCs (executed >= %d times)", minRepeats))
	if len(hot) == 0 {
		r.printf("No hot PCs detected\n")
		return
	}
	n, rest := r.shown(len(hot))
	for _, h := range hot[:n] {
		r.printf("  %s: %s executed %s times\n",
			r.paint(r.addr, fmt.Sprintf("0x%04X", h.PC)), h.Instruction, r.paint(r.value, fmt.Sprint(h.Count)))
	}
	r.more(rest, "PCs")
}

// TightLoops prints runs of a single repeated instruction.
func (r *Renderer) TightLoops(threshold int, loops []analysis.TightLoop) {
	r.section(fmt.Sprintf("Tight Loops (>= %d consecutive)", threshold))
	if len(loops) == 0 {
		r.printf("No tight loops detected\n")
		return
	}
	n, rest := r.shown(len(loops))
	for _, l := range loops[:n] {
		r.printf("  position %d: %s %s x %s\n",
			l.Start, r.paint(r.addr, fmt.Sprintf("0x%04X", l.PC)), l.Instruction, r.paint(r.value, fmt.Sprint(l.Run)))
	}
	r.more(rest, "loops")
}

// SequenceRuns prints back-to-back repeated instruction sequences.
func (r *Renderer) SequenceRuns(runs []analysis.SequenceRun) {
	r.section("Repeated Sequences")
	if len(runs) == 0 {
		r.printf("No repeated sequences detected\n")
		return
	}
	n, rest := r.shown(len(runs))
	for _, s := range runs[:n] {
		r.printf("  positions %d-%d: %s (%s iterations)\n",
			s.Start, s.End-1, r.paint(r.addr, joinPCs(s.PCs)), r.paint(r.value, fmt.Sprint(s.Iterations)))
		r.printf("    %s\n", strings.Join(s.Instructions, "; "))
	}
	r.more(rest, "sequences")
}

// Registers prints the samples of one register. Samples equal to their
// predecessor are dimmed.
func (r *Renderer) Registers(reg trace.Register, samples []analysis.RegisterSample) {
	name := strings.ToUpper(reg.String())
	r.section(fmt.Sprintf("Register %s changes over time", name))
	if len(samples) == 0 {
		r.printf("No entries captured register %s\n", name)
		return
	}
	n, rest := r.shown(len(samples))
	for _, s := range samples[:n] {
		line := fmt.Sprintf("0x%04X: %s=$%02X (%s)", s.PC, name, s.Value, s.Instruction)
		if !s.Changed {
			line = r.paint(r.dim, line)
		}
		r.printf("  %s\n", line)
	}
	r.more(rest, "changes")
}

// Summary prints the one-screen overview.
func (r *Renderer) Summary(s analysis.Summary) {
	r.section("Trace Summary")
	r.printf("Total entries:        %d\n", s.Entries)
	r.printf("Declared entries:     %d\n", s.DeclaredEntries)
	if s.SkippedRecords > 0 {
		r.printf("Skipped records:      %d\n", s.SkippedRecords)
	}
	r.printf("Unique PCs:           %d\n", s.UniquePCs)
	r.printf("Unique instructions:  %d\n", s.UniqueInstructions)
	r.printf("Unique mnemonics:     %d\n", s.UniqueMnemonics)
	if s.EntriesWithCycles > 0 {
		r.printf("Total cycles:         %d (%d entries)\n", s.TotalCycles, s.EntriesWithCycles)
	}
	if s.FirstPC != nil {
		r.printf("PC span:              %04X .. %04X\n", *s.FirstPC, *s.LastPC)
	}
	if s.BufferUsage != nil {
		r.printf("Buffer usage:         %.1f%%\n", *s.BufferUsage*100)
	}
}

// Findings prints the aggregated detector results and the stuck verdict.
func (r *Renderer) Findings(findings []analysis.Finding, stuck bool) {
	r.section("Findings")
	if len(findings) == 0 {
		r.printf("No repetition detected\n")
	}
	n, rest := r.shown(len(findings))
	for _, f := range findings[:n] {
		start := "-"
		if f.Start >= 0 {
			start = fmt.Sprint(f.Start)
		}
		r.printf("  %-14s start %-6s %s x%d", f.Kind, start, r.paint(r.addr, joinPCs(f.PCs)), f.Count)
		if f.Label != "" {
			r.printf("  %s", f.Label)
		}
		r.printf("\n")
	}
	r.more(rest, "findings")

	if stuck {
		r.printf("\n%s\n", r.paint(r.value, "Verdict: execution ends inside a loop"))
	} else {
		r.printf("\nVerdict: no stuck loop at end of trace\n")
	}
}

// Hint prints quick-start usage lines.
func (r *Renderer) Hint(lines ...string) {
	r.printf("\nNo analysis command specified. Use --help for options.\n")
	r.printf("Quick start:\n")
	for _, l := range lines {
		r.printf("  %s\n", l)
	}
}
