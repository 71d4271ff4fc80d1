package render

import (
	"fmt"
	"strings"
	"time"

	"gbtrace/internal/analysis"
	"gbtrace/internal/trace"
)

// ReportOptions selects thresholds for the markdown report.
type ReportOptions struct {
	Title      string // usually the trace file name
	Top        int
	Limit      int // rows per table, 0 shows all
	Last       int // trailing entries shown in the code block
	Registers  bool
	Window     analysis.WindowOptions
	MinRepeats int
	Tight      int
	Sequence   analysis.SequenceOptions
}

// Report runs the detector chain over t and renders the results as a
// markdown document.
func Report(t *trace.Trace, opts ReportOptions) string {
	chain := analysis.NewDetectorChain(
		analysis.WindowDetector{Options: opts.Window},
		analysis.FrequencyDetector{MinRepeats: opts.MinRepeats},
		analysis.TightLoopDetector{Threshold: opts.Tight},
		analysis.SequenceDetector{Options: opts.Sequence},
	)
	findings := chain.Detect(t)

	var b strings.Builder
	title := opts.Title
	if title == "" {
		title = "trace"
	}
	fmt.Fprintf(&b, "# Trace Report\n\n`%s`\n\n", mdEscape(title))

	writeMetadataTable(&b, t)
	writeSummaryTable(&b, analysis.Summarize(t))

	b.WriteString("## Instruction Histogram\n\n")
	hist := analysis.TopMnemonics(t, opts.Top)
	if len(hist) == 0 {
		b.WriteString("No instructions.\n\n")
	} else {
		b.WriteString("| Instruction | Count | Percentage |\n|---|---:|---:|\n")
		for _, h := range hist {
			fmt.Fprintf(&b, "| %s | %d | %.2f%% |\n", mdEscape(h.Mnemonic), h.Count, h.Percentage)
		}
		b.WriteString("\n")
	}

	sections := []struct {
		kind  analysis.FindingKind
		title string
		cols  string
	}{
		{analysis.KindWindowedLoop, "Windowed Loops", "| First position | PC sequence | Occurrences |"},
		{analysis.KindHotPC, "Hot PCs", "| PC | Executions | First instruction |"},
		{analysis.KindTightLoop, "Tight Loops", "| Position | PC | Run | Instruction |"},
		{analysis.KindSequenceRun, "Repeated Sequences", "| Position | PC sequence | Iterations | Instructions |"},
	}
	for _, sec := range sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.title)
		var rows []analysis.Finding
		for _, f := range findings {
			if f.Kind == sec.kind {
				rows = append(rows, f)
			}
		}
		if len(rows) == 0 {
			b.WriteString("None detected.\n\n")
			continue
		}
		b.WriteString(sec.cols + "\n")
		b.WriteString(strings.Repeat("|---", strings.Count(sec.cols, "|")-1) + "|\n")
		shown, rest := len(rows), 0
		if opts.Limit > 0 && shown > opts.Limit {
			shown, rest = opts.Limit, shown-opts.Limit
		}
		for _, f := range rows[:shown] {
			writeFindingRow(&b, f)
		}
		if rest > 0 {
			fmt.Fprintf(&b, "\n*... (%d more)*\n", rest)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Verdict\n\n")
	if analysis.Stuck(t, findings) {
		b.WriteString("**Execution ends inside a loop.** The final entries repeat a detected pattern.\n\n")
	} else {
		b.WriteString("No stuck loop at the end of the trace.\n\n")
	}

	if opts.Last > 0 && t.Len() > 0 {
		last := analysis.LastN(t, opts.Last)
		fmt.Fprintf(&b, "## Last %d Instructions\n\n```\n", len(last))
		for _, e := range last {
			b.WriteString(FormatEntry(e, opts.Registers) + "\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}

func writeMetadataTable(b *strings.Builder, t *trace.Trace) {
	meta := t.Metadata()
	ts, capacity, usage := "N/A", "N/A", "N/A"
	if meta.Timestamp > 0 {
		ts = time.Unix(meta.Timestamp, 0).UTC().Format(TimeLayout)
	}
	if ratio, ok := t.BufferUsage(); ok {
		capacity = fmt.Sprint(meta.BufferCapacity)
		usage = fmt.Sprintf("%.1f%%", ratio*100)
	}

	b.WriteString("## Metadata\n\n| Field | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Timestamp | %s |\n", ts)
	fmt.Fprintf(b, "| Format | %s |\n", meta.Format)
	fmt.Fprintf(b, "| Entry count | %d |\n", meta.EntryCount)
	fmt.Fprintf(b, "| Buffer capacity | %s |\n", capacity)
	fmt.Fprintf(b, "| Buffer usage | %s |\n", usage)
	if meta.SkippedRecords > 0 {
		fmt.Fprintf(b, "| Skipped records | %d |\n", meta.SkippedRecords)
	}
	b.WriteString("\n")
}

func writeSummaryTable(b *strings.Builder, s analysis.Summary) {
	b.WriteString("## Summary\n\n| Measure | Value |\n|---|---:|\n")
	fmt.Fprintf(b, "| Entries | %d |\n", s.Entries)
	fmt.Fprintf(b, "| Unique PCs | %d |\n", s.UniquePCs)
	fmt.Fprintf(b, "| Unique instructions | %d |\n", s.UniqueInstructions)
	fmt.Fprintf(b, "| Unique mnemonics | %d |\n", s.UniqueMnemonics)
	if s.EntriesWithCycles > 0 {
		fmt.Fprintf(b, "| Total cycles | %d |\n", s.TotalCycles)
	}
	b.WriteString("\n")
}

func writeFindingRow(b *strings.Builder, f analysis.Finding) {
	switch f.Kind {
	case analysis.KindWindowedLoop:
		fmt.Fprintf(b, "| %d | `%s` | %d |\n", f.Start, joinPCs(f.PCs), f.Count)
	case analysis.KindHotPC:
		fmt.Fprintf(b, "| `%04X` | %d | `%s` |\n", f.PCs[0], f.Count, mdEscape(f.Label))
	case analysis.KindTightLoop:
		fmt.Fprintf(b, "| %d | `%04X` | %d | `%s` |\n", f.Start, f.PCs[0], f.Count, mdEscape(f.Label))
	case analysis.KindSequenceRun:
		fmt.Fprintf(b, "| %d | `%s` | %d | %s |\n", f.Start, joinPCs(f.PCs), f.Count, mdEscape(f.Label))
	}
}

// mdEscape keeps instruction text from breaking table cells.
func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "`", "'").Replace(s)
}
