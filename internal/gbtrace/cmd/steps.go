package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gbtrace/internal/analysis"
	"gbtrace/internal/render"
	"gbtrace/internal/trace"
)

// step is one named analysis with an optional argument, as written on the
// command line: "histogram", "last=50", "range=0150-0200".
type step struct {
	name string
	arg  string
}

func (st step) String() string {
	if st.arg == "" {
		return st.name
	}
	return st.name + "=" + st.arg
}

type analysisFunc func(s *session, arg string) error

type analysisDef struct {
	usage string
	run   analysisFunc
}

var analyses = map[string]analysisDef{
	"summary":   {"summary", runSummary},
	"last":      {"last[=N]           last N instructions (default 20)", runLast},
	"inst":      {"inst=TEXT          instructions containing TEXT", runInst},
	"range":     {"range=START-END    instructions with PC in range (hex)", runRange},
	"histogram": {"histogram[=TOP]    mnemonic frequency", runHistogram},
	"frequency": {"frequency[=TOP]    full instruction text frequency", runFrequency},
	"pcs":       {"pcs[=TOP]          executions per PC", runPCs},
	"loops":     {"loops[=WINDOW]     windowed loop detection", runLoops},
	"hot":       {"hot[=MIN]          PCs executed at least MIN times", runHot},
	"tight":     {"tight[=THRESHOLD]  runs of one repeated instruction", runTight},
	"sequences": {"sequences[=MAXLEN] back-to-back repeated sequences", runSequences},
	"registers": {"registers=REG[,REG...] register values over time", runRegisters},
	"findings":  {"findings           every detector plus stuck verdict", runFindings},
}

// analysisUsage lists the accepted analyses, one per line.
func analysisUsage() string {
	names := make([]string, 0, len(analyses))
	for name := range analyses {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", analyses[name].usage)
	}
	return b.String()
}

// parseStep reads "name" or "name=arg". A leading "--" is tolerated so that
// root flag spellings work too.
func parseStep(s string) (step, error) {
	s = strings.TrimPrefix(s, "--")
	name, arg, _ := strings.Cut(s, "=")
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := analyses[name]; !ok {
		return step{}, fmt.Errorf("unknown analysis %q\naccepted analyses:\n%s", name, analysisUsage())
	}
	return step{name: name, arg: strings.TrimSpace(arg)}, nil
}

// execute runs steps in order. Text output is written as each step runs,
// after the metadata header; JSON output is written once at the end.
func (s *session) execute(steps []step) error {
	if !s.json && !s.quiet {
		s.render.Metadata(s.trace)
	}
	for _, st := range steps {
		def, ok := analyses[st.name]
		if !ok {
			return fmt.Errorf("unknown analysis %q", st.name)
		}
		if err := def.run(s, st.arg); err != nil {
			return fmt.Errorf("%s: %w", st, err)
		}
	}
	if s.json {
		return render.WriteJSON(s.out, s.doc)
	}
	return nil
}

// intArg parses a step argument, returning def when it is empty. Values
// below lowest are rejected.
func intArg(arg string, def, lowest int) (int, error) {
	if arg == "" {
		return def, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", arg)
	}
	if n < lowest {
		return 0, fmt.Errorf("value must be at least %d, got %d", lowest, n)
	}
	return n, nil
}

func runSummary(s *session, _ string) error {
	sum := analysis.Summarize(s.trace)
	if s.json {
		s.doc.Summary = &sum
		return nil
	}
	s.render.Summary(sum)
	return nil
}

func runLast(s *session, arg string) error {
	n, err := intArg(arg, 20, 0)
	if err != nil {
		return err
	}
	entries := analysis.LastN(s.trace, n)
	if s.json {
		s.doc.Last = render.EntryViews(entries)
		return nil
	}
	// the caller asked for exactly n rows
	s.render.WithLimit(0).Entries(fmt.Sprintf("Last %d Instructions", n), entries)
	return nil
}

func runInst(s *session, arg string) error {
	if arg == "" {
		return fmt.Errorf("missing instruction text")
	}
	entries := analysis.ByMnemonic(s.trace, arg)
	if s.json {
		s.doc.Matches = render.EntryViews(entries)
		return nil
	}
	s.render.Entries(fmt.Sprintf("Found %d occurrences of '%s'", len(entries), arg), entries)
	return nil
}

func runRange(s *session, arg string) error {
	start, end, err := parseRange(arg)
	if err != nil {
		return err
	}
	entries := analysis.ByPCRange(s.trace, start, end)
	if s.json {
		s.doc.Range = render.EntryViews(entries)
		return nil
	}
	s.render.Entries(fmt.Sprintf("Instructions in range %04X-%04X (%d entries)", start, end, len(entries)), entries)
	return nil
}

func runHistogram(s *session, arg string) error {
	top, err := intArg(arg, s.cfg.Histogram.Top, 1)
	if err != nil {
		return err
	}
	buckets := analysis.TopMnemonics(s.trace, top)
	if s.json {
		s.doc.Histogram = buckets
		return nil
	}
	s.render.Histogram(fmt.Sprintf("Instruction Frequency (Top %d)", top), buckets, s.trace.Len())
	return nil
}

func runFrequency(s *session, arg string) error {
	top, err := intArg(arg, s.cfg.Histogram.Top, 1)
	if err != nil {
		return err
	}
	buckets := analysis.TopInstructions(s.trace, top)
	if s.json {
		s.doc.Instructions = buckets
		return nil
	}
	s.render.Histogram(fmt.Sprintf("Instruction Text Frequency (Top %d)", top), buckets, s.trace.Len())
	return nil
}

func runPCs(s *session, arg string) error {
	top, err := intArg(arg, s.cfg.Histogram.Top, 1)
	if err != nil {
		return err
	}
	rows := analysis.TopPCs(s.trace, top)
	if s.json {
		s.doc.PCs = rows
		return nil
	}
	s.render.PCs(fmt.Sprintf("PC Distribution (Top %d)", top), rows)
	return nil
}

func (s *session) windowOptions() analysis.WindowOptions {
	return analysis.WindowOptions{
		WindowSize:    s.cfg.Loops.WindowSize,
		MinIterations: s.cfg.Loops.MinIterations,
	}
}

func (s *session) sequenceOptions() analysis.SequenceOptions {
	return analysis.SequenceOptions{
		MinIterations: s.cfg.Loops.SequenceMinIterations,
		MaxLen:        s.cfg.Loops.MaxSequenceLen,
	}
}

func runLoops(s *session, arg string) error {
	opts := s.windowOptions()
	w, err := intArg(arg, opts.WindowSize, 1)
	if err != nil {
		return err
	}
	opts.WindowSize = w
	loops := analysis.DetectWindowedLoops(s.trace, opts)
	if s.json {
		s.doc.Loops = loops
		return nil
	}
	s.render.Loops(opts, loops)
	return nil
}

func runHot(s *session, arg string) error {
	minRepeats, err := intArg(arg, s.cfg.Loops.MinRepeats, 1)
	if err != nil {
		return err
	}
	hot := analysis.DetectHotPCs(s.trace, minRepeats)
	if s.json {
		s.doc.HotPCs = hot
		return nil
	}
	s.render.HotPCs(minRepeats, hot)
	return nil
}

func runTight(s *session, arg string) error {
	threshold, err := intArg(arg, s.cfg.Loops.TightThreshold, 1)
	if err != nil {
		return err
	}
	loops := analysis.DetectTightLoops(s.trace, threshold)
	if s.json {
		s.doc.TightLoops = loops
		return nil
	}
	s.render.TightLoops(threshold, loops)
	return nil
}

func runSequences(s *session, arg string) error {
	opts := s.sequenceOptions()
	maxLen, err := intArg(arg, opts.MaxLen, 2)
	if err != nil {
		return err
	}
	opts.MaxLen = maxLen
	runs := analysis.DetectSequenceRuns(s.trace, opts)
	if s.json {
		s.doc.SequenceRuns = runs
		return nil
	}
	s.render.SequenceRuns(runs)
	return nil
}

func runRegisters(s *session, arg string) error {
	if arg == "" {
		return fmt.Errorf("missing register name: %w", trace.ErrInvalidRegister)
	}
	for _, name := range strings.Split(arg, ",") {
		// the engine wants exact names; the command line is forgiving
		name = strings.ToLower(strings.TrimSpace(name))
		samples, err := analysis.RegisterChanges(s.trace, name)
		if err != nil {
			return err
		}
		reg, _ := trace.ParseRegister(name)
		if s.json {
			if s.doc.Registers == nil {
				s.doc.Registers = make(map[string][]analysis.RegisterSample)
			}
			s.doc.Registers[reg.String()] = samples
			continue
		}
		s.render.Registers(reg, samples)
	}
	return nil
}

// detectorChain builds the chain with the session's thresholds.
func (s *session) detectorChain() *analysis.DetectorChain {
	return analysis.NewDetectorChain(
		analysis.WindowDetector{Options: s.windowOptions()},
		analysis.FrequencyDetector{MinRepeats: s.cfg.Loops.MinRepeats},
		analysis.TightLoopDetector{Threshold: s.cfg.Loops.TightThreshold},
		analysis.SequenceDetector{Options: s.sequenceOptions()},
	)
}

func runFindings(s *session, _ string) error {
	findings := s.detectorChain().Detect(s.trace)
	stuck := analysis.Stuck(s.trace, findings)
	if s.json {
		s.doc.Findings = findings
		s.doc.Stuck = &stuck
		return nil
	}
	s.render.Findings(findings, stuck)
	return nil
}
