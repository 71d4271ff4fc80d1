package analysis

import (
	"strings"

	"gbtrace/internal/trace"
)

// Detector looks for one kind of repetition in a trace
type Detector interface {
	// Detect appends its findings for t to findings and returns the result
	Detect(t *trace.Trace, findings []Finding) []Finding
}

// DetectorChain runs multiple detectors in sequence
type DetectorChain struct {
	detectors []Detector
}

// NewDetectorChain creates a new detector chain
func NewDetectorChain(detectors ...Detector) *DetectorChain {
	return &DetectorChain{
		detectors: detectors,
	}
}

// DefaultDetectorChain runs every detector with default thresholds
func DefaultDetectorChain() *DetectorChain {
	return NewDetectorChain(
		WindowDetector{},
		FrequencyDetector{},
		TightLoopDetector{},
		SequenceDetector{},
	)
}

// Detect runs all detectors in sequence
func (dc *DetectorChain) Detect(t *trace.Trace) []Finding {
	result := []Finding{}
	for _, detector := range dc.detectors {
		result = detector.Detect(t, result)
	}
	return result
}

// Stuck reports whether findings show control flow that never leaves a loop:
// a tight loop that runs to the final entry, or a sequence run whose tail is
// a partial iteration of its pattern.
func Stuck(t *trace.Trace, findings []Finding) bool {
	n := t.Len()
	for _, f := range findings {
		if f.Start < 0 {
			continue
		}
		switch f.Kind {
		case KindTightLoop:
			if f.Start+f.Count == n {
				return true
			}
		case KindSequenceRun:
			if end := f.Start + f.Count*len(f.PCs); end <= n && tailFollows(t, end, f.PCs) {
				return true
			}
		}
	}
	return false
}

func tailFollows(t *trace.Trace, from int, pattern []uint16) bool {
	if t.Len()-from >= len(pattern) {
		return false
	}
	for k := from; k < t.Len(); k++ {
		if t.Entry(k).PC != pattern[k-from] {
			return false
		}
	}
	return true
}

// WindowDetector wraps DetectWindowedLoops
type WindowDetector struct{ Options WindowOptions }

func (d WindowDetector) Detect(t *trace.Trace, findings []Finding) []Finding {
	for _, l := range DetectWindowedLoops(t, d.Options) {
		findings = append(findings, Finding{
			Kind:  KindWindowedLoop,
			Start: l.Positions[0],
			PCs:   l.PCs,
			Count: l.Occurrences,
		})
	}
	return findings
}

// FrequencyDetector wraps DetectHotPCs
type FrequencyDetector struct{ MinRepeats int }

func (d FrequencyDetector) Detect(t *trace.Trace, findings []Finding) []Finding {
	for _, h := range DetectHotPCs(t, d.MinRepeats) {
		findings = append(findings, Finding{
			Kind:  KindHotPC,
			Start: -1,
			PCs:   []uint16{h.PC},
			Count: h.Count,
			Label: h.Instruction,
		})
	}
	return findings
}

// TightLoopDetector wraps DetectTightLoops
type TightLoopDetector struct{ Threshold int }

func (d TightLoopDetector) Detect(t *trace.Trace, findings []Finding) []Finding {
	for _, l := range DetectTightLoops(t, d.Threshold) {
		findings = append(findings, Finding{
			Kind:  KindTightLoop,
			Start: l.Start,
			PCs:   []uint16{l.PC},
			Count: l.Run,
			Label: l.Instruction,
		})
	}
	return findings
}

// SequenceDetector wraps DetectSequenceRuns
type SequenceDetector struct{ Options SequenceOptions }

func (d SequenceDetector) Detect(t *trace.Trace, findings []Finding) []Finding {
	for _, r := range DetectSequenceRuns(t, d.Options) {
		findings = append(findings, Finding{
			Kind:  KindSequenceRun,
			Start: r.Start,
			PCs:   r.PCs,
			Count: r.Iterations,
			Label: strings.Join(r.Instructions, "; "),
		})
	}
	return findings
}
