// Package analysis derives diagnostic views from an execution trace: filters,
// instruction histograms, loop detection and register tracking. Every
// function is a read-only pass over an immutable trace.
package analysis

// Defaults for analysis operations
const (
	// DefaultWindowSize is the PC window length for windowed loop detection
	DefaultWindowSize = 5

	// DefaultMinIterations is the window repeat count that counts as a loop
	DefaultMinIterations = 3

	// DefaultMinRepeats is the per-PC visit count that counts as a hot address
	DefaultMinRepeats = 5

	// DefaultTightLoopThreshold is the run length of one repeated instruction
	DefaultTightLoopThreshold = 10

	// DefaultSequenceMinIterations is the back-to-back repeat count for sequence runs
	DefaultSequenceMinIterations = 3

	// DefaultMaxSequenceLen is the longest pattern tried for sequence runs
	DefaultMaxSequenceLen = 10

	// MaxReportedPositions caps the start positions listed per windowed loop
	MaxReportedPositions = 5
)
