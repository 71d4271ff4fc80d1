package analysis

import (
	"gbtrace/internal/disasm"
	"gbtrace/internal/trace"
)

// LastN returns the final min(n, len) entries. n <= 0 yields none.
func LastN(t *trace.Trace, n int) []trace.Entry {
	if n <= 0 {
		return []trace.Entry{}
	}
	n = min(n, t.Len())
	return t.Slice(t.Len()-n, t.Len())
}

// ByMnemonic returns every entry whose full instruction text contains needle,
// ignoring case. "jp" matches "JP 0150".
func ByMnemonic(t *trace.Trace, needle string) []trace.Entry {
	return Where(t, func(e trace.Entry) bool {
		return disasm.Contains(e.Instruction, needle)
	})
}

// ByPCRange returns entries with start <= pc <= end. An inverted range
// yields none.
func ByPCRange(t *trace.Trace, start, end uint16) []trace.Entry {
	if start > end {
		return []trace.Entry{}
	}
	return Where(t, func(e trace.Entry) bool {
		return e.PC >= start && e.PC <= end
	})
}

// Where returns the entries accepted by keep, in execution order.
func Where(t *trace.Trace, keep func(trace.Entry) bool) []trace.Entry {
	out := []trace.Entry{}
	for _, e := range t.All() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
