package analysis

import (
	"sort"

	"gbtrace/internal/disasm"
	"gbtrace/internal/trace"
)

// Bucket is one row of the instruction frequency distribution.
type Bucket struct {
	Mnemonic   string  `json:"mnemonic"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Histogram counts entries per normalized mnemonic, ranked by count with ties
// in first-seen order. Percentages are relative to the whole trace.
func Histogram(t *trace.Trace) []Bucket {
	return rank(t, func(e trace.Entry) string { return disasm.Mnemonic(e.Instruction) })
}

// TopMnemonics is Histogram truncated to k rows. k <= 0 keeps all rows.
func TopMnemonics(t *trace.Trace, k int) []Bucket {
	return truncate(Histogram(t), k)
}

// InstructionFrequency counts entries per full instruction text ("LD A,B"
// and "LD A,C" are separate rows).
func InstructionFrequency(t *trace.Trace) []Bucket {
	return rank(t, func(e trace.Entry) string { return e.Instruction })
}

// TopInstructions is InstructionFrequency truncated to k rows. k <= 0 keeps
// all rows.
func TopInstructions(t *trace.Trace, k int) []Bucket {
	return truncate(InstructionFrequency(t), k)
}

func rank(t *trace.Trace, key func(trace.Entry) string) []Bucket {
	total := t.Len()
	if total == 0 {
		return []Bucket{}
	}

	index := make(map[string]int)
	var buckets []Bucket
	for _, e := range t.All() {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Mnemonic: k})
		}
		buckets[i].Count++
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	for i := range buckets {
		buckets[i].Percentage = 100 * float64(buckets[i].Count) / float64(total)
	}
	return buckets
}

func truncate[T any](rows []T, k int) []T {
	if k <= 0 || k >= len(rows) {
		return rows
	}
	return rows[:k]
}
