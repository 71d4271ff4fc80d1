package analysis

// FindingKind names the heuristic that produced a Finding.
type FindingKind int

const (
	KindWindowedLoop FindingKind = iota
	KindHotPC
	KindTightLoop
	KindSequenceRun
)

func (k FindingKind) String() string {
	switch k {
	case KindWindowedLoop:
		return "windowed-loop"
	case KindHotPC:
		return "hot-pc"
	case KindTightLoop:
		return "tight-loop"
	case KindSequenceRun:
		return "sequence-run"
	default:
		return "unknown"
	}
}

func (k FindingKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Finding is a heuristic-neutral view of one detected repetition, used when
// several detectors report side by side.
type Finding struct {
	Kind  FindingKind `json:"kind"`
	Start int         `json:"start"` // first position, -1 when order-independent
	PCs   []uint16    `json:"pcs"`
	Count int         `json:"count"` // occurrences, visits, run length or iterations
	Label string      `json:"label,omitempty"`
}
