package analysis

import (
	"gbtrace/internal/trace"
)

// RegisterSample is the value of one register after an entry retired.
type RegisterSample struct {
	Index       int    `json:"index"`
	PC          uint16 `json:"pc"`
	Value       uint8  `json:"value"`
	Instruction string `json:"instruction"`
	Changed     bool   `json:"changed"` // differs from the previous sample
}

// RegisterChanges returns one sample per entry that captured the named
// register, in execution order. Every sample is kept, changed or not.
// Entries without the register are skipped. Names other than a,f,b,c,d,e,h,l
// fail with trace.ErrInvalidRegister.
func RegisterChanges(t *trace.Trace, name string) ([]RegisterSample, error) {
	reg, err := trace.ParseRegister(name)
	if err != nil {
		return nil, err
	}
	return TrackRegister(t, reg), nil
}

// TrackRegister is RegisterChanges for an already parsed register.
func TrackRegister(t *trace.Trace, reg trace.Register) []RegisterSample {
	samples := []RegisterSample{}
	var prev uint8
	for i, e := range t.All() {
		v, ok := e.Registers.Get(reg)
		if !ok {
			continue
		}
		changed := len(samples) == 0 || v != prev
		samples = append(samples, RegisterSample{
			Index:       i,
			PC:          e.PC,
			Value:       v,
			Instruction: e.Instruction,
			Changed:     changed,
		})
		prev = v
	}
	return samples
}
