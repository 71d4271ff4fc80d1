package analysis

import (
	"errors"
	"testing"

	"gbtrace/internal/trace"
)

func TestRegisterChanges(t *testing.T) {
	withA := func(pc uint16, inst string, a uint8) trace.Entry {
		e := entry(pc, inst)
		e.Registers.Set(trace.RegA, a)
		return e
	}
	withoutA := entry(0x103, "LD B,C")
	withoutA.Registers.Set(trace.RegB, 0x10)

	tr := newTrace(
		withA(0x100, "LD A,$01", 0x01),
		withA(0x101, "NOP", 0x01),
		withoutA,
		withA(0x104, "INC A", 0x02),
	)

	got, err := RegisterChanges(tr, "a")
	if err != nil {
		t.Fatalf("RegisterChanges failed: %v", err)
	}
	want := []RegisterSample{
		{Index: 0, PC: 0x100, Value: 0x01, Instruction: "LD A,$01", Changed: true},
		{Index: 1, PC: 0x101, Value: 0x01, Instruction: "NOP", Changed: false},
		{Index: 3, PC: 0x104, Value: 0x02, Instruction: "INC A", Changed: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRegisterChangesInvalidRegister(t *testing.T) {
	tr := newTrace(entry(0x100, "NOP"))
	for _, name := range []string{"z", "sp", "af", "", "A", "H", " a", "l "} {
		got, err := RegisterChanges(tr, name)
		if !errors.Is(err, trace.ErrInvalidRegister) {
			t.Errorf("RegisterChanges(%q) error = %v, want ErrInvalidRegister", name, err)
		}
		if got != nil {
			t.Errorf("RegisterChanges(%q) returned partial result %+v", name, got)
		}
	}
}

func TestRegisterChangesEmptyTrace(t *testing.T) {
	got, err := RegisterChanges(newTrace(), "a")
	if err != nil || len(got) != 0 {
		t.Fatalf("RegisterChanges(empty) = %+v, %v", got, err)
	}
}
