package trace

import (
	"fmt"
	"strings"
)

// Register names one of the 8-bit SM83 registers.
type Register uint8

const (
	RegA Register = iota
	RegF
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL

	numRegisters = 8
)

var registerNames = [numRegisters]string{"a", "f", "b", "c", "d", "e", "h", "l"}

// AllRegisters lists the 8-bit registers in snapshot order.
var AllRegisters = []Register{RegA, RegF, RegB, RegC, RegD, RegE, RegH, RegL}

func (r Register) String() string {
	if int(r) < numRegisters {
		return registerNames[r]
	}
	return fmt.Sprintf("Register(%d)", uint8(r))
}

// ParseRegister maps a register name to a Register. Names are exact:
// "A" and " a" are invalid.
func ParseRegister(name string) (Register, error) {
	for i, rn := range registerNames {
		if rn == name {
			return Register(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidRegister, name, strings.Join(registerNames[:], ","))
}

// Registers is the CPU state after the instruction retired. Each field may be
// absent from the captured record; absence is tracked, not defaulted.
type Registers struct {
	values  [numRegisters]uint8
	present uint8
	sp      uint16
	hasSP   bool
}

// NewRegisters returns a snapshot with every register present.
func NewRegisters(a, f, b, c, d, e, h, l uint8, sp uint16) Registers {
	return Registers{
		values:  [numRegisters]uint8{a, f, b, c, d, e, h, l},
		present: 0xFF,
		sp:      sp,
		hasSP:   true,
	}
}

// Set records a value for reg.
func (r *Registers) Set(reg Register, v uint8) {
	r.values[reg] = v
	r.present |= 1 << reg
}

// SetSP records the stack pointer.
func (r *Registers) SetSP(v uint16) {
	r.sp = v
	r.hasSP = true
}

// Get returns the value of reg and whether it was captured.
func (r Registers) Get(reg Register) (uint8, bool) {
	if int(reg) >= numRegisters || r.present&(1<<reg) == 0 {
		return 0, false
	}
	return r.values[reg], true
}

// SP returns the stack pointer and whether it was captured.
func (r Registers) SP() (uint16, bool) { return r.sp, r.hasSP }

// Complete reports whether every register including SP was captured.
func (r Registers) Complete() bool { return r.present == 0xFF && r.hasSP }

// Empty reports whether nothing was captured.
func (r Registers) Empty() bool { return r.present == 0 && !r.hasSP }
