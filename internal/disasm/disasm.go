// Package disasm normalizes the decoded SM83 instruction text recorded in
// traces ("LD A,B", "JP 0150", "JR NZ, $FD").
package disasm

import "strings"

// Inst is an instruction split into its opcode mnemonic and operand text.
type Inst struct {
	PC       uint16 // address the instruction executed at
	Text     string // full disassembly as recorded
	Op       string // mnemonic as recorded (case preserved)
	Operands string // everything after the mnemonic, trimmed
}

// Parse splits recorded instruction text at pc.
func Parse(pc uint16, text string) Inst {
	op := Mnemonic(text)
	rest := strings.TrimSpace(text)
	if i := strings.IndexAny(rest, " \t\r\n"); i >= 0 {
		rest = strings.TrimSpace(rest[i:])
	} else {
		rest = ""
	}
	// "LD,A" style text with no space keeps its operands after the comma
	if rest == "" && op != strings.TrimSpace(text) {
		rest = strings.TrimPrefix(strings.TrimSpace(text)[len(op):], ",")
	}
	return Inst{PC: pc, Text: text, Op: op, Operands: rest}
}

// Mnemonic extracts the bare opcode name: the first whitespace-delimited
// token, cut at its first comma. Text with no token yields "".
func Mnemonic(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	tok := fields[0]
	if i := strings.IndexByte(tok, ','); i >= 0 {
		tok = tok[:i]
	}
	return tok
}

// Contains reports whether needle occurs anywhere in text, ignoring case.
func Contains(text, needle string) bool {
	return strings.Contains(strings.ToUpper(text), strings.ToUpper(needle))
}
