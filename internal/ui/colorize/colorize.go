// Package colorize highlights SM83 instruction text for terminal output.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// NoColorEnv disables highlighting when set to any non-empty value.
const NoColorEnv = "GBTRACE_NO_COLOR"

// Enabled reports whether ANSI output is allowed.
func Enabled() bool {
	return os.Getenv(NoColorEnv) == ""
}

// getAssemblyLexer returns an assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	// Z80 syntax is the closest chroma has to SM83
	candidates := []string{"z80", "nasm", "gas"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func getDisasmStyle() *chroma.Style {
	candidates := []string{SM83Dark.Name, "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Assembly highlights a block of instruction text, one instruction per line.
func Assembly(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Instruction highlights a single instruction. Errors fall back to plain text.
func Instruction(text string) string {
	out, err := Assembly(text)
	if err != nil {
		return text
	}
	if !strings.Contains(text, "\n") {
		// lexers that ensure a trailing newline may emit it inside a color span
		out = strings.ReplaceAll(out, "\n", "")
	}
	return out
}

// Line colorizes a rendered trace line of the form "[PPPP] INSTRUCTION ...".
// The address is dimmed and the remainder highlighted. Lines in any other
// shape are highlighted whole.
func Line(line string) string {
	if !Enabled() {
		return line
	}

	addr, rest, ok := strings.Cut(line, " ")
	if !ok || !isAddress(addr) {
		return Instruction(line)
	}
	return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m %s", addr, Instruction(rest))
}

// isAddress accepts "[0150]" and "0x0150". Bare hex is rejected so that
// mnemonics like ADD or DEC are not mistaken for addresses.
func isAddress(s string) bool {
	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		s = s[1 : len(s)-1]
	case strings.HasPrefix(s, "0x"):
		s = s[2:]
	default:
		return false
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexChar(s[i]) {
			return false
		}
	}
	return true
}

func isHexChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
