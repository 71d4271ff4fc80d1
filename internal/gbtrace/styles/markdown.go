// Package styles holds the glamour themes used for markdown reports.
package styles

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/x/exp/charmtone"
)

// Helper functions for style pointers
func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// palette is the set of colors a report theme is built from.
type palette struct {
	text     string
	muted    string // block quotes, rules
	heading  string
	title    string // H1 foreground
	titleBg  string
	section  string // H2 and H3
	code     string
	codeBg   string // inline code background, "" for none
	listItem string
	link     string
}

// Theme returns the style config registered under name.
func Theme(name string) (ansi.StyleConfig, error) {
	switch name {
	case "", "charm":
		return CharmStyle(), nil
	case "dmg":
		return DMGStyle(), nil
	default:
		return ansi.StyleConfig{}, fmt.Errorf("unknown theme %q", name)
	}
}

// MarkdownRenderer returns a glamour TermRenderer for the named theme,
// wrapping prose at width. Code blocks are preserved by glamour.
func MarkdownRenderer(theme string, width int) (*glamour.TermRenderer, error) {
	style, err := Theme(theme)
	if err != nil {
		return nil, err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r, nil
}

// CharmStyle is the default theme built from the charmtone palette.
func CharmStyle() ansi.StyleConfig {
	return buildStyle(palette{
		text:     charmtone.Smoke.Hex(),
		muted:    charmtone.Squid.Hex(),
		heading:  charmtone.Malibu.Hex(),
		title:    charmtone.Zest.Hex(),
		titleBg:  charmtone.Charple.Hex(),
		section:  charmtone.Guac.Hex(),
		code:     charmtone.Malibu.Hex(),
		listItem: "• ",
		link:     charmtone.Cheeky.Hex(),
	})
}

func buildStyle(p palette) ansi.StyleConfig {
	var codeBg *string
	if p.codeBg != "" {
		codeBg = stringPtr(p.codeBg)
	}
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(p.text)},
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(p.muted), Italic: boolPtr(true)},
			Indent:         uintPtr(1),
			IndentToken:    stringPtr("│ "),
		},
		List: ansi.StyleList{LevelIndent: 2},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       stringPtr(p.heading),
				Bold:        boolPtr(true),
			},
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Prefix:          " ",
				Suffix:          " ",
				Color:           stringPtr(p.title),
				BackgroundColor: stringPtr(p.titleBg),
				Bold:            boolPtr(true),
			},
		},
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "## ", Color: stringPtr(p.section)},
		},
		H3: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "### ", Color: stringPtr(p.section)},
		},
		Strong:         ansi.StylePrimitive{Bold: boolPtr(true)},
		Emph:           ansi.StylePrimitive{Italic: boolPtr(true)},
		HorizontalRule: ansi.StylePrimitive{Color: stringPtr(p.muted), Format: "\n--------\n"},
		Item:           ansi.StylePrimitive{BlockPrefix: p.listItem},
		Enumeration:    ansi.StylePrimitive{BlockPrefix: ". "},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(p.code), BackgroundColor: codeBg},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: stringPtr(p.text)},
				Margin:         uintPtr(2),
			},
		},
		// Reports are mostly tables of addresses and counts.
		Table: ansi.StyleTable{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: stringPtr(p.text)},
			},
			CenterSeparator: stringPtr("┼"),
			ColumnSeparator: stringPtr("│"),
			RowSeparator:    stringPtr("─"),
		},
		Link:     ansi.StylePrimitive{Color: stringPtr(p.link), Underline: boolPtr(true)},
		LinkText: ansi.StylePrimitive{Color: stringPtr(p.link), Bold: boolPtr(true)},
		Text:     ansi.StylePrimitive{},
	}
}
