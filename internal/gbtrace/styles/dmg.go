package styles

import "github.com/charmbracelet/glamour/ansi"

// Original DMG LCD shades, darkest first.
const (
	DMGDarkest  = "#0F380F"
	DMGDark     = "#306230"
	DMGLight    = "#8BAC0F"
	DMGLightest = "#9BBC0F"
)

// DMGStyle renders reports in the four greens of the original Game Boy
// screen.
func DMGStyle() ansi.StyleConfig {
	s := buildStyle(palette{
		text:     DMGLightest,
		muted:    DMGDark,
		heading:  DMGLightest,
		title:    DMGLightest,
		titleBg:  DMGDarkest,
		section:  DMGLight,
		code:     DMGLightest,
		codeBg:   DMGDark,
		listItem: "▪ ",
		link:     DMGLight,
	})
	s.BlockQuote.IndentToken = stringPtr("▌ ")
	s.CodeBlock.Margin = uintPtr(1)
	return s
}
