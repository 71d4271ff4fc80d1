package styles

import (
	"strings"
	"testing"
)

func TestMarkdownRendererThemes(t *testing.T) {
	doc := "# Trace\n\n## Loops\n\n| PC | Count |\n|---|---|\n| 0150 | 12 |\n\n```\n[0150] JR NZ, $FD\n```\n"

	for _, theme := range []string{"charm", "dmg", ""} {
		t.Run(theme, func(t *testing.T) {
			r, err := MarkdownRenderer(theme, 80)
			if err != nil {
				t.Fatalf("MarkdownRenderer(%q) failed: %v", theme, err)
			}
			out, err := r.Render(doc)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if !strings.Contains(out, "Loops") || !strings.Contains(out, "0150") {
				t.Errorf("rendered output lost content:\n%s", out)
			}
		})
	}
}

func TestUnknownTheme(t *testing.T) {
	if _, err := MarkdownRenderer("sepia", 80); err == nil {
		t.Fatal("expected error for unknown theme")
	}
}

func TestDMGStyleUsesLCDShades(t *testing.T) {
	s := DMGStyle()
	if got := *s.H1.BackgroundColor; got != DMGDarkest {
		t.Errorf("H1 background = %s, want %s", got, DMGDarkest)
	}
	if got := *s.Code.BackgroundColor; got != DMGDark {
		t.Errorf("inline code background = %s, want %s", got, DMGDark)
	}
	if CharmStyle().Code.BackgroundColor != nil {
		t.Error("charm theme should not set an inline code background")
	}
}
