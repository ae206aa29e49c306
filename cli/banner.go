package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	ellipsis       = "…"
)

// Alignment of banner lines.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight

	bannerPadding = 2
)

// DefaultTerminalWidth is used when stdout is not a terminal.
const DefaultTerminalWidth = 80

// TerminalWidth returns the width of stdout, or DefaultTerminalWidth.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint:gosec // file descriptors fit in int
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}

	return w
}

// Banner boxes s (which may span several lines) to the given width.
// It returns "" when the width cannot hold the box.
func Banner(s string, width int, alignment Alignment) string {
	if width <= bannerPadding {
		return ""
	}

	inner := width - bannerPadding
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, l := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		parts = append(parts, boxSide+pad(l, inner, alignment)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n")
}

// VerdictBanner renders the outcome of one sample run. Verdict colors are
// dropped when color output is disabled (NO_COLOR or a non-terminal stdout).
func VerdictBanner(id, state string, verdict bool, width int) string {
	out := Banner(fmt.Sprintf("sample %s\n%s", id, state), width, AlignCenter)
	if !verdict || out == "" {
		return out
	}

	// Padding is computed on the plain text; color the state line afterwards.
	lines := strings.Split(out, "\n")
	lines[2] = strings.Replace(lines[2], state, verdictColor(state).Sprint(state), 1)

	return strings.Join(lines, "\n")
}

func verdictColor(state string) *color.Color {
	switch state {
	case "Positive":
		return color.New(color.FgHiRed, color.Bold)
	case "Negative":
		return color.New(color.FgHiGreen, color.Bold)
	default:
		return color.New(color.FgHiYellow, color.Bold)
	}
}

func pad(text string, width int, alignment Alignment) string {
	length := runewidth.StringWidth(text)
	if length > width {
		text = runewidth.Truncate(text, width, ellipsis)
		length = runewidth.StringWidth(text)
	}

	diff := width - length

	switch alignment {
	case AlignCenter:
		left := diff / 2 //nolint:mnd

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}
