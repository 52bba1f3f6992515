package outwriter

import (
	"os"

	"github.com/huangsam/codetime/internal/contract"
	"golang.org/x/term"
)

// terminalWidth returns the width override, the detected terminal width, or 80.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detected
}

// maxTextWidth is the width left for a free-text column after reserving
// fixedWidth for the other columns and the table borders.
func maxTextWidth(cfg *contract.Config, fixedWidth int) int {
	available := terminalWidth(cfg) - fixedWidth - 10
	if available < 20 {
		return 20
	}
	if available > 100 {
		return 100
	}
	return available
}
