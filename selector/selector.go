// Package selector holds the paged huh pickers used when a command is run
// without explicit targets.
package selector

import (
	"errors"

	"github.com/charmbracelet/lipgloss"
)

const PageSize = 25

var (
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	pageStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	staleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	ErrCanceled = errors.New("canceled")
)

// Option values that are not entries.
const (
	optFilter   = "\x00filter"
	optPrev     = "\x00prev"
	optNext     = "\x00next"
	optPageInfo = "\x00page"
	optAll      = "\x00all"
	optDone     = "\x00done"
	optCancel   = "\x00cancel"
)

// pages returns the page count for n items and clamps page into range.
func pages(n, page int) (int, int) {
	total := (n + PageSize - 1) / PageSize
	if total == 0 {
		total = 1
	}
	page = min(max(page, 0), total-1)
	return total, page
}
