package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/mediax/internal/stores"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	tab   lipgloss.Style
	focus lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		tab:   NewStyle(h).Padding(0, 1),
		focus: NewBold(t).Padding(0, 1).Underline(true),
	}
}

// toast renders a toast in the style for its level.
func (p *Palette) toast(t stores.Toast) string {
	switch t.Level {
	case stores.LevelError:
		return p.err.Render("✗ " + t.Message)
	case stores.LevelSuccess:
		return p.ok.Render("✓ " + t.Message)
	default:
		return p.warn.Render("• " + t.Message)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
