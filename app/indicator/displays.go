package indicator

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/lysyi3m/rec-comb/app/page"
)

// OverlayDisplay draws the indicator into the served page.
type OverlayDisplay struct {
	doc *page.Document
}

func NewOverlayDisplay(doc *page.Document) *OverlayDisplay {
	return &OverlayDisplay{doc: doc}
}

func (d *OverlayDisplay) Render(state State, text string) {
	d.doc.SetOverlay(page.Overlay{
		Text:    text,
		Visible: state != Hidden,
		Fading:  state == Fading,
	})
}

// LogDisplay writes one log line whenever the indicator appears.
type LogDisplay struct{}

func (LogDisplay) Render(state State, text string) {
	if state == Shown {
		slog.Info(text)
	}
}

var (
	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#1A73E8")).
			Padding(0, 1)

	fadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)
)

// TerminalDisplay prints a styled line for every visible state change.
type TerminalDisplay struct {
	w io.Writer
}

func NewTerminalDisplay(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{w: w}
}

func (d *TerminalDisplay) Render(state State, text string) {
	switch state {
	case Shown:
		fmt.Fprintln(d.w, activeStyle.Render(text))
	case Fading:
		fmt.Fprintln(d.w, fadingStyle.Render(text))
	}
}
