package page

import (
	"fmt"
	"html"
)

// Overlay is the informational readout drawn on top of the page. It never
// takes pointer events.
type Overlay struct {
	Text    string
	Visible bool
	Fading  bool
}

func (o Overlay) markup() string {
	opacity := "1"
	if o.Fading {
		opacity = "0"
	}

	return fmt.Sprintf(`<div id="rec-comb-indicator" role="status" style="position: fixed; top: 10px; right: 10px; padding: 6px 12px; `+
		`background-color: rgba(26, 115, 232, 0.9); color: white; z-index: 10000; border-radius: 4px; font-size: 14px; `+
		`font-weight: bold; pointer-events: none; opacity: %s; transition: opacity 0.3s ease;">%s</div>`,
		opacity, html.EscapeString(o.Text))
}
