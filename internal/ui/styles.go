package ui

import "fmt"

// ANSI256 color codes.
const (
	colorOK     = 71  // green
	colorFail   = 167 // red
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
)

// Color output is off until the CLI turns it on after TTY detection.
var useColor bool

func render(code int, s string) string {
	if !useColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderOK returns s in the success (green) color.
func RenderOK(s string) string { return render(colorOK, s) }

// RenderFail returns s in the failure (red) color.
func RenderFail(s string) string { return render(colorFail, s) }

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	useColor = enabled
}
