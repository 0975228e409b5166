package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the formdraft banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	title := termenv.String(" formdraft ").Bold().Foreground(p.Color("#f8fafc")).Background(p.Color("#6366f1"))
	sub := termenv.String(" " + version).Foreground(p.Color("#a78bfa"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s\n", title, sub)
	fmt.Fprintln(w)
}

// Error styles a field error line.
func Error(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Foreground(p.Color("#fb7185")).String()
}

// Success styles a confirmation line.
func Success(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Foreground(p.Color("#34d399")).String()
}

// Faint styles secondary text.
func Faint(s string) string {
	return termenv.String(s).Faint().String()
}
