package tui

import (
	"fmt"
	"io"
)

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer, version string) {
	out := newOutput(w)
	lines := []struct {
		text, color string
	}{
		{"     _                       _                     _       _     ", "#34d399"},
		{"  __| | ___  _ __ ___   __ _(_)_ ____      ____ _| |_ ___| |__  ", "#2dd4bf"},
		{" / _` |/ _ \\| '_ ` _ \\ / _` | | '_ \\ \\ /\\ / / _` | __/ __| '_ \\ ", "#22d3ee"},
		{"| (_| | (_) | | | | | | (_| | | | | \\ V  V / (_| | || (__| | | |", "#38bdf8"},
		{" \\__,_|\\___/|_| |_| |_|\\__,_|_|_| |_|\\_/\\_/ \\__,_|\\__\\___|_| |_|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  domain expiration alerts  "+version).Faint())
	fmt.Fprintln(w)
}
