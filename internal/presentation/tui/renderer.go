package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Output to a non-terminal uses the plain "notty" style.
func NewRenderer(w io.Writer) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if !IsTerminal(w) {
		opt = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// ReportMarkdown formats a check report for the terminal.
func ReportMarkdown(report domain.CheckReport, dailyAlert bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", report.Domain)

	if report.Err != "" {
		fmt.Fprintf(&b, "**Lookup failed:** %s\n", report.Err)
		return b.String()
	}

	b.WriteString("| Field | Value |\n|---|---|\n")
	if res := report.Result; res != nil {
		fmt.Fprintf(&b, "| Expires | %s |\n", res.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
		fmt.Fprintf(&b, "| Source | %s |\n", sourceLabel(res.Source))
	}
	if a := report.Alert; a != nil {
		fmt.Fprintf(&b, "| Days left | %d |\n", a.Days)
		fmt.Fprintf(&b, "| Tier | %s |\n", a.Tier)
		fmt.Fprintf(&b, "| Sent by daily run | %t |\n", dailyAlert)
		fmt.Fprintf(&b, "\n> %s\n", a.Text)
	}
	return b.String()
}

func sourceLabel(s domain.LookupSource) string {
	switch s {
	case domain.SourcePrimary:
		return "WHOIS"
	case domain.SourceFallback:
		return "RDAP"
	default:
		return string(s)
	}
}
