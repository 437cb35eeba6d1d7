package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/domainwatch/internal/presentation/tui"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/lookup"
	"github.com/aretw0/domainwatch/pkg/schedule"
)

// RunCheck resolves name, classifies it as the startup run would and prints
// the report. Nothing is sent.
func RunCheck(ctx context.Context, resolver schedule.Resolver, name string, warnDays int, w io.Writer) (domain.CheckReport, error) {
	now := time.Now()
	report := domain.CheckReport{Domain: lookup.NormalizeDomain(name), Run: domain.RunStartup, At: now}

	daily := false
	res, err := resolver.Resolve(ctx, name)
	if err != nil {
		report.Err = err.Error()
	} else {
		report.Result = res
		alert, _ := schedule.Classify(res.ExpiresAt, now, domain.RunStartup, warnDays)
		_, daily = schedule.Classify(res.ExpiresAt, now, domain.RunDaily, warnDays)
		alert.Text = schedule.Compose(res.Domain, alert, res.ExpiresAt)
		report.Alert = &alert
	}

	render, rerr := tui.NewRenderer(w)
	if rerr != nil {
		return report, rerr
	}
	out, rerr := render(tui.ReportMarkdown(report, daily))
	if rerr != nil {
		return report, fmt.Errorf("failed to render report: %w", rerr)
	}
	fmt.Fprint(w, out)
	return report, err
}
