package kiosk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/dashboard"
	"github.com/godilite/booth-feedback/internal/recording"
	"github.com/godilite/booth-feedback/internal/screen"
)

const helpText = `Commands:
  form | dashboard | home          switch screen
  identity <email>                 sign in for the dashboard
  quit                             leave the kiosk
Form:
  booth <id>                       booth being reviewed
  attr <1|2|3|name>                who you are (%s)
  praise <0-100>                   praise share, advice gets the rest
  text <feedback>                  type your feedback
  record | stop                    dictate your feedback instead
  submit | show
Dashboard:
  refresh
`

func (k *Kiosk) printHelp() {
	k.printf(helpText, attributeChoices())
}

func (k *Kiosk) renderScreen(ctx context.Context) {
	switch k.Screen() {
	case screen.Home:
		k.printf("== Booth feedback ==\nType form to leave feedback, dashboard to see your team's results, help for commands.\n")
	case screen.Form:
		k.renderForm()
	case screen.Dashboard:
		k.renderDashboard(ctx)
	}
}

func (k *Kiosk) renderForm() {
	k.mu.Lock()
	d := k.draft
	state := k.recState
	k.mu.Unlock()

	var b strings.Builder
	b.WriteString("== Feedback form ==\n")
	fmt.Fprintf(&b, "  Booth:     %s\n", orDash(d.BoothID))
	fmt.Fprintf(&b, "  Visitor:   %s\n", d.VisitorAttribute.Label())
	fmt.Fprintf(&b, "  Praise:    %d%%  Advice: %d%%\n", d.PraiseRatio, d.AdviceRatio)
	fmt.Fprintf(&b, "  Feedback:  %s\n", orDash(d.RawText))
	if state != "" && state != recording.StateIdle {
		fmt.Fprintf(&b, "  Recording: %s\n", state)
	}
	k.printf("%s", b.String())
}

func (k *Kiosk) renderDashboard(ctx context.Context) {
	k.mu.Lock()
	identity := k.identity
	k.mu.Unlock()

	res, err := k.loader.Load(ctx, identity)
	if err != nil {
		if errors.Is(err, dashboard.ErrNoIdentity) {
			k.printf("Sign in first: identity <email>\n")
			return
		}
		k.logger.Warn("dashboard load failed", zap.Error(err))
		k.printf("Could not load the dashboard. Please try again later.\n")
		return
	}
	k.printf("%s", FormatDashboard(res))
}

// FormatDashboard renders a dashboard view model as text.
func FormatDashboard(res dashboard.AggregationResult) string {
	var b strings.Builder

	title := res.TeamName
	if title == "" {
		title = "Your team"
	}
	if res.BoothID != "" {
		fmt.Fprintf(&b, "== %s (booth %s) ==\n", title, res.BoothID)
	} else {
		fmt.Fprintf(&b, "== %s ==\n", title)
	}

	if res.IsEmpty() {
		msg := res.Message
		if msg == "" {
			msg = "No feedback yet."
		}
		b.WriteString(msg + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Average score: %s [%s]  Feedback: %d", formatScore(res.AverageScore), dashboard.Band(res.AverageScore), res.TotalCount)
	if res.TotalTeamsCount > 0 {
		fmt.Fprintf(&b, "  Teams: %d", res.TotalTeamsCount)
	}
	b.WriteString("\n")

	if len(res.TeamMembers) > 0 {
		names := make([]string, len(res.TeamMembers))
		for i, m := range res.TeamMembers {
			name := m.Name
			if name == "" {
				name = m.Email
			}
			if m.IsCurrentUser {
				name += " (you)"
			}
			names[i] = name
		}
		fmt.Fprintf(&b, "Members: %s\n", strings.Join(names, ", "))
	}

	for _, it := range res.Items {
		fmt.Fprintf(&b, "-- %s [%s] %s\n", it.AttributeLabel, it.Severity(), formatScore(it.Score))
		if it.RawText != "" {
			fmt.Fprintf(&b, "   %s\n", it.RawText)
		}
		if it.IsProcessed && it.SummaryText != "" {
			fmt.Fprintf(&b, "   summary: %s\n", it.SummaryText)
		}
	}
	return b.String()
}

func formatScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *s)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
