package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/engine"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/pipeline"
)

const dateLayout = "2006-01-02"

// StyleUrgency colors an urgency level by severity.
func StyleUrgency(u model.Urgency) string {
	switch u {
	case model.UrgencyHigh:
		return ErrorStyle.Render(string(u))
	case model.UrgencyMedium:
		return WarningStyle.Render(string(u))
	default:
		return SuccessStyle.Render(string(u))
	}
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

// RenderRecommendation renders a recommendation as a boxed detail view
// followed by any warnings.
func RenderRecommendation(rec model.Recommendation) string {
	avoid := SubtleStyle.Render("none")
	if len(rec.Avoid) > 0 {
		avoid = strings.Join(rec.Avoid, ", ")
	}

	lines := []string{
		field("Best move", BoldStyle.Render(string(rec.StrategyType))),
		field("Focus", rec.Focus),
		field("Urgency", StyleUrgency(rec.Urgency)),
		field("Avoid", avoid),
		"",
		rec.Advice,
		SubtleStyle.Render(rec.Reason),
		"",
		field("Confidence", string(rec.Confidence)),
	}
	if rec.DecisionID != "" {
		lines = append(lines, field("Decision", SubtleStyle.Render(rec.DecisionID)))
	}
	if rec.CacheHit {
		lines = append(lines, SubtleStyle.Render("(served from cache)"))
	}

	var b strings.Builder
	b.WriteString(RenderBox(RadarIcon+" Recommendation", strings.Join(lines, "\n")))
	b.WriteString("\n")
	for _, w := range rec.Warnings {
		b.WriteString(FormatWarning(w))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderBlocked lists every violation that stopped a request.
func RenderBlocked(err *common.GuardrailBlockedError) string {
	var b strings.Builder
	b.WriteString(ErrorStyle.Render(BlockIcon + " Request blocked"))
	b.WriteString("\n")
	for _, v := range err.Violations {
		fmt.Fprintf(&b, "  %s %s\n", SubtleStyle.Render("["+v.Severity+"] "+v.Type), v.Message)
	}
	return b.String()
}

// RenderInsights renders a business profile and any reactive spiral warning.
func RenderInsights(businessID string, in pipeline.Insights) string {
	var b strings.Builder
	b.WriteString(FormatTitle("Insights for " + businessID))
	b.WriteString("\n")

	if in.Profile == nil {
		b.WriteString(FormatInfo("No decisions recorded in the profile window."))
		b.WriteString("\n")
		return b.String()
	}

	p := in.Profile
	lines := []string{
		field("Decisions", fmt.Sprintf("%d", p.TotalDecisions)),
		field("Urgency", StyleUrgency(p.DominantUrgency)),
		field("Last", p.LastDecisionAt.Format(dateLayout)),
		field("Competitors", strings.Join(p.TopCompetitors, ", ")),
	}
	for _, name := range slices.Sorted(maps.Keys(p.Patterns)) {
		lines = append(lines, field(name, p.Patterns[name]))
	}
	b.WriteString(RenderBox(ChartIcon+" Profile", strings.Join(lines, "\n")))
	b.WriteString("\n")

	rows := make([][]string, 0, len(p.StrategyCounts))
	for _, strategy := range slices.Sorted(maps.Keys(p.StrategyCounts)) {
		rows = append(rows, []string{string(strategy), fmt.Sprintf("%d", p.StrategyCounts[strategy])})
	}
	b.WriteString(RenderTable([]string{"Strategy", "Count"}, rows))

	if s := in.SpiralWarning; s != nil {
		b.WriteString("\n")
		b.WriteString(FormatWarning(fmt.Sprintf("Reactive spiral (%s severity): %.1f decisions/week, %.0f%% high urgency, mostly %s",
			s.Severity, s.DecisionsPerWeek, s.HighUrgencyRate*100, s.DominantCompetitor)))
		b.WriteString("\n")
		b.WriteString("  " + s.Recommendation + "\n")
	}
	return b.String()
}

// RenderHistory renders a competitor trend and its decision trail.
func RenderHistory(competitor string, h pipeline.History) string {
	var b strings.Builder
	b.WriteString(FormatTitle("History for " + competitor))
	b.WriteString("\n")

	t := h.Trend
	if t.Status == model.TrendNoHistory {
		b.WriteString(FormatInfo("No decisions recorded about " + competitor + "."))
		b.WriteString("\n")
		return b.String()
	}

	lines := []string{
		field("Analyses", fmt.Sprintf("%d", t.TotalAnalyses)),
		field("First seen", t.FirstSeen.Format(dateLayout)),
		field("Last seen", t.LastSeen.Format(dateLayout)),
		field("Usual move", string(t.MostCommonResponse)),
		field("Trend", t.UrgencyTrend),
	}
	b.WriteString(RenderBox(ChartIcon+" Trend", strings.Join(lines, "\n")))
	b.WriteString("\n")

	rows := make([][]string, 0, len(h.Decisions))
	for _, d := range h.Decisions {
		rows = append(rows, []string{
			d.CreatedAt.Format(dateLayout),
			string(d.StrategyType),
			d.Focus,
			StyleUrgency(d.Urgency),
		})
	}
	b.WriteString(RenderTable([]string{"Date", "Strategy", "Focus", "Urgency"}, rows))
	return b.String()
}

// RenderDiagnostics renders every rule outcome and the selected decision.
func RenderDiagnostics(d engine.Diagnostics) string {
	var b strings.Builder
	b.WriteString(FormatTitle("Rule trace for " + d.Competitor))
	b.WriteString("\n")

	if d.Signal != nil {
		b.WriteString(SubtleStyle.Render(d.Signal.Summary(d.Competitor)))
		b.WriteString("\n\n")
	}

	rows := make([][]string, 0, len(d.Rules))
	for _, r := range d.Rules {
		outcome := SubtleStyle.Render("no match")
		switch {
		case r.Error != "":
			outcome = ErrorStyle.Render("error: " + r.Error)
		case r.Matched && r.Rule == d.SelectedRule:
			outcome = SuccessStyle.Render(SuccessIcon + " selected")
		case r.Matched:
			outcome = InfoStyle.Render("matched")
		}
		rows = append(rows, []string{r.Rule, outcome})
	}
	b.WriteString(RenderTable([]string{"Rule", "Outcome"}, rows))
	b.WriteString("\n")

	b.WriteString(field("Selected", fmt.Sprintf("%s (%s, %s)",
		d.Selected.StrategyType, d.Selected.Focus, StyleUrgency(d.Selected.Urgency))))
	b.WriteString("\n")
	return b.String()
}

// RenderTable lays out rows under a header with columns sized to their widest cell.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = TableCellStyle.Width(widths[i] + TableCellStyle.GetPaddingRight()).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}

	var b strings.Builder
	b.WriteString(renderRow(headers, TableHeaderStyle))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(renderRow(row, lipgloss.NewStyle()))
		b.WriteString("\n")
	}
	return b.String()
}
