package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title()))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total | %s |\n", FormatAmount(r.Total)))
	sb.WriteString(fmt.Sprintf("| Sales | %d |\n", r.SaleCount))
	sb.WriteString(fmt.Sprintf("| Average sale | %s |\n", r.AverageSale().StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Previous window | %s |\n", FormatAmount(r.PreviousTotal)))
	sb.WriteString(fmt.Sprintf("| Change | %s |\n", formatChange(r)))
	sb.WriteString("\n")

	// Groups
	if len(r.Groups) > 0 {
		sb.WriteString("## Groups\n\n")
		sb.WriteString("| Group | Sales | Total |\n")
		sb.WriteString("|-------|-------|-------|\n")
		for _, g := range r.Groups {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n", g.GroupID, g.Count, FormatAmount(g.Total)))
		}
		sb.WriteString("\n")
	}

	// Top items
	if len(r.TopItems) > 0 {
		sb.WriteString("## Top Items\n\n")
		sb.WriteString("| Item | Sales | Total |\n")
		sb.WriteString("|------|-------|-------|\n")
		for _, it := range r.TopItems {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", escapeCell(it.Item), it.Count, FormatAmount(it.Total)))
		}
		sb.WriteString("\n")
	}

	// Forecast
	sb.WriteString("## Forecast\n\n")
	if r.Forecast == nil {
		sb.WriteString("Not enough data for a forecast yet.\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Based on %s: 7-day average %.2f, trend %s, volatility %.2f.\n\n",
		r.Forecast.BasedOn.Format(time.DateOnly), r.Forecast.MovingAverage7,
		FormatRatio(r.Forecast.Trend), r.Forecast.Volatility))
	sb.WriteString(fmt.Sprintf("Next day estimate: **%s** (confidence %s)\n",
		FormatAmount(r.Forecast.PredictedNext), r.Forecast.Confidence))

	return sb.String()
}

// escapeCell keeps pipes in item names from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
