package reporting

import (
	"fmt"
	"strings"
	"time"

	"options-spread-lab/internal/lookup"
)

// RenderMarkdown renders a Report as Markdown string.
func RenderMarkdown(report *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Put Credit Spread Report: %s\n\n", report.Ticker))
	sb.WriteString(fmt.Sprintf("- Expiration: %s\n", report.Expiration.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("- Current price: %.2f\n", report.CurrentPrice))
	sb.WriteString(fmt.Sprintf("- Window height: %.2f\n", report.Height))
	if t := report.Trend; t != nil {
		if t.LastClose != nil {
			sb.WriteString(fmt.Sprintf("- Last close: %.2f\n", *t.LastClose))
		}
		if t.ShortSMA != nil {
			sb.WriteString(fmt.Sprintf("- %d-day SMA: %.2f\n", lookup.DefaultShortWindow, *t.ShortSMA))
		}
		if t.LongSMA != nil {
			sb.WriteString(fmt.Sprintf("- %d-day SMA: %.2f\n", lookup.DefaultLongWindow, *t.LongSMA))
		}
	}
	sb.WriteString(fmt.Sprintf("- Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString(fmt.Sprintf("## Short Leg: strike %.2f, ask %.2f\n\n", report.ShortStrike, report.ShortAsk))

	sb.WriteString("## Candidates\n\n")
	sb.WriteString("| Long Strike | Long Ask | Collateral | Profit | Max Loss | ROI % | Best |\n")
	sb.WriteString("|-------------|----------|------------|--------|----------|-------|------|\n")
	for _, c := range report.Candidates {
		roiStr := "-"
		if c.ROI != nil {
			roiStr = fmt.Sprintf("%.2f", *c.ROI)
		}
		bestStr := ""
		if c.Best {
			bestStr = "BEST"
		}
		sb.WriteString(fmt.Sprintf("| %.2f | %.2f | %.2f | %.2f | %.2f | %s | %s |\n",
			c.LongStrike, c.LongAsk, c.Collateral, c.Profit, c.MaxLoss, roiStr, bestStr))
	}
	sb.WriteString("\n")

	// Summary
	best := 0
	for _, c := range report.Candidates {
		if c.Best {
			best++
		}
	}
	sb.WriteString(fmt.Sprintf("Candidates: %d evaluated, %d flagged best\n", len(report.Candidates), best))

	return sb.String()
}
