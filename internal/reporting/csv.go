package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the candidate table as CSV string. ROI is empty, not
// zero, on rows where it is undefined.
func RenderCSV(report *Report) string {
	var sb strings.Builder

	sb.WriteString("ticker,expiration,short_strike,short_ask,long_strike,long_ask,collateral,profit,max_loss,roi,is_best\n")

	for _, c := range report.Candidates {
		roiStr := ""
		if c.ROI != nil {
			roiStr = fmt.Sprintf("%.6f", *c.ROI)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%s,%t\n",
			report.Ticker,
			report.Expiration.Format("2006-01-02"),
			report.ShortStrike,
			report.ShortAsk,
			c.LongStrike,
			c.LongAsk,
			c.Collateral,
			c.Profit,
			c.MaxLoss,
			roiStr,
			c.Best,
		))
	}

	return sb.String()
}
