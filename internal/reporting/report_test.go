package reporting

import (
	"strings"
	"testing"
	"time"

	"options-spread-lab/internal/domain"
	"options-spread-lab/internal/lookup"
	"options-spread-lab/internal/spread"
)

func sampleReport() *Report {
	roi := 15.0
	result := &spread.Result{
		ShortStrike: 195,
		ShortAsk:    3.0,
		Candidates: []domain.SpreadCandidate{
			{LongStrike: 185, LongAsk: 1.5, Collateral: 1000, Profit: 150, MaxLoss: 850, ROI: &roi, Best: true},
			{LongStrike: 195, LongAsk: 3.0, Collateral: 0, Profit: 0, MaxLoss: 0, ROI: nil},
		},
	}
	return NewReport("SPY", time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), 200, 20, result)
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleReport())

	for _, want := range []string{
		"# Put Credit Spread Report: SPY",
		"Expiration: 2026-10-16",
		"Short Leg: strike 195.00, ask 3.00",
		"| 185.00 | 1.50 | 1000.00 | 150.00 | 850.00 | 15.00 | BEST |",
		"2 evaluated, 1 flagged best",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	// Undefined ROI renders as a dash, never as zero.
	if !strings.Contains(md, "| - |") {
		t.Errorf("undefined roi must render as '-':\n%s", md)
	}
}

func TestRenderMarkdown_TrendContext(t *testing.T) {
	// Without trend context the metadata lines are omitted entirely.
	if md := RenderMarkdown(sampleReport()); strings.Contains(md, "SMA") {
		t.Errorf("trendless report must not mention SMAs:\n%s", md)
	}

	last, short := 201.5, 198.72
	report := sampleReport()
	report.Trend = &lookup.TrendContext{LastClose: &last, ShortSMA: &short}
	md := RenderMarkdown(report)

	for _, want := range []string{
		"- Last close: 201.50",
		"- 50-day SMA: 198.72",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	// The long window never filled, so its line is omitted.
	if strings.Contains(md, "200-day SMA") {
		t.Errorf("nil long SMA must be omitted:\n%s", md)
	}
}

func TestRenderCSV(t *testing.T) {
	csv := RenderCSV(sampleReport())

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ticker,expiration,short_strike") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "15.000000,true") {
		t.Errorf("best row malformed: %s", lines[1])
	}

	// Undefined ROI is an empty field.
	if !strings.Contains(lines[2], ",,false") {
		t.Errorf("undefined roi must be empty: %s", lines[2])
	}
}
