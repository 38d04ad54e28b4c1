package util

import (
	"testing"

	"esgscope/internal/model"
)

func TestFormatScore(t *testing.T) {
	t.Parallel()

	if got := FormatScore(model.Scored(74.2)); got != "74.20" {
		t.Fatalf("FormatScore(74.2) = %s", got)
	}
	if got := FormatScore(model.Scored(0)); got != "0.00" {
		t.Fatalf("FormatScore(0) = %s", got)
	}
	if got := FormatScore(model.Score{}); got != Placeholder {
		t.Fatalf("unscored should render placeholder, got %s", got)
	}
}

func TestFormatShare(t *testing.T) {
	t.Parallel()

	if got := FormatShare(100.0 / 3); got != "33.3%" {
		t.Fatalf("FormatShare = %s", got)
	}
}

func TestExportFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		ext      string
		want     string
	}{
		{"acme.pdf", "png", "ESG-acme.pdf.png"},
		{"acme.pdf", "pdf", "ESG-acme.pdf.pdf"},
		{"Annual  Report\t2024.pdf", ".png", "ESG-Annual_Report_2024.pdf.png"},
		{"", "pdf", "ESG-report.pdf"},
		{"   ", "xlsx", "ESG-report.xlsx"},
		{"  acme  report.pdf ", "png", "ESG-_acme_report.pdf_.png"},
	}
	for _, tc := range cases {
		if got := ExportFilename(tc.filename, tc.ext); got != tc.want {
			t.Fatalf("ExportFilename(%q, %q) = %s, want %s", tc.filename, tc.ext, got, tc.want)
		}
	}
}
