package export

import (
	"strings"
	"testing"
	"time"

	"qolintake/api/internal/model"
)

func TestRenderReportHTML(t *testing.T) {
	data := buildTemplateData(model.Report{
		PatientID: "0001",
		Body: model.ReportBody{
			Summary: "Mobility is improving.",
			Sentiment: model.SentimentAnalysis{
				OverallSentiment: model.Sentiment{Label: "POSITIVE", Score: 0.91},
				TopEmotions:      map[string]float64{"optimism": 0.8},
			},
			DetectedThemes: model.DetectedThemes{
				Themes:           []string{"recovery"},
				ConfidenceScores: map[string]float64{"recovery": 0.75},
			},
			Wordcloud: []model.WordcloudEntry{{Word: "walk", Count: 4}},
		},
	}, "Mary Simpson", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	html, err := RenderReportHTML(data)
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}

	for _, want := range []string{
		"Mary Simpson",
		"Patient 0001",
		"Mobility is improving.",
		"POSITIVE",
		"recovery",
		"75%",
		"optimism",
		"80%",
		"walk (4)",
		"Mar 10, 2025",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestRenderReportHTMLOmitsEmptySections(t *testing.T) {
	html, err := RenderReportHTML(buildTemplateData(model.Report{PatientID: "0002"}, "", time.Now()))
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}
	for _, absent := range []string{"Summary", "Detected Themes", "Top Emotions", "Frequent Words"} {
		if strings.Contains(html, "<h2>"+absent+"</h2>") {
			t.Errorf("empty report should not render section %q", absent)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"QoL Report 0001", "QoL-Report-0001"},
		{"Report v1.2", "Report-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "report"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := percentEncodeForDataURL(tt.input); got != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
