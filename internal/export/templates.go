package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"qolintake/api/internal/model"
)

// TemplateData holds everything the report template renders.
type TemplateData struct {
	PatientID   string
	PatientName string
	GeneratedAt time.Time
	Summary     string
	Sentiment   model.Sentiment
	Themes      []ThemeRow
	Emotions    []EmotionRow
	Wordcloud   []model.WordcloudEntry
}

type ThemeRow struct {
	Theme      string
	Confidence string
}

type EmotionRow struct {
	Emotion string
	Score   string
}

var reportTemplate = template.Must(template.New("report").Parse(reportTemplateHTML))

// RenderReportHTML renders the printable report page.
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Quality of Life Report</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
    th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
    th { background: #f5f5f5; }
    .summary { background: #f5f5f5; padding: 1rem; border-left: 3px solid #333; }
    .words span { display: inline-block; margin-right: 0.6rem; }
  </style>
</head>
<body>
  <h1>Quality of Life Report</h1>
  <div class="meta">
    {{if .PatientName}}{{.PatientName}} | {{end}}Patient {{.PatientID}} | {{.GeneratedAt.Format "Jan 2, 2006"}}
  </div>
  {{if .Summary}}
  <h2>Summary</h2>
  <div class="summary">{{.Summary}}</div>
  {{end}}
  {{if .Sentiment.Label}}
  <h2>Overall Sentiment</h2>
  <p>{{.Sentiment.Label}}</p>
  {{end}}
  {{if .Themes}}
  <h2>Detected Themes</h2>
  <table>
    <tr><th>Theme</th><th>Confidence</th></tr>
    {{range .Themes}}<tr><td>{{.Theme}}</td><td>{{.Confidence}}</td></tr>{{end}}
  </table>
  {{end}}
  {{if .Emotions}}
  <h2>Top Emotions</h2>
  <table>
    <tr><th>Emotion</th><th>Score</th></tr>
    {{range .Emotions}}<tr><td>{{.Emotion}}</td><td>{{.Score}}</td></tr>{{end}}
  </table>
  {{end}}
  {{if .Wordcloud}}
  <h2>Frequent Words</h2>
  <div class="words">
    {{range .Wordcloud}}<span>{{.Word}} ({{.Count}})</span>{{end}}
  </div>
  {{end}}
</body>
</html>`
