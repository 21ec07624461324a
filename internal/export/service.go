package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"qolintake/api/internal/model"
	"qolintake/api/internal/reportview"
	"qolintake/api/internal/users"
)

type Service struct {
	reports *reportview.Service
	users   *users.Store
	now     func() time.Time
}

func NewService(reports *reportview.Service, userStore *users.Store) *Service {
	return &Service{reports: reports, users: userStore, now: time.Now}
}

// ExportPDF renders the patient's stored report and prints it to PDF.
func (s *Service) ExportPDF(ctx context.Context, patientID string) (*Result, error) {
	report, err := s.reports.GetTypedReport(ctx, patientID)
	if err != nil {
		return nil, err
	}

	name := ""
	if user, err := s.users.GetByPatientID(ctx, patientID); err == nil {
		name = user.Name
	}

	html, err := RenderReportHTML(buildTemplateData(report, name, s.now()))
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	title := "QoL Report " + patientID
	return printPDF(html, title)
}

func buildTemplateData(report model.Report, name string, now time.Time) TemplateData {
	data := TemplateData{
		PatientID:   report.PatientID,
		PatientName: name,
		GeneratedAt: now,
		Summary:     report.Body.Summary,
		Sentiment:   report.Body.Sentiment.OverallSentiment,
		Wordcloud:   report.Body.Wordcloud,
	}

	for _, theme := range report.Body.DetectedThemes.Themes {
		row := ThemeRow{Theme: theme}
		if score, ok := report.Body.DetectedThemes.ConfidenceScores[theme]; ok {
			row.Confidence = formatScore(score)
		}
		data.Themes = append(data.Themes, row)
	}

	emotions := make([]EmotionRow, 0, len(report.Body.Sentiment.TopEmotions))
	for emotion, score := range report.Body.Sentiment.TopEmotions {
		emotions = append(emotions, EmotionRow{Emotion: emotion, Score: formatScore(score)})
	}
	sort.Slice(emotions, func(i, j int) bool { return emotions[i].Emotion < emotions[j].Emotion })
	if len(emotions) > 0 {
		data.Emotions = emotions
	}

	return data
}
