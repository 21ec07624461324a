package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
	"qolintake/api/internal/users"
)

// Scan searches reports by walking the document store. It is the fallback
// when no Meilisearch instance is configured or reachable.
type Scan struct {
	docs  docstore.Store
	users *users.Store
}

func NewScan(docs docstore.Store, userStore *users.Store) *Scan {
	return &Scan{docs: docs, users: userStore}
}

// Healthy always holds for the scan searcher; it has no external dependency.
func (s *Scan) Healthy() bool { return true }

// Search matches the query case-insensitively against the patient name, the
// summary, the sentiment label and the detected themes.
func (s *Scan) Search(q Query) ([]Result, int, error) {
	ctx := context.Background()
	docs, err := s.docs.List(ctx, docstore.CollectionReports)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	var results []Result
	total := 0
	for _, doc := range docs {
		var report model.Report
		if err := json.Unmarshal(doc, &report); err != nil {
			continue
		}
		record := RecordFromReport(report, s.patientName(ctx, report.PatientID))
		if needle != "" && !record.matches(needle) {
			continue
		}
		total++
		if len(results) < limit {
			results = append(results, Result{
				PatientID: record.ID,
				Summary:   record.Summary,
				Sentiment: record.Sentiment,
				Themes:    record.Themes,
			})
		}
	}
	return results, total, nil
}

func (s *Scan) patientName(ctx context.Context, patientID string) string {
	if s.users == nil || patientID == "" {
		return ""
	}
	user, err := s.users.GetByPatientID(ctx, patientID)
	if err != nil {
		return ""
	}
	return user.Name
}

func (r ReportRecord) matches(needle string) bool {
	if strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Summary), needle) ||
		strings.Contains(strings.ToLower(r.Sentiment), needle) {
		return true
	}
	for _, theme := range r.Themes {
		if strings.Contains(strings.ToLower(theme), needle) {
			return true
		}
	}
	return false
}

// RecordFromReport flattens a report into the indexable record shape.
func RecordFromReport(report model.Report, name string) ReportRecord {
	return ReportRecord{
		ID:        report.PatientID,
		Name:      name,
		Summary:   report.Body.Summary,
		Sentiment: report.Body.Sentiment.OverallSentiment.Label,
		Themes:    report.Body.DetectedThemes.Themes,
	}
}
