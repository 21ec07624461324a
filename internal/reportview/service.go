// Package reportview is the read side of the report collection: exact
// per-patient passthrough for patients, cross-patient rollups for clinicians.
package reportview

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
)

type Service struct {
	docs docstore.Store
	log  zerolog.Logger
}

func New(docs docstore.Store, logger zerolog.Logger) *Service {
	return &Service{docs: docs, log: logger}
}

// GetReport returns the one report stored under the patient identifier,
// exactly as the analysis service produced it. docstore.ErrNotFound passes
// through when no report exists.
func (s *Service) GetReport(ctx context.Context, patientID string) (json.RawMessage, error) {
	return s.docs.Get(ctx, docstore.CollectionReports, patientID)
}

// GetTypedReport parses the stored report for callers that need its fields
// (dashboards, export, search indexing).
func (s *Service) GetTypedReport(ctx context.Context, patientID string) (model.Report, error) {
	raw, err := s.GetReport(ctx, patientID)
	if err != nil {
		return model.Report{}, err
	}
	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return model.Report{}, fmt.Errorf("parse report %s: %w", patientID, err)
	}
	if report.PatientID == "" {
		report.PatientID = patientID
	}
	return report, nil
}

// Aggregate rolls every stored report into the clinician dashboard shape.
// Theme and emotion means are taken over the reports that contain the key;
// a patient without a theme does not drag its average down. An empty store
// yields zero values, never an error.
func (s *Service) Aggregate(ctx context.Context) (model.Aggregate, error) {
	docs, err := s.docs.List(ctx, docstore.CollectionReports)
	if err != nil {
		return model.Aggregate{}, fmt.Errorf("list reports: %w", err)
	}

	agg := model.Aggregate{
		AverageThemeConfidence: map[string]float64{},
		AverageEmotions:        map[string]float64{},
		AggregatedWordcloud:    []model.WordcloudEntry{},
	}

	themeSums := map[string]float64{}
	themeCounts := map[string]int{}
	emotionSums := map[string]float64{}
	emotionCounts := map[string]int{}
	wordCounts := map[string]int{}

	for _, doc := range docs {
		var report model.Report
		if err := json.Unmarshal(doc, &report); err != nil {
			s.log.Warn().Err(err).Msg("skipping unparsable report in aggregate")
			continue
		}
		agg.TotalPatients++

		for theme, score := range report.Body.DetectedThemes.ConfidenceScores {
			themeSums[theme] += score
			themeCounts[theme]++
		}
		for emotion, score := range report.Body.Sentiment.TopEmotions {
			emotionSums[emotion] += score
			emotionCounts[emotion]++
		}
		for _, entry := range report.Body.Wordcloud {
			wordCounts[entry.Word] += entry.Count
		}
	}

	for theme, sum := range themeSums {
		agg.AverageThemeConfidence[theme] = sum / float64(themeCounts[theme])
	}
	for emotion, sum := range emotionSums {
		agg.AverageEmotions[emotion] = sum / float64(emotionCounts[emotion])
	}

	for word, count := range wordCounts {
		agg.AggregatedWordcloud = append(agg.AggregatedWordcloud, model.WordcloudEntry{Word: word, Count: count})
	}
	// Descending by summed count; ties break on the word so output is
	// deterministic for a fixed input.
	sort.Slice(agg.AggregatedWordcloud, func(i, j int) bool {
		a, b := agg.AggregatedWordcloud[i], agg.AggregatedWordcloud[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Word < b.Word
	})

	return agg, nil
}
