// Package search finds reports by free text. Meilisearch serves queries when
// it is reachable; a document-store scan answers them otherwise, so search
// never depends on the index being up.
package search

import (
	"context"

	"github.com/rs/zerolog"

	"qolintake/api/internal/model"
	"qolintake/api/internal/users"
)

type Service struct {
	meili *Meili // optional
	scan  *Scan
	users *users.Store
	log   zerolog.Logger
}

func NewService(scan *Scan, userStore *users.Store, logger zerolog.Logger) *Service {
	return &Service{scan: scan, users: userStore, log: logger}
}

func (s *Service) WithMeili(m *Meili) *Service { s.meili = m; return s }

// Search prefers the Meilisearch index and falls back to scanning when the
// index is down or errors mid-query.
func (s *Service) Search(q Query) (Response, error) {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: results, Total: total, Query: q.Text}, nil
		}
		s.log.Warn().Err(err).Msg("index search failed, falling back to scan")
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: results, Total: total, Query: q.Text}, nil
}

// IndexReport pushes a report into the index in the background. Submissions
// never wait on, or fail because of, the search index.
func (s *Service) IndexReport(report model.Report) {
	if s.meili == nil {
		return
	}
	record := RecordFromReport(report, s.lookupName(report.PatientID))
	go func() {
		if err := s.meili.IndexReport(record); err != nil {
			s.log.Warn().Str("patient_id", record.ID).Err(err).Msg("report indexing failed")
		}
	}()
}

func (s *Service) lookupName(patientID string) string {
	if s.users == nil || patientID == "" {
		return ""
	}
	user, err := s.users.GetByPatientID(context.Background(), patientID)
	if err != nil {
		return ""
	}
	return user.Name
}
