// Package pipeline runs a form submission end to end: validate, persist the
// form, call the analysis service, persist the report, flag the user.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
	"qolintake/api/internal/users"
)

var (
	ErrMissingPatientID = errors.New("patient identifier is required")
	ErrInvalidForm      = errors.New("form must be a JSON object")
)

// Analyzer produces a report document for a form document.
type Analyzer interface {
	GenerateReport(ctx context.Context, form json.RawMessage) (json.RawMessage, error)
}

// Auditor records each accepted submission in the history log.
type Auditor interface {
	RecordSubmission(patientID string, form json.RawMessage) error
}

// Indexer pushes a finished report into the search index.
type Indexer interface {
	IndexReport(report model.Report)
}

// Notifier sends the report-ready notice.
type Notifier interface {
	IsConfigured() bool
	SendReportReady(to, name string) error
}

type Service struct {
	docs     docstore.Store
	users    *users.Store
	analyzer Analyzer
	audit    Auditor  // optional
	search   Indexer  // optional
	notify   Notifier // optional
	log      zerolog.Logger
}

func New(docs docstore.Store, userStore *users.Store, analyzer Analyzer, logger zerolog.Logger) *Service {
	return &Service{
		docs:     docs,
		users:    userStore,
		analyzer: analyzer,
		log:      logger,
	}
}

func (s *Service) WithAuditor(a Auditor) *Service   { s.audit = a; return s }
func (s *Service) WithIndexer(i Indexer) *Service   { s.search = i; return s }
func (s *Service) WithNotifier(n Notifier) *Service { s.notify = n; return s }

// SubmitForm persists the form, generates the report, persists it, and flips
// the user's report-ready flag. The flag update, the audit commit, the search
// index and the notification email are all best-effort: their failures are
// logged and never fail the submission. The analysis call's failure is
// propagated unchanged; the already-saved form is kept either way. The steps
// are sequential and the whole operation blocks the caller, retries included.
func (s *Service) SubmitForm(ctx context.Context, patientID string, form json.RawMessage) (json.RawMessage, error) {
	if patientID == "" {
		return nil, ErrMissingPatientID
	}

	form, err := stampPatientID(form, patientID)
	if err != nil {
		return nil, err
	}

	if err := s.docs.Put(ctx, docstore.CollectionForms, patientID, form); err != nil {
		return nil, fmt.Errorf("save form: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.RecordSubmission(patientID, form); err != nil {
			s.log.Warn().Str("patient_id", patientID).Err(err).Msg("audit commit failed")
		}
	}

	report, err := s.analyzer.GenerateReport(ctx, form)
	if err != nil {
		return nil, err
	}

	if err := s.docs.Put(ctx, docstore.CollectionReports, patientID, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	s.flagReportReady(ctx, patientID)
	s.indexReport(patientID, report)

	return report, nil
}

// flagReportReady is fire-and-forget: the report already exists, the user
// record just hasn't heard yet.
func (s *Service) flagReportReady(ctx context.Context, patientID string) {
	user, err := s.users.SetReportReady(ctx, patientID, true)
	if err != nil {
		s.log.Warn().Str("patient_id", patientID).Err(err).Msg("report-ready flag update failed")
		return
	}
	if s.notify != nil && s.notify.IsConfigured() && user.Email != "" {
		go func(email, name string) {
			if err := s.notify.SendReportReady(email, name); err != nil {
				s.log.Warn().Str("patient_id", patientID).Err(err).Msg("report-ready email failed")
			}
		}(user.Email, user.Name)
	}
}

func (s *Service) indexReport(patientID string, raw json.RawMessage) {
	if s.search == nil {
		return
	}
	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		s.log.Warn().Str("patient_id", patientID).Err(err).Msg("report not indexable")
		return
	}
	if report.PatientID == "" {
		report.PatientID = patientID
	}
	s.search.IndexReport(report)
}

// stampPatientID forces the form's Patient_ID to the authenticated patient's
// identifier. Identity comes from the verified token, never from the body.
func stampPatientID(form json.RawMessage, patientID string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if len(form) == 0 {
		fields = map[string]json.RawMessage{}
	} else if err := json.Unmarshal(form, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	id, err := json.Marshal(patientID)
	if err != nil {
		return nil, err
	}
	fields["Patient_ID"] = id
	return json.Marshal(fields)
}
