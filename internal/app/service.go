// Package app wires the domain services behind one façade and enforces who
// may do what. Identity comes from the verified token; patients only reach
// their own documents, doctors reach everything.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"qolintake/api/internal/audit"
	"qolintake/api/internal/auth"
	"qolintake/api/internal/authpw"
	"qolintake/api/internal/blobstore"
	"qolintake/api/internal/docstore"
	"qolintake/api/internal/export"
	"qolintake/api/internal/model"
	"qolintake/api/internal/pipeline"
	"qolintake/api/internal/rbac"
	"qolintake/api/internal/reportview"
	"qolintake/api/internal/search"
	"qolintake/api/internal/users"
)

// Session is the verified identity behind one request.
type Session struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	PatientID string
	IsReport  bool
	ExpiresAt time.Time
}

// AuthPayload is what signup and login hand back to the client.
type AuthPayload struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type Service struct {
	jwtSecret []byte
	tokenTTL  time.Duration

	docs    docstore.Store
	users   *users.Store
	auth    *authpw.Service
	intake  *pipeline.Service
	reports *reportview.Service

	exporter *export.Service   // optional
	searcher *search.Service   // optional
	auditor  *audit.Service    // optional
	blobs    blobstore.Store   // optional

	log zerolog.Logger
}

func NewService(
	jwtSecret []byte,
	tokenTTL time.Duration,
	docs docstore.Store,
	userStore *users.Store,
	authSvc *authpw.Service,
	intake *pipeline.Service,
	reports *reportview.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		docs:      docs,
		users:     userStore,
		auth:      authSvc,
		intake:    intake,
		reports:   reports,
		log:       logger,
	}
}

func (s *Service) WithExporter(e *export.Service) *Service { s.exporter = e; return s }
func (s *Service) WithSearch(sr *search.Service) *Service  { s.searcher = sr; return s }
func (s *Service) WithAuditor(a *audit.Service) *Service   { s.auditor = a; return s }
func (s *Service) WithBlobs(b blobstore.Store) *Service    { s.blobs = b; return s }

func (s *Service) Ping(ctx context.Context) error {
	return s.docs.Ping(ctx)
}

// SessionFromToken verifies the bearer token and builds the request session.
func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.jwtSecret, token)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		PatientID: claims.PatientID,
		IsReport:  claims.IsReport,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// SignUp creates a patient account and signs them in.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (AuthPayload, error) {
	user, err := s.auth.SignUp(ctx, authpw.SignUpRequest{Email: email, Password: password, Name: name})
	if err != nil {
		return AuthPayload{}, err
	}
	return s.issue(user)
}

// Login authenticates by email and password and issues a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (AuthPayload, error) {
	user, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return AuthPayload{}, err
	}
	return s.issue(user)
}

func (s *Service) issue(user model.User) (AuthPayload, error) {
	token, err := auth.IssueToken(s.jwtSecret, user, s.tokenTTL)
	if err != nil {
		return AuthPayload{}, err
	}
	return AuthPayload{Token: token, User: user.Public()}, nil
}

// Authenticate re-reads the session's user record so the client sees the
// current report-ready flag, not the one frozen into the token.
func (s *Service) Authenticate(ctx context.Context, session Session) (model.User, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.User{}, auth.ErrInvalidToken
		}
		return model.User{}, err
	}
	return user.Public(), nil
}

// SubmitForm runs the intake pipeline for the session's own patient record.
func (s *Service) SubmitForm(ctx context.Context, session Session, form json.RawMessage) (json.RawMessage, error) {
	if !s.Can(session.Role, rbac.ActionSubmitForm) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if session.PatientID == "" {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Account has no patient record", nil)
	}
	return s.intake.SubmitForm(ctx, session.PatientID, form)
}

// ReportReady reports whether the session's analysis report is available.
func (s *Service) ReportReady(ctx context.Context, session Session) (bool, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, auth.ErrInvalidToken
		}
		return false, err
	}
	return user.IsReport, nil
}

// SetReportFlag updates the session user's report-ready flag directly. The
// dashboards use it to clear the notice after the report has been viewed.
func (s *Service) SetReportFlag(ctx context.Context, session Session, ready bool) (model.User, error) {
	if session.PatientID == "" {
		return model.User{}, domainError(http.StatusForbidden, "FORBIDDEN", "Account has no patient record", nil)
	}
	user, err := s.users.SetReportReady(ctx, session.PatientID, ready)
	if err != nil {
		return model.User{}, err
	}
	return user.Public(), nil
}

// GetReport returns one stored report. Patients may only read their own.
func (s *Service) GetReport(ctx context.Context, session Session, patientID string) (json.RawMessage, error) {
	if err := s.authorizePatientAccess(session, patientID); err != nil {
		return nil, err
	}
	return s.reports.GetReport(ctx, patientID)
}

// ExportReportPDF renders the stored report as a PDF download.
func (s *Service) ExportReportPDF(ctx context.Context, session Session, patientID string) (*export.Result, error) {
	if err := s.authorizePatientAccess(session, patientID); err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not configured", nil)
	}
	return s.exporter.ExportPDF(ctx, patientID)
}

// Dashboard is role-shaped: doctors get the cross-patient aggregate, or one
// patient's report when they name a patient id; patients get their own report.
// The role comes from the token, never from the request body.
func (s *Service) Dashboard(ctx context.Context, session Session, patientID string) (any, error) {
	if s.Can(session.Role, rbac.ActionViewDashboard) {
		if patientID != "" {
			report, err := s.reports.GetReport(ctx, patientID)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(report), nil
		}
		return s.reports.Aggregate(ctx)
	}

	if session.PatientID == "" {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	report, err := s.reports.GetReport(ctx, session.PatientID)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(report), nil
}

// ListPatients returns every patient account, stripped of password hashes.
func (s *Service) ListPatients(ctx context.Context, session Session) ([]model.User, error) {
	if !s.Can(session.Role, rbac.ActionManagePatients) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	patients := make([]model.User, 0, len(all))
	for _, user := range all {
		if user.Role != model.RolePatient {
			continue
		}
		patients = append(patients, user.Public())
	}
	sort.Slice(patients, func(i, j int) bool { return patients[i].PatientID < patients[j].PatientID })
	return patients, nil
}

// CreatePatient lets a doctor register a patient account directly.
func (s *Service) CreatePatient(ctx context.Context, session Session, email, password, name string) (model.User, error) {
	if !s.Can(session.Role, rbac.ActionManagePatients) {
		return model.User{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	user, err := s.auth.SignUp(ctx, authpw.SignUpRequest{Email: email, Password: password, Name: name})
	if err != nil {
		return model.User{}, err
	}
	return user.Public(), nil
}

// UploadPDF stores an externally produced report PDF for a patient.
func (s *Service) UploadPDF(ctx context.Context, session Session, patientID string, data []byte) error {
	if err := s.authorizePatientAccess(session, patientID); err != nil {
		return err
	}
	if s.blobs == nil {
		return domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "PDF storage not configured", nil)
	}
	if len(data) == 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "PDF payload is empty", nil)
	}
	return s.blobs.Put(ctx, patientID, data)
}

// GetPDF fetches the stored PDF for a patient.
func (s *Service) GetPDF(ctx context.Context, session Session, patientID string) ([]byte, error) {
	if err := s.authorizePatientAccess(session, patientID); err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "PDF storage not configured", nil)
	}
	return s.blobs.Get(ctx, patientID)
}

// FormHistory lists the patient's past submissions, newest first.
func (s *Service) FormHistory(_ context.Context, session Session, patientID string, limit int) ([]audit.Entry, error) {
	if err := s.authorizePatientAccess(session, patientID); err != nil {
		return nil, err
	}
	if s.auditor == nil {
		return []audit.Entry{}, nil
	}
	return s.auditor.History(patientID, limit)
}

// Search runs a free-text query over stored reports.
func (s *Service) Search(_ context.Context, session Session, q string, limit int) (search.Response, error) {
	if !s.Can(session.Role, rbac.ActionSearchReports) {
		return search.Response{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if s.searcher == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
	}
	return s.searcher.Search(search.Query{Text: q, Limit: limit})
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// authorizePatientAccess allows doctors through for any patient, and patients
// only for their own identifier.
func (s *Service) authorizePatientAccess(session Session, patientID string) error {
	if patientID == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "patient identifier is required", nil)
	}
	if s.Can(session.Role, rbac.ActionViewAllReports) {
		return nil
	}
	if session.PatientID != "" && session.PatientID == patientID {
		return nil
	}
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}
