package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"qolintake/api/internal/audit"
	"qolintake/api/internal/authpw"
	"qolintake/api/internal/blobstore"
	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
	"qolintake/api/internal/pipeline"
	"qolintake/api/internal/reportview"
	"qolintake/api/internal/search"
	"qolintake/api/internal/users"
)

const testSecret = "test-secret"

type fakeAnalyzer struct {
	err error
}

func (f *fakeAnalyzer) GenerateReport(_ context.Context, form json.RawMessage) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	var fields map[string]any
	_ = json.Unmarshal(form, &fields)
	id, _ := fields["Patient_ID"].(string)
	report := model.Report{
		PatientID: id,
		Body: model.ReportBody{
			Summary: "Patient reports steady improvement.",
			Sentiment: model.SentimentAnalysis{
				OverallSentiment: model.Sentiment{Label: "POSITIVE", Score: 0.9},
				TopEmotions:      map[string]float64{"optimism": 0.8},
			},
			DetectedThemes: model.DetectedThemes{
				Themes:           []string{"recovery"},
				ConfidenceScores: map[string]float64{"recovery": 0.7},
			},
			Wordcloud: []model.WordcloudEntry{{Word: "better", Count: 3}},
		},
	}
	return json.Marshal(report)
}

func newTestServer(t *testing.T, analyzer pipeline.Analyzer) (*HTTPServer, *users.Store) {
	t.Helper()

	store, err := docstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	userStore := users.New(store)
	authSvc := authpw.NewService(userStore)
	auditor := audit.New(t.TempDir())
	intake := pipeline.New(store, userStore, analyzer, zerolog.Nop()).WithAuditor(auditor)
	reports := reportview.New(store, zerolog.Nop())
	searcher := search.NewService(search.NewScan(store, userStore), userStore, zerolog.Nop())
	blobs, err := blobstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	svc := NewService([]byte(testSecret), time.Hour, store, userStore, authSvc, intake, reports, zerolog.Nop()).
		WithSearch(searcher).
		WithAuditor(auditor).
		WithBlobs(blobs)

	return NewHTTPServer(svc, "*", zerolog.Nop()), userStore
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	switch v := body.(type) {
	case nil:
		reader = bytes.NewBuffer(nil)
	case string:
		reader = bytes.NewBufferString(v)
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func parseBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %s: %v", rr.Body.String(), err)
	}
	return payload
}

func signUpPatient(t *testing.T, server *HTTPServer, email, name string) (token, patientID string) {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/signup", "", map[string]string{
		"email":    email,
		"password": "hunter22",
		"name":     name,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	token, _ = payload["token"].(string)
	user, _ := payload["user"].(map[string]any)
	patientID, _ = user["patient_id"].(string)
	if token == "" || patientID == "" {
		t.Fatalf("signup payload incomplete: %s", rr.Body.String())
	}
	return token, patientID
}

func loginDoctor(t *testing.T, server *HTTPServer, userStore *users.Store) string {
	t.Helper()
	hash, err := authpw.HashPassword("rounds")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	err = userStore.Save(context.Background(), model.User{
		UserID:       "u900",
		Email:        "doc@example.com",
		Name:         "Dr Chen",
		PasswordHash: hash,
		Role:         model.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	rr := doJSON(t, server, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "doc@example.com",
		"password": "rounds",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("doctor login: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	token, _ := parseBody(t, rr)["token"].(string)
	if token == "" {
		t.Fatal("doctor login returned no token")
	}
	return token
}

func TestSignUpReturnsTokenAndSequentialPatientID(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})

	_, first := signUpPatient(t, server, "mary@example.com", "Mary Simpson")
	if first != "0001" {
		t.Fatalf("expected patient id 0001, got %q", first)
	}
	_, second := signUpPatient(t, server, "john@example.com", "John Doe")
	if second != "0002" {
		t.Fatalf("expected patient id 0002, got %q", second)
	}
}

func TestSignUpNeverLeaksPasswordHash(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})

	rr := doJSON(t, server, http.MethodPost, "/api/signup", "", map[string]string{
		"email":    "mary@example.com",
		"password": "hunter22",
		"name":     "Mary Simpson",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("password")) {
		t.Fatalf("response must not carry password material: %s", rr.Body.String())
	}
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	signUpPatient(t, server, "mary@example.com", "Mary Simpson")

	rr := doJSON(t, server, http.MethodPost, "/api/signup", "", map[string]string{
		"email":    "MARY@example.com",
		"password": "other",
		"name":     "Impostor",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "EMAIL_EXISTS" {
		t.Fatalf("expected EMAIL_EXISTS, got %s", rr.Body.String())
	}
}

func TestSignUpMissingFieldsRejected(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	rr := doJSON(t, server, http.MethodPost, "/api/signup", "", map[string]string{"email": "x@example.com"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", rr.Body.String())
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	signUpPatient(t, server, "mary@example.com", "Mary Simpson")

	rr := doJSON(t, server, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "mary@example.com",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", rr.Body.String())
	}
}

func TestProtectedRouteWithoutBearerUnauthorized(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	rr := doJSON(t, server, http.MethodGet, "/api/authenticate", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if parseBody(t, rr)["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", rr.Body.String())
	}
}

func TestProtectedRouteWithGarbageBearerUnauthorized(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	rr := doJSON(t, server, http.MethodGet, "/api/authenticate", "definitely-not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAuthenticateReflectsStoredUser(t *testing.T) {
	server, userStore := newTestServer(t, &fakeAnalyzer{})
	token, patientID := signUpPatient(t, server, "mary@example.com", "Mary Simpson")

	// Flip the flag behind the token's back; authenticate must see it.
	if _, err := userStore.SetReportReady(context.Background(), patientID, true); err != nil {
		t.Fatalf("SetReportReady() error = %v", err)
	}

	rr := doJSON(t, server, http.MethodGet, "/api/authenticate", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	user, _ := payload["user"].(map[string]any)
	if user["isReport"] != true {
		t.Fatalf("authenticate should reflect the stored flag: %s", rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	rr := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	rr := doJSON(t, server, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["ok"] != true {
		t.Fatalf("expected ok=true, got %s", rr.Body.String())
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server, _ := newTestServer(t, &fakeAnalyzer{})
	token, _ := signUpPatient(t, server, "mary@example.com", "Mary Simpson")
	rr := doJSON(t, server, http.MethodGet, "/api/nope", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
