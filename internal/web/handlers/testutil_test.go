package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/auth"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

const testPassword = "admin123"

// testNow is the fixed ledger clock used by handler tests.
var testNow = time.Date(2024, 3, 1, 8, 30, 0, 0, time.Local)

// fakeProvider returns the faces registered for an image payload
type fakeProvider struct {
	faces map[string][]encoder.Face
}

func (p *fakeProvider) Detect(_ context.Context, image []byte) ([]encoder.Face, error) {
	return p.faces[string(image)], nil
}

func testFace(x float32) encoder.Face {
	return encoder.Face{
		Location:   facematch.Location{Top: 10, Right: 60, Bottom: 70, Left: 5},
		Descriptor: facematch.Descriptor{x, 0, 0},
		Score:      0.99,
	}
}

var testAlice = roster.Member{
	Name:      "ALICE",
	RollNo:    "R1",
	Encodings: []facematch.Descriptor{{0, 0, 0}},
	Active:    true,
}

// testEnv bundles a service backed by in-memory storage
type testEnv struct {
	svc     *attendance.Service
	persist *mock.MockRosterPersister
	backend *mock.MockLedgerBackend
}

// newTestEnv creates a service with the given members and ledger rows
func newTestEnv(t *testing.T, members []roster.Member, records ...ledger.Record) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		persist: mock.NewMockRosterPersister(members...),
		backend: mock.NewMockLedgerBackend(records...),
	}
	store, err := roster.Open(ctx, env.persist)
	if err != nil {
		t.Fatalf("failed to open roster: %v", err)
	}
	l, err := ledger.Open(ctx, env.backend, store, ledger.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	provider := &fakeProvider{faces: map[string][]encoder.Face{
		"alice.jpg": {testFace(0)},
		"bob.jpg":   {testFace(3)},
		"group.jpg": {testFace(0.1), testFace(5)},
		"empty.jpg": nil,
		"pair.jpg":  {testFace(0), testFace(3)},
	}}
	env.svc = attendance.New(store, l, provider, auth.NewPlaintext(testPassword), attendance.Options{
		Tolerance: facematch.DefaultTolerance,
		Angles:    []string{"Center", "Left", "Right"},
	})
	return env
}

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Roster:    config.RosterConfig{Backend: "file"},
		Ledger:    config.LedgerConfig{Backend: "csv"},
		Embedding: config.EmbeddingConfig{URL: "http://localhost:8000"},
	}
}

// newTestSessionManager creates a session manager stopped at test end
func newTestSessionManager(t *testing.T) *middleware.SessionManager {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return sm
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// formFile is one file part of a multipart request
type formFile struct {
	field   string
	name    string
	content string
}

// multipartRequest builds a multipart/form-data request
func multipartRequest(t *testing.T, method, path string, values map[string][]string, files []formFile) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, v := range vals {
			if err := mw.WriteField(key, v); err != nil {
				t.Fatalf("failed to write field: %v", err)
			}
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// jsonRequest builds a request with a JSON body
func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
