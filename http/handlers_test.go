package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"salaryestimator/db"
	"salaryestimator/ml"
	"salaryestimator/monitoring"
)

const sampleArtifacts = "../artifacts"

const examplePayload = `{
	"industry": "IT",
	"job_title": "Data Scientist",
	"education_level": "Master's",
	"location": "Bangalore",
	"company_size": "Large",
	"age": 30,
	"years_of_experience": 5
}`

type failingModel struct{}

func (failingModel) Predict([]float64) (float64, error) {
	return 0, errors.New("model exploded")
}

// dropAge loses the Age column, as a scaler exported from a drifted schema would.
type dropAge struct{}

func (dropAge) Transform(row ml.Row) (ml.Row, error) {
	out := make(ml.Row, 0, len(row))
	for _, cell := range row {
		if cell.Column != ml.ColAge {
			out = append(out, cell)
		}
	}
	return out, nil
}

func loadArtifacts(t *testing.T) *ml.Artifacts {
	t.Helper()
	artifacts, err := ml.LoadArtifacts(sampleArtifacts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return artifacts
}

func testDeps(t *testing.T, artifacts *ml.Artifacts) Deps {
	t.Helper()
	pipeline, err := ml.NewPipeline(artifacts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := db.Open(filepath.Join(t.TempDir(), "estimates.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return Deps{
		Pipeline: pipeline,
		Store:    store,
		Metrics:  monitoring.NewMetricsCollector(),
		Alerts:   monitoring.NewAlertSystem(monitoring.AlertOptions{}),
		Logger:   zap.NewNop(),
	}
}

func testHandler(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	config := DefaultServerConfig()
	config.RateLimit = 0
	handler, err := NewHandler(config, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return handler
}

func do(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, w.Body.String())
	}
}

func TestHealthHandler(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]interface{}
	decode(t, w, &payload)
	if payload["status"] != "ok" || payload["model_version"] != "2024.07-linear" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("expected security headers")
	}
}

func TestPredictExample(t *testing.T) {
	deps := testDeps(t, loadArtifacts(t))
	handler := testHandler(t, deps)

	w := do(handler, http.MethodPost, "/api/predict", examplePayload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp estimateResponse
	decode(t, w, &resp)
	if resp.Input.JobTitle != "Data Scientist" || resp.Input.YearsOfExperience != 5 || resp.Input.Age != 30 {
		t.Fatalf("unexpected input %+v", resp.Input)
	}
	if resp.Estimate.Amount <= 0 || resp.Estimate.Currency != "INR" {
		t.Fatalf("unexpected estimate %+v", resp.Estimate)
	}
	if !strings.HasPrefix(resp.Formatted, "₹") || !strings.HasSuffix(resp.Formatted, " per year") {
		t.Fatalf("unexpected formatted estimate %q", resp.Formatted)
	}
	if resp.RequestID == "" || resp.RequestID != w.Header().Get("X-Request-ID") {
		t.Fatalf("request id mismatch: %q vs %q", resp.RequestID, w.Header().Get("X-Request-ID"))
	}

	events, err := deps.Store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Status != db.StatusOK || events[0].Source != sourceAPI || events[0].RequestID != resp.RequestID {
		t.Fatalf("unexpected audit events %+v", events)
	}
	if got := deps.Metrics.Counter(monitoring.MetricEstimates, map[string]string{"status": "ok"}); got != 1 {
		t.Fatalf("expected 1 ok estimate, got %v", got)
	}
}

func TestPredictAgeBounds(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	tests := []struct {
		body string
		age  int
	}{
		{`{"industry":"IT"}`, 30},
		{`{"industry":"IT","age":0}`, 18},
		{`{"industry":"IT","age":99}`, 65},
	}
	for _, tt := range tests {
		w := do(handler, http.MethodPost, "/api/predict", tt.body)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tt.body, w.Code, w.Body.String())
		}
		var resp estimateResponse
		decode(t, w, &resp)
		if resp.Input.Age != tt.age {
			t.Fatalf("%s: expected age %d, got %d", tt.body, tt.age, resp.Input.Age)
		}
	}
}

func TestPredictAcceptsStringNumbers(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodPost, "/api/predict", `{"industry":"Finance","age":"40","years_of_experience":"12"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp estimateResponse
	decode(t, w, &resp)
	if resp.Input.Age != 40 || resp.Input.YearsOfExperience != 12 {
		t.Fatalf("unexpected input %+v", resp.Input)
	}
	// Sales Associate is not offered in Finance.
	if resp.Input.JobTitle != "Financial Analyst" {
		t.Fatalf("expected job title reset, got %q", resp.Input.JobTitle)
	}
}

func TestPredictClampsExperience(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodPost, "/api/predict", `{"education_level":"PhD","age":18,"years_of_experience":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp estimateResponse
	decode(t, w, &resp)
	if resp.Input.YearsOfExperience != 0 {
		t.Fatalf("expected experience clamped to 0, got %d", resp.Input.YearsOfExperience)
	}
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ml.Artifacts)
		body   string
		status int
		kind   string
	}{
		{
			name:   "unknown industry",
			body:   `{"industry":"Aerospace"}`,
			status: http.StatusUnprocessableEntity,
			kind:   "unknown_category",
		},
		{
			name:   "malformed json",
			body:   `{"industry":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "not a number",
			body:   `{"age":"thirty"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "model failure",
			mutate: func(a *ml.Artifacts) { a.Model = failingModel{} },
			body:   examplePayload,
			status: http.StatusInternalServerError,
			kind:   "inference_error",
		},
		{
			name:   "missing column",
			mutate: func(a *ml.Artifacts) { a.Scaler = dropAge{} },
			body:   examplePayload,
			status: http.StatusInternalServerError,
			kind:   "missing_column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifacts := loadArtifacts(t)
			if tt.mutate != nil {
				tt.mutate(artifacts)
			}
			deps := testDeps(t, artifacts)
			handler := testHandler(t, deps)

			w := do(handler, http.MethodPost, "/api/predict", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var body errorBody
			decode(t, w, &body)
			if body.Kind != tt.kind {
				t.Fatalf("expected kind %q, got %q", tt.kind, body.Kind)
			}
			if body.Error == "" {
				t.Fatal("expected an error message")
			}

			if tt.kind == "" {
				return
			}
			events, err := deps.Store.Recent(context.Background(), 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != 1 || events[0].Status != db.StatusError || events[0].ErrorKind != tt.kind {
				t.Fatalf("unexpected audit events %+v", events)
			}
		})
	}
}

func TestPredictUnknownCategoryNamesColumn(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodPost, "/api/predict", `{"location":"Atlantis"}`)
	var body errorBody
	decode(t, w, &body)
	if body.Column != "Location" || body.Value != "Atlantis" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestExplain(t *testing.T) {
	deps := testDeps(t, loadArtifacts(t))
	handler := testHandler(t, deps)

	w := do(handler, http.MethodPost, "/api/explain", examplePayload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var trace ml.Trace
	decode(t, w, &trace)
	if len(trace.Vector) != 7 || len(trace.Columns) != 7 || trace.Columns[0] != "Industry" {
		t.Fatalf("unexpected trace %+v", trace)
	}
	if trace.Labels["Location"] != "Bangalore" || trace.Labels["Education_Level"] != "Master's" {
		t.Fatalf("expected decoded labels, got %v", trace.Labels)
	}

	events, _ := deps.Store.Recent(context.Background(), 10)
	if len(events) != 0 {
		t.Fatalf("explain must not be audited, got %d events", len(events))
	}
}

func TestBounds(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	tests := []struct {
		query   string
		max     int
		def     int
		startAt int
	}{
		{"age=30&education=Bachelor's", 9, 1, 21},
		{"age=18&education=PhD", 0, 0, 27},
		{"age=65&education=High%20School", 47, 1, 18},
		{"education=Master's", 7, 1, 23},
	}
	for _, tt := range tests {
		w := do(handler, http.MethodGet, "/api/bounds?"+tt.query, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.query, w.Code)
		}
		var resp boundsResponse
		decode(t, w, &resp)
		if resp.Experience.Min != 0 || resp.Experience.Max != tt.max || resp.Experience.Default != tt.def || resp.CareerStartAge != tt.startAt {
			t.Fatalf("%s: unexpected bounds %+v", tt.query, resp)
		}
	}

	if w := do(handler, http.MethodGet, "/api/bounds?age=old", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad age, got %d", w.Code)
	}
}

func TestOptions(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodGet, "/api/options", "")
	var catalog struct {
		Industries []string            `json:"industries"`
		JobTitles  map[string][]string `json:"job_titles"`
		Locations  []string            `json:"locations"`
	}
	decode(t, w, &catalog)
	if len(catalog.Industries) != 9 || len(catalog.Locations) != 12 || len(catalog.JobTitles["IT"]) != 6 {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
}

func TestFormRendersDefaults(t *testing.T) {
	deps := testDeps(t, loadArtifacts(t))
	handler := testHandler(t, deps)

	w := do(handler, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	page := w.Body.String()
	for _, want := range []string{"Your Input Details", "<th>Industry</th><td>Retail</td>", "<th>Age</th><td>30</td>", "per year"} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected %q in page", want)
		}
	}

	events, _ := deps.Store.Recent(context.Background(), 10)
	if len(events) != 1 || events[0].Source != sourceForm {
		t.Fatalf("unexpected audit events %+v", events)
	}
}

func TestFormResetsJobTitle(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodGet, "/?industry=Finance&job_title=Data+Scientist&age=25", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	page := w.Body.String()
	if !strings.Contains(page, "<th>Job Title</th><td>Financial Analyst</td>") {
		t.Fatal("expected the job title to fall back to the first Finance title")
	}
	if strings.Contains(page, `<option value="Data Scientist"`) {
		t.Fatal("Finance must not offer Data Scientist")
	}
}

func TestFormUnknownCategory(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	w := do(handler, http.MethodGet, "/?location=Atlantis", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Atlantis") {
		t.Fatal("expected the rejected value in the page")
	}
}

func TestHistoryAndMetrics(t *testing.T) {
	handler := testHandler(t, testDeps(t, loadArtifacts(t)))

	do(handler, http.MethodPost, "/api/predict", examplePayload)
	do(handler, http.MethodPost, "/api/predict", `{"industry":"Aerospace"}`)

	w := do(handler, http.MethodGet, "/api/history?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var history struct {
		Events []historyEntry    `json:"events"`
		Counts map[string]int64 `json:"counts"`
	}
	decode(t, w, &history)
	if len(history.Events) != 2 || history.Counts["ok"] != 1 || history.Counts["error"] != 1 {
		t.Fatalf("unexpected history %+v", history)
	}
	if history.Events[0].Status != db.StatusError || history.Events[0].Ago == "" {
		t.Fatalf("expected newest event first, got %+v", history.Events[0])
	}

	w = do(handler, http.MethodGet, "/api/metrics?format=prometheus", "")
	if !strings.Contains(w.Body.String(), `estimates_total{kind="unknown_category",status="error"} 1`) {
		t.Fatalf("unexpected metrics output:\n%s", w.Body.String())
	}
}

func TestHistoryDisabledWithoutStore(t *testing.T) {
	deps := testDeps(t, loadArtifacts(t))
	deps.Store = nil
	handler := testHandler(t, deps)

	if w := do(handler, http.MethodGet, "/api/history", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(handler, http.MethodPost, "/api/predict", examplePayload); w.Code != http.StatusOK {
		t.Fatalf("predict must work without an audit log, got %d", w.Code)
	}
}

func TestSchemaDriftRaisesAlert(t *testing.T) {
	artifacts := loadArtifacts(t)
	artifacts.Scaler = dropAge{}
	handler := testHandler(t, testDeps(t, artifacts))

	do(handler, http.MethodPost, "/api/predict", examplePayload)
	do(handler, http.MethodPost, "/api/predict", examplePayload)

	w := do(handler, http.MethodGet, "/api/alerts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload struct {
		Active []monitoring.Alert    `json:"active"`
		Stats  monitoring.AlertStats `json:"stats"`
	}
	decode(t, w, &payload)
	if len(payload.Active) != 1 || payload.Active[0].Kind != monitoring.KindMissingColumn || payload.Active[0].Count != 2 {
		t.Fatalf("unexpected alerts %+v", payload.Active)
	}
	if payload.Active[0].Level != monitoring.Critical {
		t.Fatalf("expected a critical alert, got %q", payload.Active[0].Level)
	}
}
