package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"salaryestimator/db"
	"salaryestimator/profile"
)

//go:embed templates static
var assets embed.FS

type handlers struct {
	deps     Deps
	page     *template.Template
	upgrader websocket.Upgrader
}

func (h *handlers) register(mux *http.ServeMux) error {
	page, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		return err
	}
	h.page = page
	h.upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

	static, err := fs.Sub(assets, "static")
	if err != nil {
		return err
	}

	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/options", h.handleOptions)
	mux.HandleFunc("GET /api/bounds", h.handleBounds)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("POST /api/explain", h.handleExplain)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/alerts", h.handleAlerts)
	mux.HandleFunc("GET /api/ws/estimate", h.handleLiveEstimate)
	if h.deps.Hub != nil {
		mux.HandleFunc("GET /api/ws/dashboard", h.deps.Hub.HandleWebSocket)
	}
	return nil
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":          "ok",
		"model_version":   h.deps.Pipeline.Version(),
		"feature_columns": h.deps.Pipeline.FeatureColumns(),
		"audit_log":       h.deps.Store != nil,
	}
	if h.deps.Metrics != nil {
		response["uptime"] = h.deps.Metrics.GetUptime().Round(time.Second).String()
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *handlers) handleOptions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, profile.Options())
}

type boundsResponse struct {
	Age            profile.Range `json:"age"`
	Experience     profile.Range `json:"years_of_experience"`
	CareerStartAge int           `json:"career_start_age"`
	EducationLevel string        `json:"education_level"`
	JobTitles      []string      `json:"job_titles,omitempty"`
}

func (h *handlers) handleBounds(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	age := profile.DefaultAge
	if raw := strings.TrimSpace(query.Get("age")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errorBody{Error: "age must be an integer"})
			return
		}
		age = parsed
	}

	education := query.Get("education")
	if education == "" {
		education = profile.EducationLevels[0]
	}

	ageRange := profile.Range{Min: profile.MinAge, Max: profile.MaxAge, Default: profile.DefaultAge}
	respondJSON(w, http.StatusOK, boundsResponse{
		Age:            ageRange,
		Experience:     profile.ExperienceRange(age, education),
		CareerStartAge: profile.CareerStartAge(education),
		EducationLevel: education,
		JobTitles:      profile.JobTitles(query.Get("industry")),
	})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.readRecord(w, r)
	if !ok {
		return
	}

	est, err := h.estimate(r.Context(), sourceAPI, rec)
	if err != nil {
		status, body := failure(err)
		body.RequestID = GetRequestID(r.Context())
		writeError(w, status, body)
		return
	}

	respondJSON(w, http.StatusOK, estimateResponse{
		RequestID: GetRequestID(r.Context()),
		Input:     rec,
		Estimate:  est,
		Formatted: est.Format(),
	})
}

// handleExplain returns every intermediate stage. It is not audited.
func (h *handlers) handleExplain(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.readRecord(w, r)
	if !ok {
		return
	}

	trace, err := h.deps.Pipeline.Explain(r.Context(), rec)
	if err != nil {
		status, body := failure(err)
		body.RequestID = GetRequestID(r.Context())
		writeError(w, status, body)
		return
	}
	respondJSON(w, http.StatusOK, trace)
}

// readRecord decodes a JSON selection body over the defaults and builds the
// record. It writes the error response itself.
func (h *handlers) readRecord(w http.ResponseWriter, r *http.Request) (profile.Record, bool) {
	var input map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, errorBody{Error: "request body is empty"})
		default:
			writeError(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error()})
		}
		return profile.Record{}, false
	}

	sel, err := profile.Decode(profile.Defaults(), dropBlank(input))
	if err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return profile.Record{}, false
	}
	return profile.Build(sel), true
}

func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.Metrics == nil {
		writeError(w, http.StatusNotFound, errorBody{Error: "metrics are disabled"})
		return
	}

	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		io.WriteString(w, h.deps.Metrics.ExportPrometheus())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": h.deps.Metrics.Summaries(),
		"system":  h.deps.Metrics.GetSystemStats(),
	})
}

func (h *handlers) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if h.deps.Alerts == nil {
		writeError(w, http.StatusNotFound, errorBody{Error: "alerts are disabled"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"active": h.deps.Alerts.Active(),
		"stats":  h.deps.Alerts.Stats(),
	})
}

type historyEntry struct {
	db.Event
	Ago string `json:"ago"`
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		writeError(w, http.StatusNotFound, errorBody{Error: "audit log is disabled"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	events, err := h.deps.Store.Recent(r.Context(), limit)
	if err != nil {
		h.deps.Logger.Error("failed to read audit log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorBody{Error: "failed to read history"})
		return
	}
	counts, err := h.deps.Store.Counts(r.Context())
	if err != nil {
		h.deps.Logger.Error("failed to count audit log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorBody{Error: "failed to read history"})
		return
	}

	entries := make([]historyEntry, len(events))
	for i, e := range events {
		entries[i] = historyEntry{Event: e, Ago: humanize.Time(e.CreatedAt)}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": entries,
		"counts": counts,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	respondJSON(w, status, body)
}
