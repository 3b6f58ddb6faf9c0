package http

import (
	"bytes"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"salaryestimator/ml"
	"salaryestimator/profile"
)

type inputRow struct {
	Label string
	Value string
}

// formState is the form re-derived from a selection: the job titles offered
// for the chosen industry and the experience range allowed by age and
// education.
type formState struct {
	Selection  profile.Selection `json:"selection"`
	JobTitles  []string          `json:"job_titles"`
	Age        profile.Range     `json:"age"`
	Experience profile.Range     `json:"years_of_experience"`
}

type formPage struct {
	Options   profile.Catalog
	Form      formState
	Years     int
	Input     []inputRow
	Estimate  string
	Error     string
	Version   string
	RequestID string
}

func deriveForm(rec profile.Record) formState {
	return formState{
		Selection:  rec.Selection(),
		JobTitles:  profile.JobTitles(rec.Industry),
		Age:        profile.Range{Min: profile.MinAge, Max: profile.MaxAge, Default: profile.DefaultAge},
		Experience: profile.ExperienceRange(rec.Age, rec.EducationLevel),
	}
}

func inputRows(rec profile.Record) []inputRow {
	return []inputRow{
		{"Industry", rec.Industry},
		{"Job Title", rec.JobTitle},
		{"Education Level", rec.EducationLevel},
		{"Location", rec.Location},
		{"Company Size", rec.CompanySize},
		{"Age", strconv.Itoa(rec.Age)},
		{"Years of Experience", strconv.Itoa(rec.YearsOfExperience)},
	}
}

// handleForm renders the single page form. Every submission is a GET with the
// current selection in the query, so a page load is a full rerun.
func (h *handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	sel, err := profile.Decode(profile.Defaults(), queryInput(r.URL.Query()))
	if err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rec := profile.Build(sel)

	page := formPage{
		Options:   profile.Options(),
		Form:      deriveForm(rec),
		Years:     rec.YearsOfExperience,
		Input:     inputRows(rec),
		Version:   h.deps.Pipeline.Version(),
		RequestID: GetRequestID(r.Context()),
	}

	status := http.StatusOK
	est, err := h.estimate(r.Context(), sourceForm, rec)
	if err != nil {
		var body errorBody
		status, body = failure(err)
		page.Error = body.Error
	} else {
		page.Estimate = est.Format()
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, page); err != nil {
		h.deps.Logger.Error("failed to render form", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorBody{Error: "failed to render page"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// liveReply answers one form state on the live estimate socket.
type liveReply struct {
	Form      formState       `json:"form"`
	Input     *profile.Record `json:"input,omitempty"`
	Estimate  *ml.Estimate    `json:"estimate,omitempty"`
	Formatted string          `json:"formatted,omitempty"`
	Error     *errorBody      `json:"error,omitempty"`
}
