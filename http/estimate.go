package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"salaryestimator/db"
	"salaryestimator/ml"
	"salaryestimator/monitoring"
	"salaryestimator/profile"
)

// Sources recorded in the audit log.
const (
	sourceForm = "form"
	sourceAPI  = "api"
	sourceLive = "live"
)

const kindCanceled = "canceled"

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Column    string `json:"column,omitempty"`
	Value     string `json:"value,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type estimateResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Input     profile.Record `json:"input"`
	Estimate  ml.Estimate    `json:"estimate"`
	Formatted string         `json:"formatted"`
}

// estimate runs rec through the pipeline and records the outcome in the
// metrics, the audit log and the dashboard feed.
func (h *handlers) estimate(ctx context.Context, source string, rec profile.Record) (ml.Estimate, error) {
	start := time.Now()
	est, err := h.deps.Pipeline.Predict(ctx, rec)
	h.observe(ctx, source, est, err, time.Since(start))
	return est, err
}

func (h *handlers) observe(ctx context.Context, source string, est ml.Estimate, err error, took time.Duration) {
	requestID := GetRequestID(ctx)
	logger := h.deps.Logger.With(zap.String("request_id", requestID), zap.String("source", source))

	event := db.Event{
		RequestID:    requestID,
		Source:       source,
		ModelVersion: h.deps.Pipeline.Version(),
		Status:       db.StatusOK,
		Amount:       est.Amount,
		Duration:     took,
		CreatedAt:    time.Now().UTC(),
	}

	if err != nil {
		event.Status = db.StatusError
		event.Amount = 0
		event.ErrorKind = errorKind(err)

		switch {
		case errors.Is(err, ml.ErrMissingColumn):
			logger.Error("feature column missing after encoding; the exported artifacts no longer match the serving schema", zap.Error(err))
		case errors.Is(err, ml.ErrInference):
			logger.Error("model inference failed", zap.Error(err))
		default:
			logger.Info("estimate rejected", zap.String("kind", event.ErrorKind), zap.Error(err))
		}
	} else {
		logger.Debug("estimate produced", zap.Float64("amount", est.Amount), zap.Duration("took", took))
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordEstimate(event.Status, event.ErrorKind, took, event.Amount)
	}
	if h.deps.Store != nil {
		if err := h.deps.Store.Record(context.WithoutCancel(ctx), event); err != nil {
			logger.Warn("failed to record estimate", zap.Error(err))
		}
	}
	if h.deps.Alerts != nil {
		h.deps.Alerts.ObserveEstimate(event.ErrorKind, requestID, event.ModelVersion)
	}
	if h.deps.Hub != nil {
		if err := h.deps.Hub.Publish(monitoring.EstimateEvent, event); err != nil {
			logger.Warn("failed to publish estimate", zap.Error(err))
		}
	}
}

func errorKind(err error) string {
	if kind := ml.ErrorKind(err); kind != "" {
		return kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return kindCanceled
	}
	return "internal"
}

// failure maps a pipeline error to a status code and response body.
func failure(err error) (int, errorBody) {
	body := errorBody{Error: err.Error(), Kind: errorKind(err)}

	var unknown *ml.UnknownCategoryError
	switch {
	case errors.As(err, &unknown):
		body.Column = unknown.Column.String()
		body.Value = unknown.Value
		return http.StatusUnprocessableEntity, body
	case body.Kind == kindCanceled:
		return http.StatusServiceUnavailable, body
	case errors.Is(err, ml.ErrMissingColumn):
		body.Error = "estimate unavailable: model artifacts do not match the input schema"
		return http.StatusInternalServerError, body
	default:
		return http.StatusInternalServerError, body
	}
}
