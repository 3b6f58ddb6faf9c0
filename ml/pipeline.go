package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"salaryestimator/profile"
)

// Estimate is a predicted yearly salary.
type Estimate struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Symbol       string  `json:"symbol"`
	ModelVersion string  `json:"model_version,omitempty"`
}

// FormatAmount renders v with two decimals, rounded from its exact binary
// value, and thousands separators.
func FormatAmount(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	fixed := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return sign + humanize.Comma(n) + "." + frac
}

func (e Estimate) Format() string {
	return fmt.Sprintf("%s%s per year", e.Symbol, FormatAmount(e.Amount))
}

// Trace exposes every intermediate stage of one prediction.
type Trace struct {
	Record   profile.Record     `json:"record"`
	Encoded  map[string]float64 `json:"encoded"`
	Labels   map[string]string  `json:"labels"`
	Scaled   map[string]float64 `json:"scaled"`
	Columns  []string           `json:"columns"`
	Vector   []float64          `json:"vector"`
	Estimate Estimate           `json:"estimate"`
}

// Pipeline turns a profile record into a salary estimate using loaded artifacts.
type Pipeline struct {
	artifacts *Artifacts
	inflight  *semaphore.Weighted
	logger    *zap.Logger
}

type Option func(*Pipeline)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxInFlight bounds concurrent inferences. n <= 0 means unbounded.
func WithMaxInFlight(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.inflight = semaphore.NewWeighted(n)
		}
	}
}

func NewPipeline(artifacts *Artifacts, opts ...Option) (*Pipeline, error) {
	if artifacts == nil {
		return nil, errors.New("artifacts are required")
	}
	if artifacts.Model == nil || artifacts.Scaler == nil || artifacts.Encoders == nil || len(artifacts.Order) == 0 {
		return nil, errors.New("artifacts are incomplete")
	}
	p := &Pipeline{artifacts: artifacts, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) Version() string { return p.artifacts.Version }

func (p *Pipeline) FeatureColumns() []string { return p.artifacts.Order.Names() }

// Predict runs the full pipeline once. ctx only bounds the wait for an
// inference slot; a started inference always runs to completion.
func (p *Pipeline) Predict(ctx context.Context, rec profile.Record) (Estimate, error) {
	trace, err := p.Explain(ctx, rec)
	if err != nil {
		return Estimate{}, err
	}
	return trace.Estimate, nil
}

func (p *Pipeline) Explain(ctx context.Context, rec profile.Record) (*Trace, error) {
	encoded, err := p.artifacts.Encoders.Encode(rec)
	if err != nil {
		return nil, err
	}
	scaled, err := p.artifacts.Scaler.Transform(encoded)
	if err != nil {
		return nil, err
	}
	vector, err := Reindex(scaled, p.artifacts.Order)
	if err != nil {
		return nil, err
	}

	amount, err := p.infer(ctx, vector)
	if err != nil {
		return nil, err
	}

	return &Trace{
		Record:  rec,
		Encoded: encoded.Map(),
		Labels:  p.artifacts.Encoders.Decode(encoded),
		Scaled:  scaled.Map(),
		Columns: p.artifacts.Order.Names(),
		Vector:  vector,
		Estimate: Estimate{
			Amount:       amount,
			Currency:     p.artifacts.CurrencyCode,
			Symbol:       p.artifacts.CurrencySymbol,
			ModelVersion: p.artifacts.Version,
		},
	}, nil
}

func (p *Pipeline) infer(ctx context.Context, vector []float64) (float64, error) {
	if p.inflight != nil {
		if err := p.inflight.Acquire(ctx, 1); err != nil {
			return 0, fmt.Errorf("waiting for inference slot: %w", err)
		}
		defer p.inflight.Release(1)
	}

	start := time.Now()
	amount, err := p.artifacts.Model.Predict(vector)
	if err != nil {
		return 0, &InferenceError{Err: err}
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, &InferenceError{Err: fmt.Errorf("model returned non-finite value %v", amount)}
	}
	p.logger.Debug("inference",
		zap.Float64("amount", amount),
		zap.Int("width", len(vector)),
		zap.Duration("took", time.Since(start)),
	)
	return amount, nil
}
