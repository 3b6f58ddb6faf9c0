package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Regressor is a fitted model evaluated on one positional feature vector.
// Implementations are read-only after loading and safe for concurrent use.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// widthDeclarer is implemented by models that know their input width.
type widthDeclarer interface {
	NumFeatures() int
}

type LinearRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *LinearRegression) Predict(features []float64) (float64, error) {
	if len(m.Coef) == 0 {
		return 0, errors.New("model has no coefficients")
	}
	if len(features) != len(m.Coef) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coef), len(features))
	}
	y := m.Intercept
	for i, x := range features {
		y += m.Coef[i] * x
	}
	return y, nil
}

func (m *LinearRegression) NumFeatures() int { return len(m.Coef) }

func (m *LinearRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LinearRegression
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Coef) == 0 {
		return errors.New("model has no coefficients")
	}
	*m = loaded
	return nil
}
