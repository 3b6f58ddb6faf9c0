package ml

import (
	"errors"
	"fmt"
)

// Scaler applies a fitted numeric transform to a row.
type Scaler interface {
	Transform(row Row) (Row, error)
}

// StandardScaler computes (x - mean) / scale for each fitted column.
type StandardScaler struct {
	columns []Column
	mean    []float64
	scale   []float64
}

func NewStandardScaler(columns []Column, mean, scale []float64) (*StandardScaler, error) {
	if err := checkNumericColumns(columns); err != nil {
		return nil, err
	}
	if len(mean) != len(columns) || len(scale) != len(columns) {
		return nil, errors.New("columns/mean/scale length mismatch")
	}
	return &StandardScaler{
		columns: append([]Column(nil), columns...),
		mean:    append([]float64(nil), mean...),
		scale:   nonZero(scale),
	}, nil
}

func (s *StandardScaler) Transform(row Row) (Row, error) {
	out := row
	for i, col := range s.columns {
		v, ok := row.Get(col)
		if !ok {
			return nil, &MissingColumnError{Column: col}
		}
		out = out.With(col, (v-s.mean[i])/s.scale[i])
	}
	return out, nil
}

// MinMaxScaler maps [dataMin, dataMax] onto [featureMin, featureMax].
// Values outside the fitted range extrapolate.
type MinMaxScaler struct {
	columns    []Column
	dataMin    []float64
	dataMax    []float64
	featureMin float64
	featureMax float64
}

func NewMinMaxScaler(columns []Column, dataMin, dataMax []float64, featureRange [2]float64) (*MinMaxScaler, error) {
	if err := checkNumericColumns(columns); err != nil {
		return nil, err
	}
	if len(dataMin) != len(columns) || len(dataMax) != len(columns) {
		return nil, errors.New("columns/data_min/data_max length mismatch")
	}
	if featureRange[0] >= featureRange[1] {
		return nil, fmt.Errorf("invalid feature range %v", featureRange)
	}
	return &MinMaxScaler{
		columns:    append([]Column(nil), columns...),
		dataMin:    append([]float64(nil), dataMin...),
		dataMax:    append([]float64(nil), dataMax...),
		featureMin: featureRange[0],
		featureMax: featureRange[1],
	}, nil
}

func (s *MinMaxScaler) Transform(row Row) (Row, error) {
	out := row
	for i, col := range s.columns {
		v, ok := row.Get(col)
		if !ok {
			return nil, &MissingColumnError{Column: col}
		}
		unit := NormalizeFeature(v, s.dataMin[i], s.dataMax[i])
		out = out.With(col, s.featureMin+unit*(s.featureMax-s.featureMin))
	}
	return out, nil
}

// NormalizeFeature maps value into [0, 1] relative to min and max. A
// degenerate range maps everything onto its offset from min.
func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return value - min
	}
	return (value - min) / (max - min)
}

func checkNumericColumns(columns []Column) error {
	want := NumericColumns()
	if len(columns) != len(want) {
		return fmt.Errorf("scaler must cover exactly %v, got %v", want, columns)
	}
	seen := make(map[Column]bool, len(columns))
	for _, col := range columns {
		if col.Categorical() || !col.valid() {
			return fmt.Errorf("scaler column %s is not numeric", col)
		}
		if seen[col] {
			return fmt.Errorf("duplicate scaler column %s", col)
		}
		seen[col] = true
	}
	return nil
}

// nonZero replaces zero scales with 1 the way fitted scalers handle
// constant features.
func nonZero(scale []float64) []float64 {
	out := make([]float64, len(scale))
	for i, s := range scale {
		if s == 0 {
			s = 1
		}
		out[i] = s
	}
	return out
}
