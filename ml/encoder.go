package ml

import (
	"errors"
	"fmt"

	"salaryestimator/profile"
)

// LabelEncoder maps the classes seen at fit time to their position. Classes
// are sorted, so a code is the rank of its class.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.New("encoder has no classes")
	}
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		if i > 0 {
			switch prev := classes[i-1]; {
			case class == prev:
				return nil, fmt.Errorf("duplicate class %q", class)
			case class < prev:
				return nil, fmt.Errorf("classes are not sorted: %q after %q", class, prev)
			}
		}
		index[class] = i
	}
	return &LabelEncoder{
		classes: append([]string(nil), classes...),
		index:   index,
	}, nil
}

func (e *LabelEncoder) Transform(value string) (int, bool) {
	code, ok := e.index[value]
	return code, ok
}

func (e *LabelEncoder) InverseTransform(code int) (string, bool) {
	if code < 0 || code >= len(e.classes) {
		return "", false
	}
	return e.classes[code], true
}

func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// EncoderTable holds one encoder per categorical column.
type EncoderTable struct {
	encoders [numColumns]*LabelEncoder
}

func NewEncoderTable(encoders map[Column]*LabelEncoder) (*EncoderTable, error) {
	table := &EncoderTable{}
	for col, enc := range encoders {
		if !col.valid() {
			return nil, fmt.Errorf("encoder for unknown column %s", col)
		}
		if !col.Categorical() {
			return nil, fmt.Errorf("encoder for numeric column %s", col)
		}
		if enc == nil {
			return nil, fmt.Errorf("nil encoder for column %s", col)
		}
		table.encoders[col] = enc
	}
	for _, col := range CategoricalColumns() {
		if table.encoders[col] == nil {
			return nil, fmt.Errorf("no encoder for column %s", col)
		}
	}
	return table, nil
}

func (t *EncoderTable) Encoder(c Column) *LabelEncoder {
	if !c.valid() {
		return nil
	}
	return t.encoders[c]
}

// Encode converts rec into a Row, replacing every categorical value with its
// trained code. Numeric columns pass through.
func (t *EncoderTable) Encode(rec profile.Record) (Row, error) {
	row := make(Row, 0, numColumns)
	for _, col := range Columns() {
		if !col.Categorical() {
			row = append(row, Cell{Column: col, Value: numericValue(rec, col)})
			continue
		}
		value := categoryValue(rec, col)
		code, ok := t.encoders[col].Transform(value)
		if !ok {
			return nil, &UnknownCategoryError{Column: col, Value: value}
		}
		row = append(row, Cell{Column: col, Value: float64(code)})
	}
	return row, nil
}

// Decode maps the categorical codes of row back to their class labels.
// Codes without a class are left out.
func (t *EncoderTable) Decode(row Row) map[string]string {
	labels := make(map[string]string)
	for _, cell := range row {
		if !cell.Column.Categorical() {
			continue
		}
		enc := t.Encoder(cell.Column)
		if enc == nil {
			continue
		}
		if class, ok := enc.InverseTransform(int(cell.Value)); ok {
			labels[cell.Column.String()] = class
		}
	}
	return labels
}
