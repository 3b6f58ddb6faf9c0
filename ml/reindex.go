package ml

import "fmt"

// FeatureOrder is the positional contract between the model and its input vector.
type FeatureOrder []Column

// NewFeatureOrder parses the column names stored with the model. The names
// must cover every column exactly once.
func NewFeatureOrder(names []string) (FeatureOrder, error) {
	order := make(FeatureOrder, 0, len(names))
	seen := make(map[Column]bool, len(names))
	for _, name := range names {
		col, err := ParseColumn(name)
		if err != nil {
			return nil, err
		}
		if seen[col] {
			return nil, fmt.Errorf("duplicate column %s", col)
		}
		seen[col] = true
		order = append(order, col)
	}
	for _, col := range Columns() {
		if !seen[col] {
			return nil, fmt.Errorf("feature order lacks column %s", col)
		}
	}
	return order, nil
}

func (o FeatureOrder) Names() []string {
	names := make([]string, len(o))
	for i, col := range o {
		names[i] = col.String()
	}
	return names
}

// Reindex lays row out in order.
func Reindex(row Row, order FeatureOrder) ([]float64, error) {
	vector := make([]float64, len(order))
	for i, col := range order {
		v, ok := row.Get(col)
		if !ok {
			return nil, &MissingColumnError{Column: col}
		}
		vector[i] = v
	}
	return vector, nil
}
