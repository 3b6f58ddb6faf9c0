package ml

import (
	"fmt"

	"salaryestimator/profile"
)

// Column identifies one model input column.
type Column int

const (
	ColJobTitle Column = iota
	ColIndustry
	ColEducationLevel
	ColYearsOfExperience
	ColAge
	ColLocation
	ColCompanySize
	numColumns
)

var columnNames = [numColumns]string{
	ColJobTitle:          "Job_Title",
	ColIndustry:          "Industry",
	ColEducationLevel:    "Education_Level",
	ColYearsOfExperience: "Years_of_Experience",
	ColAge:               "Age",
	ColLocation:          "Location",
	ColCompanySize:       "Company_Size",
}

func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

func (c Column) Categorical() bool {
	return c.valid() && c != ColYearsOfExperience && c != ColAge
}

func (c Column) valid() bool {
	return c >= 0 && c < numColumns
}

func ParseColumn(name string) (Column, error) {
	for i, n := range columnNames {
		if n == name {
			return Column(i), nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

// Columns returns every column in record field order.
func Columns() []Column {
	out := make([]Column, numColumns)
	for i := range out {
		out[i] = Column(i)
	}
	return out
}

func CategoricalColumns() []Column {
	out := make([]Column, 0, numColumns)
	for _, c := range Columns() {
		if c.Categorical() {
			out = append(out, c)
		}
	}
	return out
}

func NumericColumns() []Column {
	return []Column{ColYearsOfExperience, ColAge}
}

// Cell is a single named value of a Row.
type Cell struct {
	Column Column
	Value  float64
}

// Row is an encoded record. Cell order carries no meaning; consumers look
// values up by column.
type Row []Cell

func (r Row) Get(c Column) (float64, bool) {
	for _, cell := range r {
		if cell.Column == c {
			return cell.Value, true
		}
	}
	return 0, false
}

// With returns a copy of r with c set to v.
func (r Row) With(c Column, v float64) Row {
	out := make(Row, 0, len(r)+1)
	found := false
	for _, cell := range r {
		if cell.Column == c {
			cell.Value = v
			found = true
		}
		out = append(out, cell)
	}
	if !found {
		out = append(out, Cell{Column: c, Value: v})
	}
	return out
}

func (r Row) Map() map[string]float64 {
	out := make(map[string]float64, len(r))
	for _, cell := range r {
		out[cell.Column.String()] = cell.Value
	}
	return out
}

// categoryValue returns the raw string of a categorical column.
func categoryValue(rec profile.Record, c Column) string {
	switch c {
	case ColJobTitle:
		return rec.JobTitle
	case ColIndustry:
		return rec.Industry
	case ColEducationLevel:
		return rec.EducationLevel
	case ColLocation:
		return rec.Location
	case ColCompanySize:
		return rec.CompanySize
	}
	return ""
}

func numericValue(rec profile.Record, c Column) float64 {
	switch c {
	case ColYearsOfExperience:
		return float64(rec.YearsOfExperience)
	case ColAge:
		return float64(rec.Age)
	}
	return 0
}
