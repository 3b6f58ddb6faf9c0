package ml

import (
	"errors"
	"testing"

	"salaryestimator/profile"
)

func testEncoderTable(t *testing.T) *EncoderTable {
	t.Helper()
	classes := map[Column][]string{
		ColJobTitle:       {"Data Scientist", "Nurse"},
		ColIndustry:       {"Healthcare", "IT"},
		ColEducationLevel: {"Bachelor's", "High School", "Master's", "PhD"},
		ColLocation:       {"Bangalore", "Paris"},
		ColCompanySize:    {"Large", "Medium", "Small"},
	}
	encoders := make(map[Column]*LabelEncoder, len(classes))
	for col, c := range classes {
		enc, err := NewLabelEncoder(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		encoders[col] = enc
	}
	table, err := NewEncoderTable(encoders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return table
}

func TestLabelEncoder(t *testing.T) {
	if _, err := NewLabelEncoder(nil); err == nil {
		t.Fatal("expected error for empty classes")
	}
	if _, err := NewLabelEncoder([]string{"a", "a"}); err == nil {
		t.Fatal("expected error for duplicate classes")
	}
	if _, err := NewLabelEncoder([]string{"Small", "Large", "Medium"}); err == nil {
		t.Fatal("expected error for unsorted classes")
	}

	enc, err := NewLabelEncoder([]string{"Large", "Medium", "Small"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code, ok := enc.Transform("Small"); !ok || code != 2 {
		t.Fatalf("expected code 2, got %d (%v)", code, ok)
	}
	if _, ok := enc.Transform("Huge"); ok {
		t.Fatal("expected unknown class to fail")
	}
	if class, ok := enc.InverseTransform(1); !ok || class != "Medium" {
		t.Fatalf("expected Medium, got %q", class)
	}
	if _, ok := enc.InverseTransform(3); ok {
		t.Fatal("expected out of range code to fail")
	}
}

func TestNewEncoderTableValidation(t *testing.T) {
	enc, _ := NewLabelEncoder([]string{"x"})

	if _, err := NewEncoderTable(map[Column]*LabelEncoder{ColIndustry: enc}); err == nil {
		t.Fatal("expected error when categorical encoders are missing")
	}

	full := map[Column]*LabelEncoder{}
	for _, col := range CategoricalColumns() {
		full[col] = enc
	}
	full[ColAge] = enc
	if _, err := NewEncoderTable(full); err == nil {
		t.Fatal("expected error for an encoder on a numeric column")
	}
}

func TestEncode(t *testing.T) {
	table := testEncoderTable(t)
	rec := profile.Record{
		JobTitle:          "Nurse",
		Industry:          "Healthcare",
		EducationLevel:    "PhD",
		YearsOfExperience: 4,
		Age:               40,
		Location:          "Paris",
		CompanySize:       "Medium",
	}

	row, err := table.Encode(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]float64{
		"Job_Title":           1,
		"Industry":            0,
		"Education_Level":     3,
		"Years_of_Experience": 4,
		"Age":                 40,
		"Location":            1,
		"Company_Size":        1,
	}
	got := row.Map()
	if len(got) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(got))
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("column %s: expected %v, got %v", name, v, got[name])
		}
	}
}

func TestEncodeUnknownCategory(t *testing.T) {
	table := testEncoderTable(t)
	rec := profile.Record{
		JobTitle:       "Nurse",
		Industry:       "Aerospace",
		EducationLevel: "PhD",
		Age:            40,
		Location:       "Paris",
		CompanySize:    "Medium",
	}

	_, err := table.Encode(rec)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
	var unknown *UnknownCategoryError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownCategoryError, got %T", err)
	}
	if unknown.Column != ColIndustry || unknown.Value != "Aerospace" {
		t.Fatalf("unexpected error detail: %+v", unknown)
	}
	if ErrorKind(err) != "unknown_category" {
		t.Fatalf("unexpected kind %q", ErrorKind(err))
	}
}

func TestEncoderTableDecode(t *testing.T) {
	table := testEncoderTable(t)
	rec := profile.Record{
		JobTitle:          "Nurse",
		Industry:          "Healthcare",
		EducationLevel:    "PhD",
		YearsOfExperience: 4,
		Age:               40,
		Location:          "Paris",
		CompanySize:       "Medium",
	}
	row, err := table.Encode(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	labels := table.Decode(row)
	want := map[string]string{
		"Job_Title":       "Nurse",
		"Industry":        "Healthcare",
		"Education_Level": "PhD",
		"Location":        "Paris",
		"Company_Size":    "Medium",
	}
	if len(labels) != len(want) {
		t.Fatalf("expected only categorical labels, got %v", labels)
	}
	for col, class := range want {
		if labels[col] != class {
			t.Fatalf("expected %s=%q, got %q", col, class, labels[col])
		}
	}

	if labels := table.Decode(row.With(ColCompanySize, 9)); labels["Company_Size"] != "" {
		t.Fatalf("expected an out of range code to be dropped, got %q", labels["Company_Size"])
	}
}
