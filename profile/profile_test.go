package profile

import "testing"

func TestExperienceRange(t *testing.T) {
	tests := []struct {
		name      string
		age       int
		education string
		want      Range
	}{
		{"phd at minimum age clamps to zero", 18, "PhD", Range{Min: 0, Max: 0, Default: 0}},
		{"high school at minimum age", 18, "High School", Range{Min: 0, Max: 0, Default: 0}},
		{"masters at thirty", 30, "Master's", Range{Min: 0, Max: 7, Default: 1}},
		{"bachelors at max age", 65, "Bachelor's", Range{Min: 0, Max: 44, Default: 1}},
		{"age above range is clamped", 90, "High School", Range{Min: 0, Max: 47, Default: 1}},
		{"unknown education uses minimum age", 30, "Diploma", Range{Min: 0, Max: 12, Default: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExperienceRange(tt.age, tt.education); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestBuildExperienceBoundaries(t *testing.T) {
	base := Selection{
		Industry:       "IT",
		JobTitle:       "Data Scientist",
		EducationLevel: "Master's",
		Location:       "Bangalore",
		CompanySize:    "Large",
		Age:            intPtr(30),
	}

	maxExp := ExperienceRange(30, "Master's").Max
	for _, years := range []int{0, maxExp} {
		sel := base
		sel.YearsOfExperience = intPtr(years)
		if got := Build(sel).YearsOfExperience; got != years {
			t.Fatalf("expected %d to be accepted, got %d", years, got)
		}
	}

	sel := base
	sel.YearsOfExperience = intPtr(maxExp + 1)
	if got := Build(sel).YearsOfExperience; got != maxExp {
		t.Fatalf("expected max+1 to clamp to %d, got %d", maxExp, got)
	}

	sel.YearsOfExperience = intPtr(-3)
	if got := Build(sel).YearsOfExperience; got != 0 {
		t.Fatalf("expected negative experience to clamp to 0, got %d", got)
	}

	sel.YearsOfExperience = nil
	if got := Build(sel).YearsOfExperience; got != 1 {
		t.Fatalf("expected default experience 1, got %d", got)
	}
}

func TestBuildPhDAtEighteen(t *testing.T) {
	rec := Build(Selection{
		Industry:          "Education",
		JobTitle:          "Professor",
		EducationLevel:    "PhD",
		Location:          "Paris",
		CompanySize:       "Small",
		Age:               intPtr(18),
		YearsOfExperience: intPtr(5),
	})
	if rec.YearsOfExperience != 0 {
		t.Fatalf("expected experience 0, got %d", rec.YearsOfExperience)
	}
}

func TestBuildResetsJobTitle(t *testing.T) {
	rec := Build(Selection{Industry: "Healthcare", JobTitle: "Data Scientist", EducationLevel: "PhD", Age: intPtr(40)})
	if rec.JobTitle != "Nurse" {
		t.Fatalf("expected first healthcare title, got %q", rec.JobTitle)
	}

	rec = Build(Selection{Industry: "Finance", JobTitle: "Business Analyst", Age: intPtr(40)})
	if rec.JobTitle != "Business Analyst" {
		t.Fatalf("expected shared title to be kept, got %q", rec.JobTitle)
	}

	rec = Build(Selection{Industry: "Space", JobTitle: "Astronaut", Age: intPtr(40)})
	if rec.JobTitle != "Astronaut" || rec.Industry != "Space" {
		t.Fatalf("expected unknown categories to pass through, got %+v", rec)
	}
}

func TestBuildAgeDefaults(t *testing.T) {
	if got := Build(Selection{}).Age; got != DefaultAge {
		t.Fatalf("expected default age %d, got %d", DefaultAge, got)
	}
	if got := Build(Selection{Age: intPtr(0)}).Age; got != MinAge {
		t.Fatalf("expected an explicit 0 to clamp to %d, got %d", MinAge, got)
	}
	if got := Build(Selection{Age: intPtr(12)}).Age; got != MinAge {
		t.Fatalf("expected age clamp to %d, got %d", MinAge, got)
	}
	if got := Build(Selection{Age: intPtr(70)}).Age; got != MaxAge {
		t.Fatalf("expected age clamp to %d, got %d", MaxAge, got)
	}
}

func TestDefaultsAndCatalog(t *testing.T) {
	d := Defaults()
	if d.Industry != "Retail" || d.JobTitle != "Sales Associate" || d.EducationLevel != "High School" {
		t.Fatalf("unexpected defaults: %+v", d)
	}

	catalog := Options()
	if len(catalog.Industries) != 9 {
		t.Fatalf("expected 9 industries, got %d", len(catalog.Industries))
	}
	if len(catalog.Locations) != 12 {
		t.Fatalf("expected 12 locations, got %d", len(catalog.Locations))
	}
	if got := len(catalog.JobTitles["IT"]); got != 6 {
		t.Fatalf("expected 6 IT titles, got %d", got)
	}
	if got := len(AllJobTitles()); got != 22 {
		t.Fatalf("expected 22 distinct titles, got %d", got)
	}

	catalog.JobTitles["IT"][0] = "changed"
	if JobTitles("IT")[0] != "Data Scientist" {
		t.Fatal("catalog must not alias package state")
	}
}

func TestRecordSelectionRoundTrip(t *testing.T) {
	rec := Build(Selection{
		Industry:          "IT",
		JobTitle:          "DevOps Engineer",
		EducationLevel:    "Bachelor's",
		Location:          "Tokyo",
		CompanySize:       "Medium",
		Age:               intPtr(35),
		YearsOfExperience: intPtr(9),
	})
	if again := Build(rec.Selection()); again != rec {
		t.Fatalf("expected %+v, got %+v", rec, again)
	}
}
