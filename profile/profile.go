// Package profile derives the employee profile a salary estimate is made for.
//
// Widget options, the industry to job title constraint and the experience
// bounds all live here so that every presentation shell (web form, websocket,
// CLI prompts) offers exactly the same choices.
package profile

const (
	MinAge     = 18
	MaxAge     = 65
	DefaultAge = 30
)

// Record is one row of model input. It is built per request and never stored.
type Record struct {
	JobTitle          string `json:"Job_Title"`
	Industry          string `json:"Industry"`
	EducationLevel    string `json:"Education_Level"`
	YearsOfExperience int    `json:"Years_of_Experience"`
	Age               int    `json:"Age"`
	Location          string `json:"Location"`
	CompanySize       string `json:"Company_Size"`
}

// Selection is what a user picked. Numeric fields are optional and clamped by
// Build: an absent Age means DefaultAge, an absent YearsOfExperience min(1, max).
type Selection struct {
	Industry          string `json:"industry" mapstructure:"industry"`
	JobTitle          string `json:"job_title" mapstructure:"job_title"`
	EducationLevel    string `json:"education_level" mapstructure:"education_level"`
	Location          string `json:"location" mapstructure:"location"`
	CompanySize       string `json:"company_size" mapstructure:"company_size"`
	Age               *int   `json:"age,omitempty" mapstructure:"age"`
	YearsOfExperience *int   `json:"years_of_experience,omitempty" mapstructure:"years_of_experience"`
}

// Range is the allowed interval for Years_of_Experience.
type Range struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func CareerStartAge(education string) int {
	if age, ok := careerStartAges[education]; ok {
		return age
	}
	return MinAge
}

func ExperienceRange(age int, education string) Range {
	maxExp := clampAge(age) - CareerStartAge(education)
	if maxExp < 0 {
		maxExp = 0
	}
	return Range{Min: 0, Max: maxExp, Default: min(1, maxExp)}
}

func JobTitles(industry string) []string {
	for _, entry := range industryJobTitles {
		if entry.industry == industry {
			return append([]string(nil), entry.titles...)
		}
	}
	return nil
}

func Defaults() Selection {
	industry := industryJobTitles[0].industry
	return Selection{
		Industry:       industry,
		JobTitle:       industryJobTitles[0].titles[0],
		EducationLevel: EducationLevels[0],
		Location:       Locations[0],
		CompanySize:    CompanySizes[0],
		Age:            intPtr(DefaultAge),
	}
}

// Build turns a selection into a Record. Out of range input is clamped rather
// than rejected; category strings are passed through untouched so the encoder
// can reject values it was never trained on.
func Build(sel Selection) Record {
	age := DefaultAge
	if sel.Age != nil {
		age = clampAge(*sel.Age)
	}

	bounds := ExperienceRange(age, sel.EducationLevel)
	years := bounds.Default
	if sel.YearsOfExperience != nil {
		years = bounds.Clamp(*sel.YearsOfExperience)
	}

	return Record{
		JobTitle:          resolveJobTitle(sel.Industry, sel.JobTitle),
		Industry:          sel.Industry,
		EducationLevel:    sel.EducationLevel,
		YearsOfExperience: years,
		Age:               age,
		Location:          sel.Location,
		CompanySize:       sel.CompanySize,
	}
}

// Selection returns the selection that rebuilds r.
func (r Record) Selection() Selection {
	age, years := r.Age, r.YearsOfExperience
	return Selection{
		Industry:          r.Industry,
		JobTitle:          r.JobTitle,
		EducationLevel:    r.EducationLevel,
		Location:          r.Location,
		CompanySize:       r.CompanySize,
		Age:               &age,
		YearsOfExperience: &years,
	}
}

// resolveJobTitle mimics a select box whose options changed: a title the
// industry does not offer falls back to the first one that it does.
func resolveJobTitle(industry, title string) string {
	titles := JobTitles(industry)
	if len(titles) == 0 {
		return title
	}
	for _, t := range titles {
		if t == title {
			return title
		}
	}
	return titles[0]
}

func intPtr(v int) *int { return &v }

func clampAge(age int) int {
	if age < MinAge {
		return MinAge
	}
	if age > MaxAge {
		return MaxAge
	}
	return age
}
