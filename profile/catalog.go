package profile

type industryTitles struct {
	industry string
	titles   []string
}

// industryJobTitles keeps display order; the first entry is the form default.
var industryJobTitles = []industryTitles{
	{"Retail", []string{"Sales Associate", "Marketing Manager"}},
	{"Manufacturing", []string{"Plant Supervisor", "Quality Analyst"}},
	{"IT", []string{"Data Scientist", "Software Engineer", "DevOps Engineer", "Business Analyst", "Project Manager", "Data Analyst"}},
	{"Consulting", []string{"Business Analyst", "Project Manager"}},
	{"Healthcare", []string{"Nurse", "Doctor", "Medical Assistant"}},
	{"Legal", []string{"Paralegal", "Legal Advisor"}},
	{"Education", []string{"Teacher", "Professor"}},
	{"Marketing", []string{"Digital Marketer", "SEO Specialist", "Graphic Designer", "Marketing Manager"}},
	{"Finance", []string{"Financial Analyst", "Business Analyst", "Accountant"}},
}

var careerStartAges = map[string]int{
	"High School": 18,
	"Bachelor's":  21,
	"Master's":    23,
	"PhD":         27,
}

var (
	EducationLevels = []string{"High School", "Bachelor's", "Master's", "PhD"}
	CompanySizes    = []string{"Small", "Medium", "Large"}
	Locations       = []string{
		"Chicago", "Dallas", "Bangalore", "Tokyo", "Atlanta", "Delhi",
		"Sydney", "London", "Austin", "Paris", "San Francisco", "New York",
	}
)

func Industries() []string {
	out := make([]string, len(industryJobTitles))
	for i, entry := range industryJobTitles {
		out[i] = entry.industry
	}
	return out
}

// AllJobTitles lists every title offered by some industry, first occurrence order.
func AllJobTitles() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 24)
	for _, entry := range industryJobTitles {
		for _, title := range entry.titles {
			if seen[title] {
				continue
			}
			seen[title] = true
			out = append(out, title)
		}
	}
	return out
}

// Catalog describes every widget of the profile form.
type Catalog struct {
	Industries      []string            `json:"industries"`
	JobTitles       map[string][]string `json:"job_titles"`
	EducationLevels []string            `json:"education_levels"`
	CareerStartAges map[string]int      `json:"career_start_ages"`
	Locations       []string            `json:"locations"`
	CompanySizes    []string            `json:"company_sizes"`
	MinAge          int                 `json:"min_age"`
	MaxAge          int                 `json:"max_age"`
	DefaultAge      int                 `json:"default_age"`
}

func Options() Catalog {
	jobs := make(map[string][]string, len(industryJobTitles))
	for _, entry := range industryJobTitles {
		jobs[entry.industry] = append([]string(nil), entry.titles...)
	}
	starts := make(map[string]int, len(careerStartAges))
	for k, v := range careerStartAges {
		starts[k] = v
	}
	return Catalog{
		Industries:      Industries(),
		JobTitles:       jobs,
		EducationLevels: append([]string(nil), EducationLevels...),
		CareerStartAges: starts,
		Locations:       append([]string(nil), Locations...),
		CompanySizes:    append([]string(nil), CompanySizes...),
		MinAge:          MinAge,
		MaxAge:          MaxAge,
		DefaultAge:      DefaultAge,
	}
}
