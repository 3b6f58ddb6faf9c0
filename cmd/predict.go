package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"salaryestimator/ml"
	"salaryestimator/profile"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate a salary once from flags or interactive prompts",
	Example: `  salary-estimator predict --industry IT --job-title "Data Scientist" --education-level "Master's" \
    --location Bangalore --company-size Large --age 30 --years-of-experience 5
  salary-estimator predict --interactive`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return predict(cmd)
	},
}

// selectionFlags are named after the selection keys with dashes.
var selectionFlags = []struct {
	name  string
	usage string
}{
	{"industry", "industry"},
	{"job-title", "job title; falls back to the industry's first title when it does not offer it"},
	{"education-level", "education level"},
	{"location", "location"},
	{"company-size", "company size"},
	{"age", "age in years (18-65)"},
	{"years-of-experience", "years of experience, clamped to what age and education allow"},
}

func init() {
	rootCmd.AddCommand(predictCmd)

	for _, f := range selectionFlags {
		predictCmd.Flags().String(f.name, "", f.usage)
	}
	predictCmd.Flags().BoolP("interactive", "i", false, "choose every field with prompts, like the web form")
	predictCmd.Flags().Bool("explain", false, "print the encoded, scaled and ordered feature vector")
}

func predict(cmd *cobra.Command) error {
	cfg, logger := setup(nil)
	defer logger.Sync()

	pipeline, err := loadPipeline(cfg, logger)
	if err != nil {
		logger.Fatal("loading artifacts", zap.Error(err))
	}

	var sel profile.Selection
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		sel, err = promptSelection()
	} else {
		sel, err = flagSelection(cmd.Flags())
	}
	if err != nil {
		return err
	}

	rec := profile.Build(sel)
	printInput(rec)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	trace, err := pipeline.Explain(ctx, rec)
	if err != nil {
		var unknown *ml.UnknownCategoryError
		if errors.As(err, &unknown) {
			pterm.Error.Printfln("%s %q is not known to model %s", unknown.Column, unknown.Value, pipeline.Version())
		}
		return err
	}

	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		printTrace(trace)
	}
	pterm.Success.Printfln("Predicted salary: %s", trace.Estimate.Format())
	return nil
}

// flagSelection overlays the flags that were set onto the form defaults.
func flagSelection(flags *pflag.FlagSet) (profile.Selection, error) {
	input := make(map[string]interface{})
	for _, f := range selectionFlags {
		flag := flags.Lookup(f.name)
		if flag == nil || !flag.Changed {
			continue
		}
		input[strings.ReplaceAll(f.name, "-", "_")] = flag.Value.String()
	}
	return profile.Decode(profile.Defaults(), input)
}

// promptSelection walks the same widgets as the form, in the same order, so
// that the job titles and the experience bounds follow earlier answers.
func promptSelection() (profile.Selection, error) {
	var sel profile.Selection
	var err error

	if sel.Industry, err = choose("Industry", profile.Industries()); err != nil {
		return sel, err
	}
	if sel.JobTitle, err = choose("Job Title", profile.JobTitles(sel.Industry)); err != nil {
		return sel, err
	}
	if sel.EducationLevel, err = choose("Education Level", profile.EducationLevels); err != nil {
		return sel, err
	}
	if sel.Location, err = choose("Location", profile.Locations); err != nil {
		return sel, err
	}
	if sel.CompanySize, err = choose("Company Size", profile.CompanySizes); err != nil {
		return sel, err
	}

	ages := profile.Range{Min: profile.MinAge, Max: profile.MaxAge, Default: profile.DefaultAge}
	age, err := askInt("Age", ages)
	if err != nil {
		return sel, err
	}
	sel.Age = &age

	years, err := askInt("Years of Experience", profile.ExperienceRange(age, sel.EducationLevel))
	if err != nil {
		return sel, err
	}
	sel.YearsOfExperience = &years
	return sel, nil
}

func choose(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  12,
	}
	_, value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("choosing %s: %w", strings.ToLower(label), err)
	}
	return value, nil
}

func askInt(label string, bounds profile.Range) (int, error) {
	if bounds.Max == bounds.Min {
		pterm.Info.Printfln("%s: %d (the only allowed value)", label, bounds.Min)
		return bounds.Min, nil
	}

	prompt := promptui.Prompt{
		Label:   fmt.Sprintf("%s (%d-%d)", label, bounds.Min, bounds.Max),
		Default: strconv.Itoa(bounds.Default),
		Validate: func(input string) error {
			v, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil {
				return errors.New("enter a whole number")
			}
			if v < bounds.Min || v > bounds.Max {
				return fmt.Errorf("must be between %d and %d", bounds.Min, bounds.Max)
			}
			return nil
		},
	}
	value, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("asking %s: %w", strings.ToLower(label), err)
	}
	return strconv.Atoi(strings.TrimSpace(value))
}

func printInput(rec profile.Record) {
	pterm.DefaultSection.Println("Your Input Details")
	data := pterm.TableData{
		{"Field", "Value"},
		{"Industry", rec.Industry},
		{"Job Title", rec.JobTitle},
		{"Education Level", rec.EducationLevel},
		{"Location", rec.Location},
		{"Company Size", rec.CompanySize},
		{"Age", strconv.Itoa(rec.Age)},
		{"Years of Experience", strconv.Itoa(rec.YearsOfExperience)},
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printTrace(trace *ml.Trace) {
	pterm.DefaultSection.Println("Feature Vector")
	data := append(pterm.TableData{{"#", "Column", "Label", "Encoded", "Scaled"}}, traceRows(trace)...)
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// traceRows lists the vector in feature order. Categorical codes are shown
// with the class they decode to.
func traceRows(trace *ml.Trace) [][]string {
	rows := make([][]string, 0, len(trace.Columns))
	for i, column := range trace.Columns {
		label, ok := trace.Labels[column]
		if !ok {
			label = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			column,
			label,
			strconv.FormatFloat(trace.Encoded[column], 'g', -1, 64),
			strconv.FormatFloat(trace.Vector[i], 'g', 6, 64),
		})
	}
	return rows
}
