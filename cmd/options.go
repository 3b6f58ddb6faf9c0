package cmd

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"salaryestimator/profile"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the choices offered by the form",
	Run: func(_ *cobra.Command, _ []string) {
		printOptions(profile.Options())
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}

func printOptions(catalog profile.Catalog) {
	pterm.DefaultSection.Println("Industries and job titles")
	industries := pterm.TableData{{"Industry", "Job Titles"}}
	for _, industry := range catalog.Industries {
		industries = append(industries, []string{industry, strings.Join(catalog.JobTitles[industry], ", ")})
	}
	pterm.DefaultTable.WithHasHeader().WithData(industries).Render()

	pterm.DefaultSection.Println("Education levels")
	education := pterm.TableData{{"Education Level", "Career Start Age"}}
	for _, level := range catalog.EducationLevels {
		education = append(education, []string{level, strconv.Itoa(catalog.CareerStartAges[level])})
	}
	pterm.DefaultTable.WithHasHeader().WithData(education).Render()

	pterm.DefaultSection.Println("Locations and company sizes")
	pterm.DefaultBulletList.WithItems(bullets(catalog.Locations)).Render()
	pterm.DefaultBulletList.WithItems(bullets(catalog.CompanySizes)).Render()

	pterm.Info.Printfln("Age %d-%d (default %d); experience runs from 0 to age minus the career start age",
		catalog.MinAge, catalog.MaxAge, catalog.DefaultAge)
}

func bullets(values []string) []pterm.BulletListItem {
	items := make([]pterm.BulletListItem, len(values))
	for i, v := range values {
		items[i] = pterm.BulletListItem{Level: 0, Text: v}
	}
	return items
}
