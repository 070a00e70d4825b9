package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/noah-isme/course-registry-api/internal/service"
)

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load students, prerequisites and enrollments from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed: %w", err)
			}
			defer f.Close()

			seed, err := service.ParseSeed(f)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			report, applyErr := rt.app.Seeds.Apply(cmd.Context(), seed)
			if report != nil {
				printSeedReport(report)
			}
			return applyErr
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printSeedReport(report *service.SeedReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Students created", strconv.Itoa(report.StudentsCreated)})
	table.Append([]string{"Students existing", strconv.Itoa(report.StudentsExisting)})
	table.Append([]string{"Prerequisites added", strconv.Itoa(report.PrerequisitesAdded)})
	table.Append([]string{"Enrollments admitted", strconv.Itoa(report.EnrollmentsAdmitted)})
	table.Append([]string{"Enrollments rejected", strconv.Itoa(report.EnrollmentsRejected)})
	table.Render()

	for _, failure := range report.Failures {
		color.Red("%s[%d]: %s", failure.Section, failure.Index, failure.Error)
	}
	if len(report.Failures) == 0 {
		color.Green("seed applied")
	}
}
