package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
)

func importCmd() *cobra.Command {
	var (
		file       string
		year       int
		term       string
		codeTokens int
		dryRun     bool
		issuesOut  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a catalog CSV export synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer f.Close()

			params := service.ImportParams{
				Year:       year,
				Term:       term,
				CodeTokens: codeTokens,
				DryRun:     dryRun,
			}
			if params.Year == 0 {
				params.Year = rt.cfg.Catalog.Year
			}
			if params.Term == "" {
				params.Term = rt.cfg.Catalog.Term
			}
			if params.CodeTokens == 0 {
				params.CodeTokens = rt.cfg.Catalog.CodeTokens
			}

			report, importErr := rt.app.Catalog.Import(cmd.Context(), f, params)
			if report != nil {
				printImportReport(report, dryRun)
				if issuesOut != "" {
					body, err := rt.app.Catalog.IssuesCSV(report)
					if err != nil {
						return err
					}
					if err := os.WriteFile(issuesOut, body, 0o644); err != nil {
						return fmt.Errorf("write issues: %w", err)
					}
					color.Cyan("issues written to %s", issuesOut)
				}
			}
			return importErr
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog CSV export")
	cmd.Flags().IntVar(&year, "year", 0, "catalog year (defaults to CATALOG_YEAR)")
	cmd.Flags().StringVar(&term, "term", "", "catalog term (defaults to CATALOG_TERM)")
	cmd.Flags().IntVar(&codeTokens, "code-tokens", 0, "leading tokens of the first field that form the course code (1 or 2)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	cmd.Flags().StringVar(&issuesOut, "issues", "", "write the issue report CSV to this path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printImportReport(report *models.ImportReport, dryRun bool) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Year / term", fmt.Sprintf("%d %s", report.Year, report.Term)})
	table.Append([]string{"Rows read", strconv.Itoa(report.RowsRead)})
	table.Append([]string{"Department headings", strconv.Itoa(report.Headings)})
	table.Append([]string{"Courses emitted", strconv.Itoa(report.CoursesEmitted)})
	table.Append([]string{"Courses inserted", strconv.Itoa(report.CoursesInserted)})

	reasons := make([]string, 0, len(report.Skipped))
	for reason := range report.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		table.Append([]string{"Skipped: " + reason, strconv.Itoa(report.Skipped[reason])})
	}
	table.Append([]string{"Storage failures", strconv.Itoa(report.StorageFailures)})
	table.Append([]string{"Warnings", strconv.Itoa(report.Warnings)})
	table.Render()

	switch {
	case report.Cancelled:
		color.Yellow("import cancelled after %d rows", report.RowsRead)
	case report.Aborted:
		color.Red("import aborted after %d rows", report.RowsRead)
	case dryRun:
		color.Yellow("dry run: nothing was written")
	case report.StorageFailures > 0:
		color.Yellow("import finished with %d storage failures", report.StorageFailures)
	default:
		color.Green("import finished")
	}
}
