package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
)

func enrollCmd() *cobra.Command {
	var (
		studentID int64
		courseID  int64
		status    string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a student, or run a YAML batch of enrollment requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			var reqs []service.EnrollRequest
			switch {
			case file != "":
				loaded, err := readEnrollBatch(file)
				if err != nil {
					return err
				}
				reqs = loaded
			case studentID > 0 && courseID > 0:
				reqs = []service.EnrollRequest{{StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatus(status)}}
			default:
				return errors.New("either --file or both --student and --course are required")
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			results, batchErr := rt.app.Enrollments.EnrollBatch(cmd.Context(), reqs)
			printEnrollResults(results)
			return batchErr
		},
	}

	cmd.Flags().Int64Var(&studentID, "student", 0, "student id")
	cmd.Flags().Int64Var(&courseID, "course", 0, "course id")
	cmd.Flags().StringVar(&status, "status", string(models.EnrollmentStatusActive), "Active, WaitList or Complete")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML list of {student_id, course_id, status}")
	return cmd
}

func readEnrollBatch(path string) ([]service.EnrollRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()

	var reqs []service.EnrollRequest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&reqs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	return reqs, nil
}

func printEnrollResults(results []service.BatchEnrollResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Student", "Course", "Result", "Detail"})

	admitted, rejected, failed := 0, 0, 0
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Index),
			strconv.FormatInt(r.Request.StudentID, 10),
			strconv.FormatInt(r.Request.CourseID, 10),
		}
		switch {
		case r.Error != "":
			failed++
			row = append(row, "error", r.Error)
		case r.Outcome != nil && r.Outcome.Admitted:
			admitted++
			row = append(row, "admitted", string(r.Outcome.Enrollment.Status))
		default:
			rejected++
			detail := ""
			if r.Outcome != nil && r.Outcome.UnmetPrerequisiteID != nil {
				detail = "missing prerequisite " + strconv.FormatInt(*r.Outcome.UnmetPrerequisiteID, 10)
			}
			row = append(row, "rejected", detail)
		}
		table.Append(row)
	}
	table.Render()

	summary := fmt.Sprintf("%d admitted, %d rejected, %d failed", admitted, rejected, failed)
	if failed > 0 {
		color.Red("%s", summary)
		return
	}
	color.Green("%s", summary)
}
