package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/course-registry-api/pkg/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			applied, err := database.Migrate(cmd.Context(), rt.app.DB)
			if err != nil {
				return err
			}
			for _, name := range applied {
				color.Green("applied %s", name)
			}
			if len(applied) == 0 {
				color.Yellow("no migrations found")
			}
			return nil
		},
	}
}
