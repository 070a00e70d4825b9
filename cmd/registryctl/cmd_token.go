package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the registrar routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			tokens := service.NewTokenService(service.TokenConfig{
				Secret:     cfg.JWT.Secret,
				Issuer:     cfg.JWT.Issuer,
				Expiration: cfg.JWT.Expiration,
			})
			token, expiresAt, err := tokens.Issue(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			color.Cyan("expires %s", expiresAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringVar(&role, "role", models.RoleRegistrar, "token role")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
