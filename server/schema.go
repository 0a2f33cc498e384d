package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/canvas/postgres"
)

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(
		schemaOp("create", "Create the canvas tables", "schema created", func(s *postgres.PGStore, c *cobra.Command) error {
			return s.CreateSchema(c.Context())
		}),
		schemaOp("drop", "Drop the canvas tables", "schema dropped", func(s *postgres.PGStore, c *cobra.Command) error {
			return s.DropSchema(c.Context())
		}),
	)
	return cmd
}

func schemaOp(use, short, done string, fn func(*postgres.PGStore, *cobra.Command) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is not set")
			}
			pool, err := postgres.Connect(cmd.Context(), cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := fn(postgres.New(pool), cmd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}
