package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/ashureev/classpulse/internal/store"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var (
		down   bool
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if down && status {
				return errors.New("--down and --status are mutually exclusive")
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			db, dialect, err := store.Connect(cmd.Context(), store.Options{
				Driver: cfg.DB.Driver,
				Path:   cfg.DB.Path,
				URL:    cfg.DB.URL,
			})
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			switch {
			case down:
				err = store.MigrateDown(db, dialect)
			case !status:
				err = store.Migrate(db, dialect)
			}
			if err != nil {
				return err
			}

			version, dirty, err := store.MigrationVersion(db, dialect)
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintf(cmd.OutOrStdout(), "dialect: %s\nversion: none\n", dialect)
				return nil
			}
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dialect: %s\nversion: %d\ndirty: %t\n", dialect, version, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back every migration (all data is lost)")
	cmd.Flags().BoolVar(&status, "status", false, "only print the current version")
	return cmd
}
