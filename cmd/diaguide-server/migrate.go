package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/diaguide/diaguide/internal/platform/db"
	"github.com/diaguide/diaguide/migrations"
)

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openMigrator(dir)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := m.Up(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", n)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openMigrator(dir)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := m.Status(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func openMigrator(dir string) (*db.Migrator, func(), error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := openPool(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	var fsys fs.FS = migrations.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	return db.NewMigrator(pool, fsys), pool.Close, nil
}
