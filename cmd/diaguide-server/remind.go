package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send reminders for upcoming confirmed appointments once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.interactions.RemindDue(ctx, cfg.ReminderLeadTime)
			if err != nil {
				return err
			}
			fmt.Printf("Sent %d reminder(s)\n", n)
			return nil
		},
	}
}
