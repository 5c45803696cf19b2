package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/auth"
)

func tokenCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a registered user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			key, err := cfg.SigningKey()
			if err != nil {
				return err
			}
			if key == nil {
				return fmt.Errorf("JWT_SIGNING_KEY is required to issue tokens")
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			u, err := lookupUser(ctx, identity.NewUserRepoPG(pool), user)
			if err != nil {
				return err
			}

			signed, err := auth.IssueToken(auth.Config{
				Issuer:     cfg.AuthIssuer,
				Audience:   cfg.AuthAudience,
				SigningKey: key,
			}, u.ID.String(), u.Email, ttl)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id or email")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// lookupUser accepts either a user id or an email address.
func lookupUser(ctx context.Context, users identity.UserRepository, ref string) (*identity.User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return users.GetByID(ctx, id)
	}
	return users.GetByEmail(ctx, ref)
}
