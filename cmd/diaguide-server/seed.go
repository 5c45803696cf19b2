package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/db"
	"github.com/diaguide/diaguide/internal/platform/sandbox"
)

func seedCmd() *cobra.Command {
	sc := sandbox.DefaultSeedConfig()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo doctors and patients into the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if sc.Seed == 0 {
				sc.Seed = time.Now().UnixNano()
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			seeder := sandbox.NewSeeder(sc, logger)
			ds := seeder.Generate()
			repos := sandbox.Repositories{
				Users:    identity.NewUserRepoPG(pool),
				Patients: identity.NewPatientRepoPG(pool),
				Medecins: identity.NewMedecinRepoPG(pool),
			}
			if err := seeder.Load(ctx, db.NewTxRunner(pool), repos, ds); err != nil {
				return err
			}

			fmt.Printf("%-8s %-36s %s\n", "ROLE", "USER ID", "EMAIL")
			for _, d := range ds.Doctors {
				fmt.Printf("%-8s %-36s %s\n", d.User.Role, d.User.ID, d.User.Email)
			}
			for _, p := range ds.Patients {
				fmt.Printf("%-8s %-36s %s\n", p.User.Role, p.User.ID, p.User.Email)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sc.DoctorCount, "doctors", sc.DoctorCount, "number of doctors")
	cmd.Flags().IntVar(&sc.PatientCount, "patients", sc.PatientCount, "number of patients")
	cmd.Flags().Int64Var(&sc.Seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}
