// Package sandbox generates reproducible demo data for the DiaGuide
// registry: doctors with specialties, cities, prices and languages, and
// patients with diabetes profiles.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/db"
)

// SeedConfig controls the volume of generated data. A zero Seed picks a
// time-based one.
type SeedConfig struct {
	DoctorCount  int
	PatientCount int
	Seed         int64
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{DoctorCount: 8, PatientCount: 20}
}

var (
	firstNamesMale = []string{
		"Karim", "Youssef", "Mehdi", "Omar", "Hamza", "Anas", "Rachid",
		"Said", "Hicham", "Adil", "Nabil", "Tarik", "Amine", "Reda",
	}
	firstNamesFemale = []string{
		"Salma", "Nadia", "Leila", "Imane", "Khadija", "Fatima", "Sara",
		"Hind", "Meryem", "Zineb", "Ghita", "Asmae", "Houda", "Loubna",
	}
	lastNames = []string{
		"Benali", "Idrissi", "Amrani", "Tazi", "Alaoui", "Bennani", "Kettani",
		"Chraibi", "Berrada", "Fassi", "Lahlou", "Sqalli", "Ouazzani", "Ziani",
	}
	cities = []string{
		"Rabat", "Casablanca", "Marrakech", "Fes", "Tangier", "Agadir", "Oujda",
	}
	streets = []string{
		"12 Avenue Mohammed V", "45 Boulevard Zerktouni", "7 Rue Oued Fes",
		"88 Avenue Hassan II", "3 Rue Ibn Sina", "19 Boulevard Anfa",
	}
	specialties = []string{
		"Endocrinology", "Diabetology", "Internal medicine",
		"Pediatric endocrinology", "Nutrition", "General practice",
	}
	languages = []string{"Arabic", "French", "English", "Amazigh", "Spanish"}

	diabetesTypes = []string{"type1", "type2", "gestational"}
	workingHours  = []string{"08:00-16:00", "09:00-17:00", "10:00-18:00"}
	availableDays = []string{"Mon-Fri", "Mon-Sat", "Tue-Sat"}
)

// Doctor and PatientProfile pair an account with its role profile.
type Doctor struct {
	User    *identity.User
	Medecin *identity.Medecin
}

type PatientProfile struct {
	User    *identity.User
	Patient *identity.Patient
}

// Dataset is one generated batch, not yet stored.
type Dataset struct {
	Doctors  []Doctor
	Patients []PatientProfile
}

// DataGenerator draws names and attributes from fixed pools.
type DataGenerator struct {
	rng     *rand.Rand
	counter int
}

func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// pickSome returns 1..max distinct entries of pool in pool order.
func (g *DataGenerator) pickSome(pool []string, max int) []string {
	n := 1 + g.rng.Intn(max)
	chosen := map[int]bool{}
	for len(chosen) < n {
		chosen[g.rng.Intn(len(pool))] = true
	}
	out := make([]string, 0, n)
	for i, v := range pool {
		if chosen[i] {
			out = append(out, v)
		}
	}
	return out
}

// account builds a user with an email unique within the generator.
func (g *DataGenerator) account(role identity.Role, domain string) *identity.User {
	g.counter++
	var prenom string
	if g.rng.Intn(2) == 0 {
		prenom = g.pick(firstNamesMale)
	} else {
		prenom = g.pick(firstNamesFemale)
	}
	nom := g.pick(lastNames)
	return &identity.User{
		ID:     uuid.New(),
		Email:  fmt.Sprintf("%s.%s.%d@%s", strings.ToLower(prenom), strings.ToLower(nom), g.counter, domain),
		Prenom: prenom,
		Nom:    nom,
		Role:   role,
	}
}

func (g *DataGenerator) GenerateDoctor() Doctor {
	u := g.account(identity.RoleMedecin, "clinic.example.com")
	// Prices in steps of 50 between 100 and 500.
	price := float64(100 + 50*g.rng.Intn(9))
	return Doctor{
		User: u,
		Medecin: &identity.Medecin{
			ID:                uuid.New(),
			UserID:            u.ID,
			INPE:              fmt.Sprintf("%09d", g.rng.Intn(1_000_000_000)),
			Specialty:         g.pick(specialties),
			City:              g.pick(cities),
			Address:           g.pick(streets),
			ConsultationPrice: price,
			Description:       "Diabetes follow-up and metabolic care.",
			WorkingHours:      g.pick(workingHours),
			AvailableDays:     g.pick(availableDays),
			Languages:         g.pickSome(languages, 3),
			User:              u,
		},
	}
}

func (g *DataGenerator) GeneratePatient() PatientProfile {
	u := g.account(identity.RolePatient, "example.com")
	dob := time.Date(1950+g.rng.Intn(55), time.Month(1+g.rng.Intn(12)), 1+g.rng.Intn(28), 0, 0, 0, 0, time.UTC)
	gender := "male"
	for _, n := range firstNamesFemale {
		if n == u.Prenom {
			gender = "female"
		}
	}
	weight := float64(50 + g.rng.Intn(60))
	height := float64(150 + g.rng.Intn(45))
	dtype := g.pick(diabetesTypes)
	return PatientProfile{
		User: u,
		Patient: &identity.Patient{
			ID:           uuid.New(),
			UserID:       u.ID,
			PatientCode:  fmt.Sprintf("DG-%06d", g.counter),
			DateOfBirth:  &dob,
			Gender:       &gender,
			Weight:       &weight,
			Height:       &height,
			DiabetesType: &dtype,
			User:         u,
		},
	}
}

// Seeder generates a Dataset and stores it through the registry
// repositories.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
	logger    zerolog.Logger
}

func NewSeeder(config SeedConfig, logger zerolog.Logger) *Seeder {
	return &Seeder{
		generator: NewDataGenerator(config.Seed),
		config:    config,
		logger:    logger,
	}
}

func (s *Seeder) Generate() *Dataset {
	ds := &Dataset{}
	for i := 0; i < s.config.DoctorCount; i++ {
		ds.Doctors = append(ds.Doctors, s.generator.GenerateDoctor())
	}
	for i := 0; i < s.config.PatientCount; i++ {
		ds.Patients = append(ds.Patients, s.generator.GeneratePatient())
	}
	return ds
}

// Repositories groups the writers Load needs.
type Repositories struct {
	Users    identity.UserRepository
	Patients identity.PatientRepository
	Medecins identity.MedecinRepository
}

// Load stores ds in a single transaction.
func (s *Seeder) Load(ctx context.Context, tx db.TxRunner, repos Repositories, ds *Dataset) error {
	err := tx.InTx(ctx, func(ctx context.Context) error {
		for _, d := range ds.Doctors {
			if err := repos.Users.Create(ctx, d.User); err != nil {
				return fmt.Errorf("create doctor account %s: %w", d.User.Email, err)
			}
			if err := repos.Medecins.Create(ctx, d.Medecin); err != nil {
				return fmt.Errorf("create doctor profile %s: %w", d.User.Email, err)
			}
		}
		for _, p := range ds.Patients {
			if err := repos.Users.Create(ctx, p.User); err != nil {
				return fmt.Errorf("create patient account %s: %w", p.User.Email, err)
			}
			if err := repos.Patients.Create(ctx, p.Patient); err != nil {
				return fmt.Errorf("create patient profile %s: %w", p.User.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int("doctors", len(ds.Doctors)).Int("patients", len(ds.Patients)).Msg("demo data seeded")
	return nil
}
