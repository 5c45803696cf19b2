package identity

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return apperr.NotFound when the row does not exist.

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	ListByDoctor(ctx context.Context, medecinID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	SetDoctor(ctx context.Context, patientID, medecinID uuid.UUID) error
}

type MedecinRepository interface {
	Create(ctx context.Context, m *Medecin) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medecin, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Medecin, error)
	List(ctx context.Context, limit, offset int) ([]*Medecin, int, error)
	Search(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Medecin, int, error)
}
