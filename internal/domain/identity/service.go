package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/diaguide/diaguide/internal/platform/apperr"
)

// Service is the read side of the user registry plus the single write the
// interaction workflow needs, BindDoctor.
type Service struct {
	users    UserRepository
	patients PatientRepository
	medecins MedecinRepository
}

func NewService(users UserRepository, patients PatientRepository, medecins MedecinRepository) *Service {
	return &Service{users: users, patients: patients, medecins: medecins}
}

// ResolveActor loads userID's account and the profile matching its role.
func (s *Service) ResolveActor(ctx context.Context, userID uuid.UUID) (Actor, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch u.Role {
	case RolePatient:
		p, err := s.patients.GetByUserID(ctx, u.ID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Forbidden("account has no patient profile")
			}
			return nil, err
		}
		return &PatientActor{Account: u, Patient: p}, nil
	case RoleMedecin:
		m, err := s.medecins.GetByUserID(ctx, u.ID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Forbidden("account has no doctor profile")
			}
			return nil, err
		}
		return &MedecinActor{Account: u, Medecin: m}, nil
	default:
		return nil, apperr.Forbidden("unsupported role %q", u.Role)
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetMedecin(ctx context.Context, id uuid.UUID) (*Medecin, error) {
	return s.medecins.GetByID(ctx, id)
}

// BindDoctor makes medecinID the patient's doctor of record.
func (s *Service) BindDoctor(ctx context.Context, patientID, medecinID uuid.UUID) error {
	return s.patients.SetDoctor(ctx, patientID, medecinID)
}

func (s *Service) SearchDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Medecin, int, error) {
	f.Specialty = strings.TrimSpace(f.Specialty)
	f.City = strings.TrimSpace(f.City)

	langs := f.Languages[:0:0]
	for _, l := range f.Languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	f.Languages = langs

	if f.MinPrice != nil && *f.MinPrice < 0 {
		return nil, 0, apperr.InvalidInput("min_price must not be negative")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return nil, 0, apperr.InvalidInput("max_price must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, apperr.InvalidInput("min_price must not exceed max_price")
	}
	return s.medecins.Search(ctx, f, limit, offset)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Medecin, int, error) {
	return s.medecins.List(ctx, limit, offset)
}

// ListMyPatients returns the patients bound to the calling doctor.
func (s *Service) ListMyPatients(ctx context.Context, actor Actor, limit, offset int) ([]*Patient, int, error) {
	doc, ok := actor.(*MedecinActor)
	if !ok {
		return nil, 0, apperr.Forbidden("only doctors can list their patients")
	}
	return s.patients.ListByDoctor(ctx, doc.Medecin.ID, limit, offset)
}
