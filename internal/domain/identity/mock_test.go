package identity

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diaguide/diaguide/internal/platform/apperr"
)

type mockUserRepo struct{ users map[uuid.UUID]*User }

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

type mockPatientRepo struct{ patients map[uuid.UUID]*Patient }

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (m *mockPatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperr.NotFound("patient not found")
}

func (m *mockPatientRepo) ListByDoctor(_ context.Context, medecinID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.DoctorID != nil && *p.DoctorID == medecinID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientCode < out[j].PatientCode })
	return page(out, limit, offset), len(out), nil
}

func (m *mockPatientRepo) SetDoctor(_ context.Context, patientID, medecinID uuid.UUID) error {
	p, ok := m.patients[patientID]
	if !ok {
		return apperr.NotFound("patient not found")
	}
	id := medecinID
	p.DoctorID = &id
	return nil
}

type mockMedecinRepo struct {
	medecins map[uuid.UUID]*Medecin
	// last filter passed to Search
	lastFilter DoctorFilter
}

func (m *mockMedecinRepo) Create(_ context.Context, d *Medecin) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.medecins[d.ID] = d
	return nil
}

func (m *mockMedecinRepo) GetByID(_ context.Context, id uuid.UUID) (*Medecin, error) {
	d, ok := m.medecins[id]
	if !ok {
		return nil, apperr.NotFound("doctor not found")
	}
	return d, nil
}

func (m *mockMedecinRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Medecin, error) {
	for _, d := range m.medecins {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFound("doctor not found")
}

func (m *mockMedecinRepo) List(ctx context.Context, limit, offset int) ([]*Medecin, int, error) {
	return m.Search(ctx, DoctorFilter{}, limit, offset)
}

func (m *mockMedecinRepo) Search(_ context.Context, f DoctorFilter, limit, offset int) ([]*Medecin, int, error) {
	m.lastFilter = f
	var out []*Medecin
	for _, d := range m.medecins {
		if matches(d, f) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return page(out, limit, offset), len(out), nil
}

func matches(d *Medecin, f DoctorFilter) bool {
	if f.Specialty != "" && !strings.Contains(strings.ToLower(d.Specialty), strings.ToLower(f.Specialty)) {
		return false
	}
	if f.City != "" && !strings.EqualFold(d.City, f.City) {
		return false
	}
	if len(f.Languages) > 0 {
		found := false
		for _, want := range f.Languages {
			for _, has := range d.Languages {
				if strings.EqualFold(want, has) {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if f.MinPrice != nil && d.ConsultationPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && d.ConsultationPrice > *f.MaxPrice {
		return false
	}
	return true
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type fixture struct {
	svc      *Service
	users    *mockUserRepo
	patients *mockPatientRepo
	medecins *mockMedecinRepo
}

func newFixture() *fixture {
	f := &fixture{
		users:    &mockUserRepo{users: map[uuid.UUID]*User{}},
		patients: &mockPatientRepo{patients: map[uuid.UUID]*Patient{}},
		medecins: &mockMedecinRepo{medecins: map[uuid.UUID]*Medecin{}},
	}
	f.svc = NewService(f.users, f.patients, f.medecins)
	return f
}

func (f *fixture) addPatient(code, prenom, nom string) (*User, *Patient) {
	u := &User{Email: strings.ToLower(prenom) + "@example.com", Prenom: prenom, Nom: nom, Role: RolePatient}
	f.users.Create(context.Background(), u)
	p := &Patient{UserID: u.ID, PatientCode: code, User: u}
	f.patients.Create(context.Background(), p)
	return u, p
}

func (f *fixture) addDoctor(nom, specialty, city string, price float64, langs ...string) (*User, *Medecin) {
	u := &User{Email: strings.ToLower(nom) + "@clinic.example.com", Prenom: "Dr", Nom: nom, Role: RoleMedecin}
	f.users.Create(context.Background(), u)
	m := &Medecin{UserID: u.ID, Specialty: specialty, City: city, ConsultationPrice: price, Languages: langs, User: u}
	f.medecins.Create(context.Background(), m)
	return u, m
}
