package interactions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/notification"
)

// memStore backs both fake repositories and enforces the same uniqueness
// rules as the Postgres schema.
type memStore struct {
	mu           sync.Mutex
	assignments  map[uuid.UUID]AssignmentRequest
	appointments map[uuid.UUID]AppointmentRequest
}

func newMemStore() *memStore {
	return &memStore{
		assignments:  map[uuid.UUID]AssignmentRequest{},
		appointments: map[uuid.UUID]AppointmentRequest{},
	}
}

func (m *memStore) snapshot() (map[uuid.UUID]AssignmentRequest, map[uuid.UUID]AppointmentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as := make(map[uuid.UUID]AssignmentRequest, len(m.assignments))
	for k, v := range m.assignments {
		as[k] = v
	}
	ap := make(map[uuid.UUID]AppointmentRequest, len(m.appointments))
	for k, v := range m.appointments {
		ap[k] = v
	}
	return as, ap
}

func (m *memStore) restore(as map[uuid.UUID]AssignmentRequest, ap map[uuid.UUID]AppointmentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments, m.appointments = as, ap
}

// memTx serializes transactions and rolls the store back when fn fails.
type memTx struct {
	mu    sync.Mutex
	store *memStore
	bound *fakeRegistry
}

func (t *memTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	as, ap := t.store.snapshot()
	bindings := t.bound.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(as, ap)
		t.bound.restore(bindings)
		return err
	}
	return nil
}

// -- assignments --

type memAssignments struct{ *memStore }

func (r memAssignments) Create(_ context.Context, a *AssignmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.assignments {
		if existing.PatientID == a.PatientID {
			return apperr.Conflict("you already have a pending or accepted request")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.assignments[a.ID] = *a
	return nil
}

func (r memAssignments) GetByPatient(_ context.Context, patientID uuid.UUID) (*AssignmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.PatientID == patientID {
			a := a
			return &a, nil
		}
	}
	return nil, apperr.NotFound("request not found")
}

func (r memAssignments) GetForUpdate(_ context.Context, id uuid.UUID) (*AssignmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, apperr.NotFound("request not found")
	}
	return &a, nil
}

func (r memAssignments) UpdateStatus(_ context.Context, id uuid.UUID, status AssignmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return apperr.NotFound("request not found")
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	r.assignments[id] = a
	return nil
}

func (r memAssignments) ListPendingByMedecin(_ context.Context, medecinID uuid.UUID, limit, offset int) ([]*AssignmentRequest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*AssignmentRequest
	for _, a := range r.assignments {
		if a.MedecinID == medecinID && a.Status == AssignmentPending {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), len(out), nil
}

// -- appointments --

type memAppointments struct{ *memStore }

// checkUnique mirrors the two partial unique indexes.
func (r memAppointments) checkUnique(a AppointmentRequest) error {
	for _, other := range r.appointments {
		if other.ID == a.ID {
			continue
		}
		if a.Status == AppointmentPending && other.Status == AppointmentPending &&
			other.PatientID == a.PatientID && other.MedecinID == a.MedecinID {
			return apperr.Conflict("you already have a pending appointment with this doctor")
		}
		if a.Status == AppointmentConfirmed && other.Status == AppointmentConfirmed &&
			other.MedecinID == a.MedecinID && other.Date.Equal(a.Date) {
			return apperr.Conflict("this time slot is already booked")
		}
	}
	return nil
}

func (r memAppointments) Create(_ context.Context, a *AppointmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := r.checkUnique(*a); err != nil {
		return err
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.appointments[a.ID] = *a
	return nil
}

func (r memAppointments) GetForUpdate(_ context.Context, id uuid.UUID) (*AppointmentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	return &a, nil
}

func (r memAppointments) HasPending(_ context.Context, patientID, medecinID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.PatientID == patientID && a.MedecinID == medecinID && a.Status == AppointmentPending {
			return true, nil
		}
	}
	return false, nil
}

func (r memAppointments) SlotTaken(_ context.Context, medecinID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.ID != excludeID && a.MedecinID == medecinID && a.Status == AppointmentConfirmed && a.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r memAppointments) UpdateStatus(_ context.Context, id uuid.UUID, status AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return apperr.NotFound("appointment not found")
	}
	a.Status = status
	if err := r.checkUnique(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return nil
}

func (r memAppointments) filter(keep func(AppointmentRequest) bool, less func(a, b *AppointmentRequest) bool) []*AppointmentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*AppointmentRequest
	for _, a := range r.appointments {
		if keep(a) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func dateDesc(a, b *AppointmentRequest) bool { return a.Date.After(b.Date) }
func dateAsc(a, b *AppointmentRequest) bool  { return a.Date.Before(b.Date) }

func (r memAppointments) ListByPatient(_ context.Context, patientID uuid.UUID, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	out := r.filter(func(a AppointmentRequest) bool {
		return a.PatientID == patientID && (status == "" || a.Status == status)
	}, dateDesc)
	return page(out, limit, offset), len(out), nil
}

func (r memAppointments) ListByMedecin(_ context.Context, medecinID uuid.UUID, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	out := r.filter(func(a AppointmentRequest) bool {
		return a.MedecinID == medecinID && (status == "" || a.Status == status)
	}, dateDesc)
	return page(out, limit, offset), len(out), nil
}

func (r memAppointments) ListConfirmedFrom(_ context.Context, medecinID uuid.UUID, from time.Time, limit, offset int) ([]*AppointmentRequest, int, error) {
	out := r.filter(func(a AppointmentRequest) bool {
		return a.MedecinID == medecinID && a.Status == AppointmentConfirmed && !a.Date.Before(from)
	}, dateAsc)
	return page(out, limit, offset), len(out), nil
}

func (r memAppointments) DueForReminder(_ context.Context, from, to time.Time, limit int) ([]*AppointmentRequest, error) {
	out := r.filter(func(a AppointmentRequest) bool {
		return a.Status == AppointmentConfirmed && a.RemindedAt == nil && !a.Date.Before(from) && !a.Date.After(to)
	}, dateAsc)
	return page(out, limit, 0), nil
}

func (r memAppointments) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.appointments[id]
	a.RemindedAt = &at
	r.appointments[id] = a
	return nil
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

// -- registry and notifier --

type fakeRegistry struct {
	mu       sync.Mutex
	medecins map[uuid.UUID]*identity.Medecin
	bindings map[uuid.UUID]uuid.UUID
}

func (r *fakeRegistry) GetMedecin(_ context.Context, id uuid.UUID) (*identity.Medecin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medecins[id]
	if !ok {
		return nil, apperr.NotFound("doctor not found")
	}
	return m, nil
}

func (r *fakeRegistry) BindDoctor(_ context.Context, patientID, medecinID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[patientID] = medecinID
	return nil
}

func (r *fakeRegistry) doctorOf(patientID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.bindings[patientID]
	return id, ok
}

func (r *fakeRegistry) snapshot() map[uuid.UUID]uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(r.bindings))
	for k, v := range r.bindings {
		out[k] = v
	}
	return out
}

func (r *fakeRegistry) restore(b map[uuid.UUID]uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = b
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (n *recordingNotifier) Emit(msg notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) sent() []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Message(nil), n.msgs...)
}

// -- fixture --

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *memStore
	registry *fakeRegistry
	notifier *recordingNotifier
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		registry: &fakeRegistry{medecins: map[uuid.UUID]*identity.Medecin{}, bindings: map[uuid.UUID]uuid.UUID{}},
		notifier: &recordingNotifier{},
		now:      testNow,
	}
	tx := &memTx{store: f.store, bound: f.registry}
	f.svc = NewService(memAssignments{f.store}, memAppointments{f.store}, f.registry, tx, f.notifier,
		WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) patient(prenom, nom string) *identity.PatientActor {
	u := &identity.User{ID: uuid.New(), Prenom: prenom, Nom: nom, Role: identity.RolePatient}
	return &identity.PatientActor{
		Account: u,
		Patient: &identity.Patient{ID: uuid.New(), UserID: u.ID, User: u},
	}
}

func (f *fixture) doctor(prenom, nom string) *identity.MedecinActor {
	u := &identity.User{ID: uuid.New(), Prenom: prenom, Nom: nom, Role: identity.RoleMedecin}
	m := &identity.Medecin{ID: uuid.New(), UserID: u.ID, User: u}
	f.registry.mu.Lock()
	f.registry.medecins[m.ID] = m
	f.registry.mu.Unlock()
	return &identity.MedecinActor{Account: u, Medecin: m}
}

func (f *fixture) countAppointments() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.appointments)
}

func (f *fixture) appointment(id uuid.UUID) AppointmentRequest {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.appointments[id]
}

func (f *fixture) assignment(id uuid.UUID) AssignmentRequest {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.assignments[id]
}
