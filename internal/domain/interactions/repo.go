package interactions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lookups return apperr.NotFound for missing rows; inserts and status
// updates return apperr.Conflict when a uniqueness rule is violated.

type AssignmentRepository interface {
	Create(ctx context.Context, r *AssignmentRequest) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*AssignmentRequest, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*AssignmentRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AssignmentStatus) error
	ListPendingByMedecin(ctx context.Context, medecinID uuid.UUID, limit, offset int) ([]*AssignmentRequest, int, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *AppointmentRequest) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (*AppointmentRequest, error)
	HasPending(ctx context.Context, patientID, medecinID uuid.UUID) (bool, error)
	// SlotTaken reports a confirmed appointment of medecinID at exactly date,
	// ignoring excludeID.
	SlotTaken(ctx context.Context, medecinID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) error
	// ListByPatient and ListByMedecin order by date descending. An empty
	// status lists every status.
	ListByPatient(ctx context.Context, patientID uuid.UUID, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error)
	ListByMedecin(ctx context.Context, medecinID uuid.UUID, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error)
	// ListConfirmedFrom orders by date ascending.
	ListConfirmedFrom(ctx context.Context, medecinID uuid.UUID, from time.Time, limit, offset int) ([]*AppointmentRequest, int, error)
	// DueForReminder locks confirmed, unreminded appointments dated within
	// [from, to], skipping rows another sweep holds.
	DueForReminder(ctx context.Context, from, to time.Time, limit int) ([]*AppointmentRequest, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}
