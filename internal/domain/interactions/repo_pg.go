package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/db"
)

// Both parties' names and account ids come from the same joins.
const partyJoins = `
	JOIN patient p ON p.id = r.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN medecin m ON m.id = r.medecin_id
	JOIN users mu ON mu.id = m.user_id`

const partyCols = `pu.id, pu.nom, pu.prenom, mu.id, mu.nom, mu.prenom`

// =========== Assignment requests ===========

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

const assignmentSelect = `SELECT r.id, r.patient_id, r.medecin_id, r.status, r.created_at, r.updated_at, ` +
	partyCols + ` FROM assignment_request r` + partyJoins

func scanAssignment(row pgx.Row) (*AssignmentRequest, error) {
	var r AssignmentRequest
	err := row.Scan(&r.ID, &r.PatientID, &r.MedecinID, (*string)(&r.Status), &r.CreatedAt, &r.UpdatedAt,
		&r.PatientUserID, &r.PatientNom, &r.PatientPrenom, &r.MedecinUserID, &r.MedecinNom, &r.MedecinPrenom)
	return &r, err
}

func (repo *assignmentRepoPG) Create(ctx context.Context, r *AssignmentRequest) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := db.Conn(ctx, repo.pool).QueryRow(ctx, `
		INSERT INTO assignment_request (id, patient_id, medecin_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		r.ID, r.PatientID, r.MedecinID, string(r.Status)).Scan(&r.CreatedAt, &r.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("you already have a pending or accepted request")
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("doctor not found")
	}
	if err != nil {
		return fmt.Errorf("insert assignment request: %w", err)
	}
	return nil
}

func (repo *assignmentRepoPG) get(ctx context.Context, sql string, arg interface{}) (*AssignmentRequest, error) {
	r, err := scanAssignment(db.Conn(ctx, repo.pool).QueryRow(ctx, sql, arg))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment request: %w", err)
	}
	return r, nil
}

func (repo *assignmentRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*AssignmentRequest, error) {
	return repo.get(ctx, assignmentSelect+` WHERE r.patient_id = $1`, patientID)
}

func (repo *assignmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*AssignmentRequest, error) {
	return repo.get(ctx, assignmentSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id)
}

func (repo *assignmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status AssignmentStatus) error {
	tag, err := db.Conn(ctx, repo.pool).Exec(ctx,
		`UPDATE assignment_request SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update assignment request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("request not found")
	}
	return nil
}

func (repo *assignmentRepoPG) ListPendingByMedecin(ctx context.Context, medecinID uuid.UUID, limit, offset int) ([]*AssignmentRequest, int, error) {
	q := db.Conn(ctx, repo.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM assignment_request WHERE medecin_id = $1 AND status = 'pending'`,
		medecinID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assignment requests: %w", err)
	}

	rows, err := q.Query(ctx, assignmentSelect+`
		WHERE r.medecin_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC, r.id LIMIT $2 OFFSET $3`, medecinID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list assignment requests: %w", err)
	}
	defer rows.Close()

	items := []*AssignmentRequest{}
	for rows.Next() {
		r, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan assignment request: %w", err)
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

// =========== Appointment requests ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const appointmentSelect = `SELECT r.id, r.patient_id, r.medecin_id, r.date, r.reason, r.status, r.reminded_at,
	r.created_at, r.updated_at, ` + partyCols + ` FROM appointment_request r` + partyJoins

func scanAppointment(row pgx.Row) (*AppointmentRequest, error) {
	var a AppointmentRequest
	err := row.Scan(&a.ID, &a.PatientID, &a.MedecinID, &a.Date, &a.Reason, (*string)(&a.Status), &a.RemindedAt,
		&a.CreatedAt, &a.UpdatedAt,
		&a.PatientUserID, &a.PatientNom, &a.PatientPrenom, &a.MedecinUserID, &a.MedecinNom, &a.MedecinPrenom)
	return &a, err
}

// appointmentConflict names the violated partial index.
func appointmentConflict(err error) error {
	switch db.ConstraintName(err) {
	case "appointment_request_slot_confirmed":
		return apperr.Conflict("this time slot is already booked")
	default:
		return apperr.Conflict("you already have a pending appointment with this doctor")
	}
}

func (repo *appointmentRepoPG) Create(ctx context.Context, a *AppointmentRequest) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := db.Conn(ctx, repo.pool).QueryRow(ctx, `
		INSERT INTO appointment_request (id, patient_id, medecin_id, date, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.MedecinID, a.Date, a.Reason, string(a.Status)).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return appointmentConflict(err)
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("doctor not found")
	}
	if err != nil {
		return fmt.Errorf("insert appointment request: %w", err)
	}
	return nil
}

func (repo *appointmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*AppointmentRequest, error) {
	a, err := scanAppointment(db.Conn(ctx, repo.pool).QueryRow(ctx, appointmentSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment request: %w", err)
	}
	return a, nil
}

func (repo *appointmentRepoPG) HasPending(ctx context.Context, patientID, medecinID uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, repo.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointment_request
			WHERE patient_id = $1 AND medecin_id = $2 AND status = 'pending')`,
		patientID, medecinID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending appointment: %w", err)
	}
	return exists, nil
}

func (repo *appointmentRepoPG) SlotTaken(ctx context.Context, medecinID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, repo.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointment_request
			WHERE medecin_id = $1 AND date = $2 AND status = 'confirmed' AND id <> $3)`,
		medecinID, date, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appointment slot: %w", err)
	}
	return exists, nil
}

func (repo *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) error {
	tag, err := db.Conn(ctx, repo.pool).Exec(ctx,
		`UPDATE appointment_request SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if db.IsUniqueViolation(err) {
		return appointmentConflict(err)
	}
	if err != nil {
		return fmt.Errorf("update appointment request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (repo *appointmentRepoPG) list(ctx context.Context, where, order string, args []interface{}, limit, offset int) ([]*AppointmentRequest, int, error) {
	q := db.Conn(ctx, repo.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM appointment_request r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointment requests: %w", err)
	}

	args = append(args, limit, offset)
	sql := fmt.Sprintf(`%s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		appointmentSelect, where, order, len(args)-1, len(args))
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointment requests: %w", err)
	}
	defer rows.Close()

	items := []*AppointmentRequest{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment request: %w", err)
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// statusClause appends an optional status filter to a single-argument
// WHERE clause.
func statusClause(where string, args []interface{}, status AppointmentStatus) (string, []interface{}) {
	if status == "" {
		return where, args
	}
	args = append(args, string(status))
	return fmt.Sprintf("%s AND r.status = $%d", where, len(args)), args
}

func (repo *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	where, args := statusClause(`r.patient_id = $1`, []interface{}{patientID}, status)
	return repo.list(ctx, where, `r.date DESC, r.id`, args, limit, offset)
}

func (repo *appointmentRepoPG) ListByMedecin(ctx context.Context, medecinID uuid.UUID, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	where, args := statusClause(`r.medecin_id = $1`, []interface{}{medecinID}, status)
	return repo.list(ctx, where, `r.date DESC, r.id`, args, limit, offset)
}

func (repo *appointmentRepoPG) ListConfirmedFrom(ctx context.Context, medecinID uuid.UUID, from time.Time, limit, offset int) ([]*AppointmentRequest, int, error) {
	return repo.list(ctx, `r.medecin_id = $1 AND r.status = 'confirmed' AND r.date >= $2`, `r.date ASC, r.id`,
		[]interface{}{medecinID, from}, limit, offset)
}

func (repo *appointmentRepoPG) DueForReminder(ctx context.Context, from, to time.Time, limit int) ([]*AppointmentRequest, error) {
	rows, err := db.Conn(ctx, repo.pool).Query(ctx, appointmentSelect+`
		WHERE r.status = 'confirmed' AND r.reminded_at IS NULL AND r.date BETWEEN $1 AND $2
		ORDER BY r.date LIMIT $3
		FOR UPDATE OF r SKIP LOCKED`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	var items []*AppointmentRequest
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment request: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (repo *appointmentRepoPG) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := db.Conn(ctx, repo.pool).Exec(ctx,
		`UPDATE appointment_request SET reminded_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("mark appointment reminded: %w", err)
	}
	return nil
}
