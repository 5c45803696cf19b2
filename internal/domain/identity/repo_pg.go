package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/db"
)

const userCols = `u.id, u.email, u.nom, u.prenom, u.role, u.created_at`

func scanUserInto(u *User, dest []interface{}) []interface{} {
	return append(dest, &u.ID, &u.Email, &u.Nom, &u.Prenom, (*string)(&u.Role), &u.CreatedAt)
}

// =========== Users ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (id, email, nom, prenom, role) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		u.ID, u.Email, u.Nom, u.Prenom, string(u.Role)).Scan(&u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("email %s is already registered", u.Email)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) get(ctx context.Context, where string, arg interface{}) (*User, error) {
	var u User
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM users u WHERE `+where, arg).
		Scan(scanUserInto(&u, nil)...)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.get(ctx, `u.id = $1`, id)
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `LOWER(u.email) = LOWER($1)`, email)
}

// =========== Patients ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientSelect = `SELECT p.id, p.user_id, p.patient_code, p.date_of_birth, p.gender, p.weight,
	p.height, p.diabetes_type, p.doctor_id, p.created_at, ` + userCols + `
	FROM patient p JOIN users u ON u.id = p.user_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	p := Patient{User: &User{}}
	dest := []interface{}{&p.ID, &p.UserID, &p.PatientCode, &p.DateOfBirth, &p.Gender, &p.Weight,
		&p.Height, &p.DiabetesType, &p.DoctorID, &p.CreatedAt}
	if err := row.Scan(scanUserInto(p.User, dest)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (id, user_id, patient_code, date_of_birth, gender, weight, height, diabetes_type, doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		p.ID, p.UserID, p.PatientCode, p.DateOfBirth, p.Gender, p.Weight, p.Height, p.DiabetesType, p.DoctorID).
		Scan(&p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("patient profile already exists")
	}
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) get(ctx context.Context, where string, arg interface{}) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, patientSelect+` WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.get(ctx, `p.id = $1`, id)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.get(ctx, `p.user_id = $1`, userID)
}

func (r *patientRepoPG) ListByDoctor(ctx context.Context, medecinID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	q := db.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE doctor_id = $1`, medecinID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	rows, err := q.Query(ctx, patientSelect+` WHERE p.doctor_id = $1 ORDER BY u.nom, u.prenom, p.id LIMIT $2 OFFSET $3`,
		medecinID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan patient: %w", err)
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) SetDoctor(ctx context.Context, patientID, medecinID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE patient SET doctor_id = $2 WHERE id = $1`, patientID, medecinID)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("doctor not found")
	}
	if err != nil {
		return fmt.Errorf("set patient doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

// =========== Doctors ===========

type medecinRepoPG struct{ pool *pgxpool.Pool }

func NewMedecinRepoPG(pool *pgxpool.Pool) MedecinRepository { return &medecinRepoPG{pool: pool} }

const medecinSelect = `SELECT m.id, m.user_id, m.inpe, m.specialty, m.city, m.address,
	m.consultation_price::float8, m.description, m.working_hours, m.available_days,
	COALESCE((SELECT array_agg(l.name::text ORDER BY l.name)
		FROM medecin_language ml JOIN language l ON l.id = ml.language_id
		WHERE ml.medecin_id = m.id), '{}'::text[]),
	m.created_at, ` + userCols + `
	FROM medecin m JOIN users u ON u.id = m.user_id`

func scanMedecin(row pgx.Row) (*Medecin, error) {
	m := Medecin{User: &User{}}
	dest := []interface{}{&m.ID, &m.UserID, &m.INPE, &m.Specialty, &m.City, &m.Address,
		&m.ConsultationPrice, &m.Description, &m.WorkingHours, &m.AvailableDays, &m.Languages, &m.CreatedAt}
	if err := row.Scan(scanUserInto(m.User, dest)...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts the profile and links its languages, creating unknown
// language names. Callers wanting atomicity run it inside db.TxRunner.
func (r *medecinRepoPG) Create(ctx context.Context, m *Medecin) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO medecin (id, user_id, inpe, specialty, city, address, consultation_price,
			description, working_hours, available_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		m.ID, m.UserID, m.INPE, m.Specialty, m.City, m.Address, m.ConsultationPrice,
		m.Description, m.WorkingHours, m.AvailableDays).Scan(&m.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("doctor profile already exists")
	}
	if err != nil {
		return fmt.Errorf("insert medecin: %w", err)
	}

	for _, name := range m.Languages {
		var langID int
		if err := q.QueryRow(ctx, `
			INSERT INTO language (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, name).Scan(&langID); err != nil {
			return fmt.Errorf("upsert language %q: %w", name, err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO medecin_language (medecin_id, language_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, m.ID, langID); err != nil {
			return fmt.Errorf("link language %q: %w", name, err)
		}
	}
	return nil
}

func (r *medecinRepoPG) get(ctx context.Context, where string, arg interface{}) (*Medecin, error) {
	m, err := scanMedecin(db.Conn(ctx, r.pool).QueryRow(ctx, medecinSelect+` WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("doctor not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get medecin: %w", err)
	}
	return m, nil
}

func (r *medecinRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medecin, error) {
	return r.get(ctx, `m.id = $1`, id)
}

func (r *medecinRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Medecin, error) {
	return r.get(ctx, `m.user_id = $1`, userID)
}

func (r *medecinRepoPG) List(ctx context.Context, limit, offset int) ([]*Medecin, int, error) {
	return r.Search(ctx, DoctorFilter{}, limit, offset)
}

func (r *medecinRepoPG) Search(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Medecin, int, error) {
	where, args := doctorFilterSQL(f)
	q := db.Conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM medecin m WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	args = append(args, limit, offset)
	sql := fmt.Sprintf(`%s WHERE %s ORDER BY m.id LIMIT $%d OFFSET $%d`, medecinSelect, where, len(args)-1, len(args))
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search doctors: %w", err)
	}
	defer rows.Close()

	items := []*Medecin{}
	for rows.Next() {
		m, err := scanMedecin(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan medecin: %w", err)
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// doctorFilterSQL builds the WHERE clause over alias m.
func doctorFilterSQL(f DoctorFilter) (string, []interface{}) {
	clauses := []string{"TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Specialty != "" {
		clauses = append(clauses, `m.specialty ILIKE '%' || `+arg(escapeLike(f.Specialty))+` || '%'`)
	}
	if f.City != "" {
		clauses = append(clauses, `LOWER(m.city) = LOWER(`+arg(f.City)+`)`)
	}
	if len(f.Languages) > 0 {
		lower := make([]string, len(f.Languages))
		for i, l := range f.Languages {
			lower[i] = strings.ToLower(l)
		}
		clauses = append(clauses, `EXISTS (SELECT 1 FROM medecin_language ml
			JOIN language l ON l.id = ml.language_id
			WHERE ml.medecin_id = m.id AND LOWER(l.name) = ANY(`+arg(lower)+`))`)
	}
	if f.MinPrice != nil {
		clauses = append(clauses, `m.consultation_price >= `+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, `m.consultation_price <= `+arg(*f.MaxPrice))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
