package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleMedecin Role = "medecin"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleMedecin
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Nom       string    `json:"nom"`
	Prenom    string    `json:"prenom"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName is "Prenom Nom", falling back to the email when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.Prenom + " " + u.Nom)
	if name == "" {
		return u.Email
	}
	return name
}

type Patient struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	PatientCode  string     `json:"patient_code"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Gender       *string    `json:"gender,omitempty"`
	Weight       *float64   `json:"weight,omitempty"`
	Height       *float64   `json:"height,omitempty"`
	DiabetesType *string    `json:"diabetes_type,omitempty"`
	// DoctorID is only ever set by an approved assignment request.
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	User *User `json:"user,omitempty"`
}

type Medecin struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	INPE              string    `json:"inpe"`
	Specialty         string    `json:"specialty"`
	City              string    `json:"city"`
	Address           string    `json:"address"`
	ConsultationPrice float64   `json:"consultation_price"`
	Description       string    `json:"description"`
	WorkingHours      string    `json:"working_hours"`
	AvailableDays     string    `json:"available_days"`
	Languages         []string  `json:"languages"`
	CreatedAt         time.Time `json:"created_at"`

	User *User `json:"user,omitempty"`
}

// DefaultConsultationPrice applies when a doctor profile omits a price.
const DefaultConsultationPrice = 100.00

// DoctorFilter narrows SearchDoctors. Zero values do not filter.
type DoctorFilter struct {
	// Specialty matches as a case-insensitive substring.
	Specialty string
	// City matches case-insensitively and exactly.
	City string
	// Languages matches doctors speaking at least one of them.
	Languages []string
	MinPrice  *float64
	MaxPrice  *float64
}
