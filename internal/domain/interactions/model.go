// Package interactions implements the doctor-patient workflow: assignment
// requests that bind a patient to a doctor, and appointment requests with
// approval, cancellation and slot conflict detection.
package interactions

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentApproved AssignmentStatus = "approved"
	AssignmentRejected AssignmentStatus = "rejected"
)

// AssignmentRequest is a patient asking a doctor to take them on. A patient
// owns at most one, whatever its status.
type AssignmentRequest struct {
	ID            uuid.UUID        `json:"id"`
	PatientID     uuid.UUID        `json:"patient_id"`
	MedecinID     uuid.UUID        `json:"medecin_id"`
	MedecinNom    string           `json:"medecin_nom"`
	MedecinPrenom string           `json:"medecin_prenom"`
	PatientNom    string           `json:"patient_nom"`
	PatientPrenom string           `json:"patient_prenom"`
	Status        AssignmentStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Account ids of both parties, used to address notifications.
	PatientUserID uuid.UUID `json:"-"`
	MedecinUserID uuid.UUID `json:"-"`
}

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentRejected, AppointmentCancelled:
		return true
	}
	return false
}

// Cancellable reports whether the patient may still cancel.
func (s AppointmentStatus) Cancellable() bool {
	return s == AppointmentPending || s == AppointmentConfirmed
}

type AppointmentRequest struct {
	ID            uuid.UUID         `json:"id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	MedecinID     uuid.UUID         `json:"medecin_id"`
	MedecinNom    string            `json:"medecin_nom"`
	MedecinPrenom string            `json:"medecin_prenom"`
	PatientNom    string            `json:"patient_nom"`
	PatientPrenom string            `json:"patient_prenom"`
	Date          time.Time         `json:"date"`
	Reason        string            `json:"reason"`
	Status        AppointmentStatus `json:"status"`
	RemindedAt    *time.Time        `json:"reminded_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	PatientUserID uuid.UUID `json:"-"`
	MedecinUserID uuid.UUID `json:"-"`
}

func (a *AppointmentRequest) PatientName() string { return fullName(a.PatientPrenom, a.PatientNom) }
func (a *AppointmentRequest) MedecinName() string { return fullName(a.MedecinPrenom, a.MedecinNom) }

func fullName(prenom, nom string) string {
	switch {
	case prenom == "":
		return nom
	case nom == "":
		return prenom
	}
	return prenom + " " + nom
}
