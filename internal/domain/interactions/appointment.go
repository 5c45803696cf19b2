package interactions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/notification"
)

// Layouts accepted for dates without a zone offset.
var localDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts "YYYY-MM-DD HH:MM:SS", the same with a "T" separator,
// or RFC 3339. Dates without an offset are read in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.InvalidInput("date must be formatted as YYYY-MM-DD HH:MM:SS")
}

type CreateAppointmentInput struct {
	MedecinID uuid.UUID
	Date      string
	Reason    string
}

// CreateAppointment files a pending appointment request. Nothing is written
// when any check fails.
func (s *Service) CreateAppointment(ctx context.Context, actor identity.Actor, in CreateAppointmentInput) (*AppointmentRequest, error) {
	pa, ok := actor.(*identity.PatientActor)
	if !ok {
		return nil, apperr.Forbidden("only patients can request appointments")
	}
	if in.MedecinID == uuid.Nil || strings.TrimSpace(in.Date) == "" {
		return nil, apperr.InvalidInput("medecin_id and date are required")
	}
	date, err := ParseDate(in.Date, s.loc)
	if err != nil {
		return nil, err
	}
	if !date.After(s.now()) {
		return nil, apperr.InvalidInput("date must be in the future")
	}

	var appt *AppointmentRequest
	var out outbox
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		doc, err := s.registry.GetMedecin(ctx, in.MedecinID)
		if err != nil {
			return err
		}

		pending, err := s.appointments.HasPending(ctx, pa.Patient.ID, doc.ID)
		if err != nil {
			return err
		}
		if pending {
			return apperr.Conflict("you already have a pending appointment with this doctor")
		}
		taken, err := s.appointments.SlotTaken(ctx, doc.ID, date, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("this time slot is already booked")
		}

		appt = &AppointmentRequest{
			PatientID:     pa.Patient.ID,
			MedecinID:     doc.ID,
			Date:          date,
			Reason:        strings.TrimSpace(in.Reason),
			Status:        AppointmentPending,
			PatientUserID: pa.UserID(),
			PatientNom:    pa.Account.Nom,
			PatientPrenom: pa.Account.Prenom,
			MedecinUserID: doc.UserID,
		}
		if doc.User != nil {
			appt.MedecinNom, appt.MedecinPrenom = doc.User.Nom, doc.User.Prenom
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}
		out.add(doc.UserID, notification.TplAppointmentRequested, map[string]string{
			"patient_name": pa.Name(),
			"date":         s.formatDate(date),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(out)
	s.logger.Info().Str("appointment_id", appt.ID.String()).Time("date", appt.Date).Msg("appointment requested")
	return appt, nil
}

// ApproveAppointment confirms a pending request unless the doctor already
// has a confirmed appointment at the same instant.
func (s *Service) ApproveAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	doc, ok := actor.(*identity.MedecinActor)
	if !ok {
		return apperr.Forbidden("only doctors can approve appointments")
	}

	var out outbox
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		appt, err := s.pendingForDoctor(ctx, doc, id)
		if err != nil {
			return err
		}
		taken, err := s.appointments.SlotTaken(ctx, appt.MedecinID, appt.Date, appt.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("this time slot is already booked")
		}
		if err := s.appointments.UpdateStatus(ctx, id, AppointmentConfirmed); err != nil {
			return err
		}
		out.add(appt.PatientUserID, notification.TplAppointmentConfirmed, map[string]string{
			"doctor_name": doc.Name(),
			"date":        s.formatDate(appt.Date),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(out)
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment confirmed")
	return nil
}

func (s *Service) RejectAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	doc, ok := actor.(*identity.MedecinActor)
	if !ok {
		return apperr.Forbidden("only doctors can reject appointments")
	}

	var out outbox
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		appt, err := s.pendingForDoctor(ctx, doc, id)
		if err != nil {
			return err
		}
		if err := s.appointments.UpdateStatus(ctx, id, AppointmentRejected); err != nil {
			return err
		}
		out.add(appt.PatientUserID, notification.TplAppointmentRejected, map[string]string{
			"doctor_name": doc.Name(),
			"date":        s.formatDate(appt.Date),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(out)
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment rejected")
	return nil
}

// pendingForDoctor locks id and checks it is a pending request addressed to
// doc. Requests of other doctors are reported as missing.
func (s *Service) pendingForDoctor(ctx context.Context, doc *identity.MedecinActor, id uuid.UUID) (*AppointmentRequest, error) {
	appt, err := s.appointments.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.MedecinID != doc.Medecin.ID {
		return nil, apperr.NotFound("appointment not found")
	}
	if appt.Status != AppointmentPending {
		return nil, apperr.Conflict("appointment already %s", appt.Status)
	}
	return appt, nil
}

// CancelAppointment lets a patient withdraw a pending or confirmed
// appointment, freeing the slot.
func (s *Service) CancelAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	pa, ok := actor.(*identity.PatientActor)
	if !ok {
		return apperr.Forbidden("only patients can cancel their appointments")
	}

	var out outbox
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if appt.PatientID != pa.Patient.ID {
			return apperr.NotFound("appointment not found")
		}
		if !appt.Status.Cancellable() {
			return apperr.Conflict("appointment already %s", appt.Status)
		}
		if err := s.appointments.UpdateStatus(ctx, id, AppointmentCancelled); err != nil {
			return err
		}
		out.add(appt.MedecinUserID, notification.TplAppointmentCancelled, map[string]string{
			"patient_name": pa.Name(),
			"date":         s.formatDate(appt.Date),
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(out)
	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	return nil
}

// ListMyAppointments returns the caller's appointments, latest date first.
// status, when set, must name a known status.
func (s *Service) ListMyAppointments(ctx context.Context, actor identity.Actor, status AppointmentStatus, limit, offset int) ([]*AppointmentRequest, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperr.InvalidInput("unknown status %q", status)
	}
	switch a := actor.(type) {
	case *identity.PatientActor:
		return s.appointments.ListByPatient(ctx, a.Patient.ID, status, limit, offset)
	case *identity.MedecinActor:
		return s.appointments.ListByMedecin(ctx, a.Medecin.ID, status, limit, offset)
	default:
		return nil, 0, apperr.Forbidden("unsupported role")
	}
}

// ListUpcomingConfirmed returns the doctor's confirmed appointments from now
// on, soonest first.
func (s *Service) ListUpcomingConfirmed(ctx context.Context, actor identity.Actor, limit, offset int) ([]*AppointmentRequest, int, error) {
	doc, ok := actor.(*identity.MedecinActor)
	if !ok {
		return nil, 0, apperr.Forbidden("only doctors can view this")
	}
	return s.appointments.ListConfirmedFrom(ctx, doc.Medecin.ID, s.now(), limit, offset)
}
