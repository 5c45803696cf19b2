package interactions

import (
	"context"

	"github.com/google/uuid"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/notification"
)

// CreateAssignment files the patient's one and only assignment request.
func (s *Service) CreateAssignment(ctx context.Context, actor identity.Actor, medecinID uuid.UUID) (*AssignmentRequest, error) {
	pa, ok := actor.(*identity.PatientActor)
	if !ok {
		return nil, apperr.Forbidden("only patients can assign doctors")
	}
	if medecinID == uuid.Nil {
		return nil, apperr.InvalidInput("medecin_id is required")
	}

	var req *AssignmentRequest
	var out outbox
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		_, err := s.assignments.GetByPatient(ctx, pa.Patient.ID)
		if err == nil {
			return apperr.Conflict("you already have a pending or accepted request")
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}

		doc, err := s.registry.GetMedecin(ctx, medecinID)
		if err != nil {
			return err
		}

		req = &AssignmentRequest{
			PatientID:     pa.Patient.ID,
			MedecinID:     doc.ID,
			Status:        AssignmentPending,
			PatientUserID: pa.UserID(),
			PatientNom:    pa.Account.Nom,
			PatientPrenom: pa.Account.Prenom,
			MedecinUserID: doc.UserID,
		}
		if doc.User != nil {
			req.MedecinNom, req.MedecinPrenom = doc.User.Nom, doc.User.Prenom
		}
		if err := s.assignments.Create(ctx, req); err != nil {
			return err
		}
		out.add(doc.UserID, notification.TplAssignmentRequested, map[string]string{"patient_name": pa.Name()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(out)
	s.logger.Info().Str("assignment_id", req.ID.String()).Str("medecin_id", req.MedecinID.String()).
		Msg("assignment requested")
	return req, nil
}

// ApproveAssignment binds the patient to the calling doctor.
func (s *Service) ApproveAssignment(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	return s.decideAssignment(ctx, actor, id, AssignmentApproved)
}

func (s *Service) RejectAssignment(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	return s.decideAssignment(ctx, actor, id, AssignmentRejected)
}

func (s *Service) decideAssignment(ctx context.Context, actor identity.Actor, id uuid.UUID, to AssignmentStatus) error {
	doc, ok := actor.(*identity.MedecinActor)
	if !ok {
		if to == AssignmentApproved {
			return apperr.Forbidden("only doctors can approve requests")
		}
		return apperr.Forbidden("only doctors can reject requests")
	}

	var out outbox
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		req, err := s.assignments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.MedecinID != doc.Medecin.ID {
			return apperr.NotFound("request not found")
		}
		if req.Status != AssignmentPending {
			return apperr.Conflict("request already %s", req.Status)
		}

		template := notification.TplAssignmentRejected
		if to == AssignmentApproved {
			if err := s.registry.BindDoctor(ctx, req.PatientID, req.MedecinID); err != nil {
				return err
			}
			template = notification.TplAssignmentApproved
		}
		if err := s.assignments.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		out.add(req.PatientUserID, template, map[string]string{"doctor_name": doc.Name()})
		return nil
	})
	if err != nil {
		return err
	}

	s.flush(out)
	s.logger.Info().Str("assignment_id", id.String()).Str("status", string(to)).Msg("assignment decided")
	return nil
}

// ListPendingAssignments returns pending requests addressed to the calling
// doctor, newest first.
func (s *Service) ListPendingAssignments(ctx context.Context, actor identity.Actor, limit, offset int) ([]*AssignmentRequest, int, error) {
	doc, ok := actor.(*identity.MedecinActor)
	if !ok {
		return nil, 0, apperr.Forbidden("only doctors can view assignment requests")
	}
	return s.assignments.ListPendingByMedecin(ctx, doc.Medecin.ID, limit, offset)
}

func (s *Service) GetMyAssignment(ctx context.Context, actor identity.Actor) (*AssignmentRequest, error) {
	pa, ok := actor.(*identity.PatientActor)
	if !ok {
		return nil, apperr.Forbidden("only patients can view their assignment request")
	}
	return s.assignments.GetByPatient(ctx, pa.Patient.ID)
}
