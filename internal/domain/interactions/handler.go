package interactions

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the workflow under /interactions. api must already
// run identity.ActorMiddleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/interactions")

	// Patient side
	g.POST("/assign-doctor", h.CreateAssignment)
	g.GET("/my/assignment", h.GetMyAssignment)
	g.POST("/appointments", h.CreateAppointment)
	g.GET("/my/appointments", h.ListMyAppointments)
	g.PATCH("/my/appointments/:id/cancel", h.CancelAppointment)

	// Doctor side
	g.GET("/doctor/assignments", h.ListPendingAssignments)
	g.PATCH("/doctor/assignments/:id/approve", h.ApproveAssignment)
	g.PATCH("/doctor/assignments/:id/reject", h.RejectAssignment)
	g.GET("/doctor/appointments", h.ListDoctorAppointments)
	g.GET("/doctor/appointments/upcoming", h.ListUpcomingConfirmed)
	g.PATCH("/doctor/appointments/:id/approve", h.ApproveAppointment)
	g.PATCH("/doctor/appointments/:id/reject", h.RejectAppointment)
}

type messageResponse struct {
	Message string `json:"message"`
}

type createAssignmentRequest struct {
	MedecinID string `json:"medecin_id"`
}

type createAppointmentRequest struct {
	MedecinID string `json:"medecin_id"`
	Date      string `json:"date"`
	Reason    string `json:"reason"`
}

func actorOf(c echo.Context) (identity.Actor, error) {
	a, ok := identity.ActorFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return a, nil
}

// bodyID parses an id sent in a request body. Empty stays uuid.Nil so the
// service reports it as missing.
func bodyID(raw, field string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("%s is not a valid id", field)
	}
	return id, nil
}

// pathID treats a malformed id like an unknown one.
func pathID(c echo.Context, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("%s not found", what)
	}
	return id, nil
}

func bindBody(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apperr.InvalidInput("malformed request body")
	}
	return nil
}

// -- Assignments --

func (h *Handler) CreateAssignment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body createAssignmentRequest
	if err := bindBody(c, &body); err != nil {
		return err
	}
	medecinID, err := bodyID(body.MedecinID, "medecin_id")
	if err != nil {
		return err
	}
	req, err := h.svc.CreateAssignment(c.Request().Context(), actor, medecinID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) GetMyAssignment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	req, err := h.svc.GetMyAssignment(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListPendingAssignments(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPendingAssignments(c.Request().Context(), actor, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) ApproveAssignment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "request")
	if err != nil {
		return err
	}
	if err := h.svc.ApproveAssignment(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Assignment approved."})
}

func (h *Handler) RejectAssignment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "request")
	if err != nil {
		return err
	}
	if err := h.svc.RejectAssignment(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Assignment request rejected."})
}

// -- Appointments --

func (h *Handler) CreateAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var body createAppointmentRequest
	if err := bindBody(c, &body); err != nil {
		return err
	}
	medecinID, err := bodyID(body.MedecinID, "medecin_id")
	if err != nil {
		return err
	}
	appt, err := h.svc.CreateAppointment(c.Request().Context(), actor, CreateAppointmentInput{
		MedecinID: medecinID,
		Date:      body.Date,
		Reason:    body.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) ListMyAppointments(c echo.Context) error {
	return h.listAppointments(c, func(a identity.Actor) error {
		if _, ok := a.(*identity.PatientActor); !ok {
			return apperr.Forbidden("only patients can view their appointments")
		}
		return nil
	})
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	return h.listAppointments(c, func(a identity.Actor) error {
		if _, ok := a.(*identity.MedecinActor); !ok {
			return apperr.Forbidden("only doctors can view appointments")
		}
		return nil
	})
}

// listAppointments scopes the listing to the route's role; the service
// lists by whichever profile the actor holds.
func (h *Handler) listAppointments(c echo.Context, allow func(identity.Actor) error) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	if err := allow(actor); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	status := AppointmentStatus(strings.TrimSpace(c.QueryParam("status")))
	items, total, err := h.svc.ListMyAppointments(c.Request().Context(), actor, status, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) ListUpcomingConfirmed(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUpcomingConfirmed(c.Request().Context(), actor, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) ApproveAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "appointment")
	if err != nil {
		return err
	}
	if err := h.svc.ApproveAppointment(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Appointment confirmed."})
}

func (h *Handler) RejectAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "appointment")
	if err != nil {
		return err
	}
	if err := h.svc.RejectAppointment(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Appointment rejected."})
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "appointment")
	if err != nil {
		return err
	}
	if err := h.svc.CancelAppointment(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Appointment cancelled."})
}
