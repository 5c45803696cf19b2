package identity

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes expects api to already run ActorMiddleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medecins/search", h.SearchDoctors)
	api.GET("/medecins", h.ListDoctors)
	api.GET("/medecins/:id", h.GetDoctor)
	api.GET("/doctor/patients", h.ListMyPatients)
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	f, err := doctorFilterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.NotFound("doctor not found")
	}
	m, err := h.svc.GetMedecin(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMyPatients(c echo.Context) error {
	actor, ok := ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMyPatients(c.Request().Context(), actor, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL))
}

// doctorFilterFromQuery reads specialty, city, languages (comma separated
// or repeated), min_price and max_price.
func doctorFilterFromQuery(c echo.Context) (DoctorFilter, error) {
	q := c.QueryParams()
	f := DoctorFilter{
		Specialty: q.Get("specialty"),
		City:      q.Get("city"),
	}
	for _, v := range q["languages"] {
		f.Languages = append(f.Languages, strings.Split(v, ",")...)
	}

	var err error
	if f.MinPrice, err = priceParam(q.Get("min_price"), "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = priceParam(q.Get("max_price"), "max_price"); err != nil {
		return f, err
	}
	return f, nil
}

func priceParam(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperr.InvalidInput("%s must be a number", name)
	}
	return &v, nil
}
