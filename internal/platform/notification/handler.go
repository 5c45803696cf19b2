package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/auth"
	"github.com/diaguide/diaguide/pkg/pagination"
)

// Handler serves the caller's notification inbox.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications")
	g.GET("", h.List)
	g.PATCH("/:id/mark-read", h.MarkRead)
}

type listResponse struct {
	*pagination.Response
	Unread int `json:"unread"`
}

func (h *Handler) List(c echo.Context) error {
	userID, err := recipient(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	items, total, err := h.repo.ListByRecipient(ctx, userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	unread, err := h.repo.CountUnread(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{
		Response: pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL),
		Unread:   unread,
	})
}

func (h *Handler) MarkRead(c echo.Context) error {
	userID, err := recipient(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.NotFound("notification not found")
	}
	if err := h.repo.MarkRead(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read."})
}

func recipient(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.SubjectFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return id, nil
}
