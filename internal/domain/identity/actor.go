package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/auth"
)

// Actor is the authenticated caller resolved to exactly one role profile.
// The only implementations are *PatientActor and *MedecinActor; callers
// dispatch with a type switch.
type Actor interface {
	UserID() uuid.UUID
	Name() string
	isActor()
}

type PatientActor struct {
	Account *User
	Patient *Patient
}

func (a *PatientActor) UserID() uuid.UUID { return a.Account.ID }
func (a *PatientActor) Name() string      { return a.Account.FullName() }
func (*PatientActor) isActor()            {}

type MedecinActor struct {
	Account *User
	Medecin *Medecin
}

func (a *MedecinActor) UserID() uuid.UUID { return a.Account.ID }
func (a *MedecinActor) Name() string      { return a.Account.FullName() }
func (*MedecinActor) isActor()            {}

type contextKey string

const actorKey contextKey = "identity_actor"

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// ActorMiddleware resolves the token subject through the registry. It must
// run after auth.Middleware. Unknown users get 401; users without a role
// profile get 403.
func ActorMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, err := uuid.Parse(auth.SubjectFromContext(ctx))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}

			actor, err := svc.ResolveActor(ctx, userID)
			if err != nil {
				var ae *apperr.Error
				if errors.As(err, &ae) && ae.Kind == apperr.KindNotFound {
					return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
				}
				return err
			}

			c.SetRequest(c.Request().WithContext(WithActor(ctx, actor)))
			return next(c)
		}
	}
}
