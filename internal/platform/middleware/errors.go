package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/platform/apperr"
)

// ErrorHandler renders every failed request as {"error": "..."}. Domain
// errors map to their apperr status; echo errors keep their code; anything
// else is logged, reported to Sentry, and hidden behind a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(c.Request())
			hub.Scope().SetTag("request_id", requestID(c))
			hub.CaptureException(err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, map[string]string{"error": msg})
		}
		if err != nil {
			logger.Error().Err(err).Str("request_id", requestID(c)).Msg("write error response")
		}
	}
}

func classify(err error) (int, string) {
	if apperr.KindOf(err) != "" {
		return apperr.HTTPStatus(err), apperr.Message(err)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		switch m := he.Message.(type) {
		case string:
			return he.Code, m
		case nil:
			return he.Code, http.StatusText(he.Code)
		default:
			return he.Code, fmt.Sprint(m)
		}
	}

	return http.StatusInternalServerError, apperr.Message(err)
}
