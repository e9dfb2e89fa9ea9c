package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// HTTPError converts a service error into an *echo.HTTPError. Errors outside
// the shared taxonomy are logged and surface as a generic 500.
func HTTPError(c echo.Context, err error) error {
	var (
		ve *ValidationError
		nf *NotFoundError
		fe *ForbiddenError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &nf):
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
	case errors.As(err, &fe):
		return echo.NewHTTPError(http.StatusForbidden, fe.Error())
	case errors.As(err, &he):
		return he
	}

	zerolog.Ctx(c.Request().Context()).Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
