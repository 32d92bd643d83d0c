// Package handler exposes the allocation engine over HTTP.  Handlers bind
// and validate request bodies, call into the service layer, and translate
// sentinel errors into status codes.  No business rules live here.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kafaat/airline-seat-inventory/internal/repository"
	"github.com/kafaat/airline-seat-inventory/internal/service"
)

// Validator adapts go-playground/validator to Echo's Validator interface so
// handlers can rely on c.Validate(req) after binding.
type Validator struct {
	v *validator.Validate
}

// NewValidator constructs the request validator used by the whole API.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate implements echo.Validator.
func (vl *Validator) Validate(i interface{}) error {
	return vl.v.Struct(i)
}

// getUserID extracts the authenticated user id injected by the JWT
// middleware.  The claim arrives as whatever type the token encoder used,
// so every plausible representation is accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// respondError maps service and repository sentinels to HTTP responses.
// Anything unrecognised becomes a 500 with a generic body so internal
// details never leak to clients.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrOfferExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "offer expired"})
	case errors.Is(err, repository.ErrDuplicateWaitlist):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already on the waitlist for this flight and cabin"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting state"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSeatCount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrFlightClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrSeatsAvailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
