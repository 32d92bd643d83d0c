package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kafaat/airline-seat-inventory/internal/model"
	"github.com/kafaat/airline-seat-inventory/internal/service"
)

// AdminHandler serves the admin analytics and resolution surface: the
// overbooking recommendation, the demand forecast, and denied-boarding
// resolution.  Every route behind it requires the ADMIN role.
type AdminHandler struct {
	Advisor *service.OverbookingService
	Denied  *service.DeniedBoardingService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(advisor *service.OverbookingService, denied *service.DeniedBoardingService) *AdminHandler {
	if advisor == nil || denied == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Advisor: advisor, Denied: denied}
}

// Recommendation returns the advisor's per-cabin overbooking recommendation
// for a flight.  Advisory only; applying it goes through the allowance
// endpoint.
//
// GET /v1/flights/:id/overbooking
func (h *AdminHandler) Recommendation(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	rec, err := h.Advisor.CalculateRecommendedOverbooking(c.Request().Context(), flightID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Forecast projects demand for a flight from recent booking velocity.  The
// days query parameter defaults to 7.
//
// GET /v1/flights/:id/forecast?days=N
func (h *AdminHandler) Forecast(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be between 1 and 365"})
		}
		days = n
	}
	fc, err := h.Advisor.ForecastDemand(c.Request().Context(), flightID, days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, fc)
}

// recordView is the wire shape of a denied-boarding record.
type recordView struct {
	ID                  uint64  `json:"id"`
	FlightID            uint64  `json:"flight_id"`
	BookingID           uint64  `json:"booking_id"`
	Type                string  `json:"type"`
	CompensationCents   int64   `json:"compensation_cents"`
	CompensationType    string  `json:"compensation_type"`
	AlternativeFlightID *uint64 `json:"alternative_flight_id,omitempty"`
	Status              string  `json:"status"`
	CreatedAt           string  `json:"created_at,omitempty"`
}

func viewRecord(r *model.DeniedBoardingRecord) recordView {
	v := recordView{
		ID:                  r.ID,
		FlightID:            r.FlightID,
		BookingID:           r.BookingID,
		Type:                r.Type,
		CompensationCents:   r.CompensationCents,
		CompensationType:    r.CompensationType,
		AlternativeFlightID: r.AlternativeFlightID,
		Status:              r.Status,
	}
	if !r.CreatedAt.IsZero() {
		v.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

// deniedBoardingRequest is the body for resolving an oversold departure.
type deniedBoardingRequest struct {
	CabinClass  string `json:"cabin_class" validate:"required,oneof=economy business first"`
	SeatsNeeded int    `json:"seats_needed" validate:"required,min=1"`
}

// ResolveDeniedBoarding bumps enough bookings to free the requested seats
// and records the compensation owed to each bumped passenger.
//
// POST /v1/flights/:id/denied-boarding
func (h *AdminHandler) ResolveDeniedBoarding(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	var req deniedBoardingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	recs, err := h.Denied.HandleDeniedBoarding(c.Request().Context(), flightID, req.CabinClass, req.SeatsNeeded)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]recordView, 0, len(recs))
	for i := range recs {
		views = append(views, viewRecord(&recs[i]))
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"bumped":  len(views),
		"records": views,
	})
}

// ListRecords lists a flight's denied-boarding records.
//
// GET /v1/flights/:id/denied-boarding
func (h *AdminHandler) ListRecords(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	recs, err := h.Denied.ListRecords(c.Request().Context(), flightID)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]recordView, 0, len(recs))
	for i := range recs {
		views = append(views, viewRecord(&recs[i]))
	}
	return c.JSON(http.StatusOK, views)
}

// statusRequest is the body for a record lifecycle transition.
type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected completed"`
}

// UpdateRecordStatus applies a lifecycle transition to a denied-boarding
// record: pending to accepted or rejected, accepted to completed.
//
// PUT /v1/denied-boarding/:id/status
func (h *AdminHandler) UpdateRecordStatus(c echo.Context) error {
	recordID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Denied.UpdateRecordStatus(c.Request().Context(), recordID, req.Status); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": req.Status})
}
