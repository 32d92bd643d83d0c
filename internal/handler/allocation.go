package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kafaat/airline-seat-inventory/internal/model"
	"github.com/kafaat/airline-seat-inventory/internal/repository"
	"github.com/kafaat/airline-seat-inventory/internal/service"
)

// AllocationHandler serves the shopper-facing allocation surface: the
// availability read, hold creation, release and conversion, plus the admin
// operations that schedule flights and tune allowances.
type AllocationHandler struct {
	Alloc *service.AllocationService
}

// NewAllocationHandler constructs an AllocationHandler.
func NewAllocationHandler(alloc *service.AllocationService) *AllocationHandler {
	if alloc == nil {
		panic("nil service passed to NewAllocationHandler")
	}
	return &AllocationHandler{Alloc: alloc}
}

// holdView is the wire shape of a seat hold.
type holdView struct {
	HoldToken  string `json:"hold_token"`
	FlightID   uint64 `json:"flight_id"`
	CabinClass string `json:"cabin_class"`
	SeatCount  int    `json:"seat_count"`
	Status     string `json:"status"`
	ExpiresAt  string `json:"expires_at"`
}

func viewHold(h *model.SeatHold) holdView {
	return holdView{
		HoldToken:  h.HoldToken,
		FlightID:   h.FlightID,
		CabinClass: h.CabinClass,
		SeatCount:  h.SeatCount,
		Status:     h.Status,
		ExpiresAt:  h.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// Availability returns the availability summary for one (flight, cabin)
// pair.  Public, and fronted by the response cache.
//
// GET /v1/flights/:id/inventory/:cabin
func (h *AllocationHandler) Availability(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	st, err := h.Alloc.GetInventoryStatus(c.Request().Context(), flightID, c.Param("cabin"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// allocateRequest is the body for creating a seat hold.
type allocateRequest struct {
	CabinClass string `json:"cabin_class" validate:"required,oneof=economy business first"`
	SeatCount  int    `json:"seat_count" validate:"required,min=1,max=9"`
	SessionID  string `json:"session_id" validate:"required,max=128"`
}

// Allocate attempts to hold seats for the caller's shopping session.  A
// full cabin yields 409 with a waitlist hint; joining remains the user's
// explicit choice.
//
// POST /v1/flights/:id/allocate
func (h *AllocationHandler) Allocate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	var req allocateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	hold, err := h.Alloc.AllocateSeats(c.Request().Context(), flightID, req.CabinClass, req.SeatCount, userID, req.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientSeats) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":              "insufficient seats",
				"waitlist_available": true,
			})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, viewHold(hold))
}

// Release cancels the caller's hold and returns its seats to the ledger.
// Releasing an already-settled hold succeeds silently.
//
// DELETE /v1/holds/:token
func (h *AllocationHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Alloc.ReleaseSeatHold(c.Request().Context(), c.Param("token"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": true})
}

// convertRequest is the body for finalizing a hold into a booking.
type convertRequest struct {
	FareCents     int64 `json:"fare_cents" validate:"required,min=0"`
	VolunteerBump bool  `json:"volunteer_bump"`
}

// Convert finalizes a hold into a confirmed booking.
//
// POST /v1/holds/:token/convert
func (h *AllocationHandler) Convert(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req convertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	booking, err := h.Alloc.ConvertSeatHold(c.Request().Context(), c.Param("token"), userID, req.FareCents, req.VolunteerBump)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":  booking.ID,
		"flight_id":   booking.FlightID,
		"cabin_class": booking.CabinClass,
		"seat_count":  booking.SeatCount,
		"fare_cents":  booking.FareCents,
		"status":      booking.Status,
	})
}

// scheduleCabin is one cabin block in a flight scheduling request.
type scheduleCabin struct {
	CabinClass string `json:"cabin_class" validate:"required,oneof=economy business first"`
	TotalSeats int    `json:"total_seats" validate:"required,min=1"`
}

// scheduleRequest is the body for scheduling a flight with its inventory.
type scheduleRequest struct {
	FlightNumber string          `json:"flight_number" validate:"required,max=8"`
	AirlineCode  string          `json:"airline_code" validate:"required,len=2"`
	Origin       string          `json:"origin" validate:"required,len=3"`
	Destination  string          `json:"destination" validate:"required,len=3"`
	DepartsAt    time.Time       `json:"departs_at" validate:"required"`
	Cabins       []scheduleCabin `json:"cabins" validate:"required,min=1,dive"`
}

// Schedule creates a flight and its per-cabin inventory rows.  Admin only.
//
// POST /v1/flights
func (h *AllocationHandler) Schedule(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	flight := &model.Flight{
		FlightNumber: req.FlightNumber,
		AirlineCode:  req.AirlineCode,
		Origin:       req.Origin,
		Destination:  req.Destination,
		DepartsAt:    req.DepartsAt.UTC(),
	}
	cabins := make([]model.FlightInventory, 0, len(req.Cabins))
	for _, cb := range req.Cabins {
		cabins = append(cabins, model.FlightInventory{CabinClass: cb.CabinClass, TotalSeats: cb.TotalSeats})
	}
	if err := h.Alloc.ScheduleFlight(c.Request().Context(), flight, cabins); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"flight_id": flight.ID})
}

// MyHolds lists the caller's active holds, soonest-expiring first.
//
// GET /v1/my-holds
func (h *AllocationHandler) MyHolds(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	holds, err := h.Alloc.GetUserHolds(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]holdView, 0, len(holds))
	for i := range holds {
		views = append(views, viewHold(&holds[i]))
	}
	return c.JSON(http.StatusOK, views)
}

// allowanceRequest is the body for setting an overbooking allowance.
type allowanceRequest struct {
	Allowance *int `json:"allowance" validate:"required,min=0"`
}

// SetAllowance sets the oversell allowance of a cabin, typically to the
// advisor's recommendation.  Admin only.
//
// PUT /v1/flights/:id/inventory/:cabin/allowance
func (h *AllocationHandler) SetAllowance(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	var req allowanceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Alloc.ApplyOverbookingAllowance(c.Request().Context(), flightID, c.Param("cabin"), *req.Allowance); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"applied": true, "allowance": *req.Allowance})
}

// SweepHolds triggers one expired-hold sweep pass on demand.  The periodic
// sweeper runs the same pass; this endpoint exists for ops tooling.  Admin
// only.
//
// POST /v1/sweeps/holds
func (h *AllocationHandler) SweepHolds(c echo.Context) error {
	n, err := h.Alloc.ExpireOldHolds(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}
