package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kafaat/airline-seat-inventory/internal/model"
	"github.com/kafaat/airline-seat-inventory/internal/service"
)

// WaitlistHandler serves the waitlist surface: joining, cancelling,
// position lookup and the offer accept/decline pair, plus the admin views
// and the manual offer pass.
type WaitlistHandler struct {
	Waitlist *service.WaitlistService
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(waitlist *service.WaitlistService) *WaitlistHandler {
	if waitlist == nil {
		panic("nil service passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{Waitlist: waitlist}
}

// waitlistView is the wire shape of a waitlist entry.
type waitlistView struct {
	ID             uint64 `json:"id"`
	FlightID       uint64 `json:"flight_id"`
	CabinClass     string `json:"cabin_class"`
	Seats          int    `json:"seats"`
	Status         string `json:"status"`
	OfferExpiresAt string `json:"offer_expires_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func viewWaitlist(e *model.WaitlistEntry) waitlistView {
	v := waitlistView{
		ID:         e.ID,
		FlightID:   e.FlightID,
		CabinClass: e.CabinClass,
		Seats:      e.Seats,
		Status:     e.Status,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.OfferExpiresAt != nil {
		v.OfferExpiresAt = e.OfferExpiresAt.UTC().Format(time.RFC3339)
	}
	return v
}

func viewWaitlistAll(entries []model.WaitlistEntry) []waitlistView {
	out := make([]waitlistView, 0, len(entries))
	for i := range entries {
		out = append(out, viewWaitlist(&entries[i]))
	}
	return out
}

// joinRequest is the body for joining a waitlist.
type joinRequest struct {
	CabinClass  string `json:"cabin_class" validate:"required,oneof=economy business first"`
	Seats       int    `json:"seats" validate:"required,min=1,max=9"`
	NotifyEmail bool   `json:"notify_email"`
	NotifySMS   bool   `json:"notify_sms"`
}

// Join queues the caller for seats on a full cabin.
//
// POST /v1/flights/:id/waitlist
func (h *WaitlistHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	entry, err := h.Waitlist.AddToWaitlist(c.Request().Context(), flightID, req.CabinClass, req.Seats, userID, req.NotifyEmail, req.NotifySMS)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, viewWaitlist(entry))
}

// Cancel withdraws the caller's waitlist entry or outstanding offer.
//
// DELETE /v1/waitlist/:id
func (h *WaitlistHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	if err := h.Waitlist.CancelEntry(c.Request().Context(), entryID, userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled": true})
}

// Position reports the caller's entry and its 1-based queue position.
// Position reads zero for any entry that is not waiting.
//
// GET /v1/waitlist/:id/position
func (h *WaitlistHandler) Position(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	entry, pos, err := h.Waitlist.GetPosition(c.Request().Context(), entryID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"entry":    viewWaitlist(entry),
		"position": pos,
	})
}

// Accept confirms the caller's outstanding offer.  Seats are not allocated
// here; the client follows up through the normal allocation endpoint.
//
// POST /v1/waitlist/:id/accept
func (h *WaitlistHandler) Accept(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	entry, err := h.Waitlist.AcceptOffer(c.Request().Context(), entryID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewWaitlist(entry))
}

// Decline turns down the caller's outstanding offer.
//
// POST /v1/waitlist/:id/decline
func (h *WaitlistHandler) Decline(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}
	if err := h.Waitlist.DeclineOffer(c.Request().Context(), entryID, userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"declined": true})
}

// MyEntries lists all of the caller's waitlist entries, newest first.
//
// GET /v1/my-waitlist
func (h *WaitlistHandler) MyEntries(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entries, err := h.Waitlist.GetUserWaitlist(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewWaitlistAll(entries))
}

// FlightEntries lists a flight's whole waitlist in queue order.  Admin only.
//
// GET /v1/flights/:id/waitlist
func (h *WaitlistHandler) FlightEntries(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	entries, err := h.Waitlist.GetFlightWaitlist(c.Request().Context(), flightID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewWaitlistAll(entries))
}

// Process runs one offer pass over the flight's waitlist on demand.  The
// engine triggers the same pass automatically whenever capacity frees up.
// Admin only.
//
// POST /v1/flights/:id/waitlist/process
func (h *WaitlistHandler) Process(c echo.Context) error {
	flightID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	offered, err := h.Waitlist.ProcessWaitlist(c.Request().Context(), flightID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"offers_extended": len(offered),
		"entries":         viewWaitlistAll(offered),
	})
}

// SweepOffers triggers one expired-offer sweep pass on demand.  Admin only.
//
// POST /v1/sweeps/offers
func (h *WaitlistHandler) SweepOffers(c echo.Context) error {
	n, err := h.Waitlist.ProcessExpiredOffers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}
