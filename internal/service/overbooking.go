package service

import (
	"context"
	"math"
	"time"

	"github.com/kafaat/airline-seat-inventory/internal/repository"
)

// forecastWindowDays is the trailing window over which booking velocity is
// measured for the demand forecast.
const forecastWindowDays = 14

// OverbookingService is the advisory side of the engine: it recommends an
// oversell allowance from policy configuration and historical no-show data,
// and projects demand from recent booking velocity.  It never mutates the
// ledger – an admin applies recommendations through the allocation façade.
type OverbookingService struct {
	flights   *repository.FlightRepo
	inventory *repository.InventoryRepo
	bookings  *repository.BookingRepo
	configs   *repository.OverbookingRepo
}

// NewOverbookingService constructs an OverbookingService.
func NewOverbookingService(flights *repository.FlightRepo, inventory *repository.InventoryRepo, bookings *repository.BookingRepo, configs *repository.OverbookingRepo) *OverbookingService {
	if flights == nil || inventory == nil || bookings == nil || configs == nil {
		panic("nil dependency passed to NewOverbookingService")
	}
	return &OverbookingService{flights: flights, inventory: inventory, bookings: bookings, configs: configs}
}

// CabinRecommendation is the advisor's output for one cabin.
type CabinRecommendation struct {
	CabinClass       string  `json:"cabin_class"`
	TotalSeats       int     `json:"total_seats"`
	Rate             float64 `json:"rate"`
	NoShowRate       float64 `json:"no_show_rate"`
	RecommendedExtra int     `json:"recommended_extra"`
	MaxOverbooking   int     `json:"max_overbooking"`
	CurrentAllowance int     `json:"current_allowance"`
}

// OverbookingRecommendation summarises the advisor's view of one flight.
type OverbookingRecommendation struct {
	FlightID    uint64                `json:"flight_id"`
	ConfigScope string                `json:"config_scope"`
	Cabins      []CabinRecommendation `json:"cabins"`
}

// CalculateRecommendedOverbooking resolves the most specific active config
// for the flight (route beats airline beats global) and computes, per
// cabin, floor(totalSeats x rate x (1 - noShowRate)) capped by the config's
// hard maximum.  The result is advisory; nothing is written.
func (s *OverbookingService) CalculateRecommendedOverbooking(ctx context.Context, flightID uint64) (*OverbookingRecommendation, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configs.ResolveForFlight(ctx, flight)
	if err != nil {
		return nil, err
	}
	invs, err := s.inventory.ListByFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	rec := &OverbookingRecommendation{FlightID: flightID, ConfigScope: cfg.Scope}
	for _, inv := range invs {
		rate := cfg.RateFor(inv.CabinClass)
		extra := int(math.Floor(float64(inv.TotalSeats) * rate * (1 - cfg.HistoricalNoShowRate)))
		if extra > cfg.MaxOverbooking {
			extra = cfg.MaxOverbooking
		}
		if extra < 0 {
			extra = 0
		}
		rec.Cabins = append(rec.Cabins, CabinRecommendation{
			CabinClass:       inv.CabinClass,
			TotalSeats:       inv.TotalSeats,
			Rate:             rate,
			NoShowRate:       cfg.HistoricalNoShowRate,
			RecommendedExtra: extra,
			MaxOverbooking:   cfg.MaxOverbooking,
			CurrentAllowance: inv.OverbookingAllowance,
		})
	}
	return rec, nil
}

// DemandForecast projects bookings for a flight from recent velocity.
type DemandForecast struct {
	FlightID        uint64  `json:"flight_id"`
	DaysAhead       int     `json:"days_ahead"`
	TotalSeats      int     `json:"total_seats"`
	BookedSeats     int     `json:"booked_seats"`
	LoadFactor      float64 `json:"load_factor"`
	DailyVelocity   float64 `json:"daily_velocity"`
	ProjectedDemand int     `json:"projected_demand"`
	ProjectedTotal  int     `json:"projected_total"`
	SellOutLikely   bool    `json:"sell_out_likely"`
}

// ForecastDemand measures seats booked over the trailing two weeks,
// extrapolates that velocity daysAhead days forward, and reports whether
// the projection exceeds remaining physical capacity.  Admin tooling uses
// this alongside the overbooking recommendation to decide allowances.
func (s *OverbookingService) ForecastDemand(ctx context.Context, flightID uint64, daysAhead int) (*DemandForecast, error) {
	if daysAhead < 1 {
		daysAhead = 1
	}
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	invs, err := s.inventory.ListByFlight(ctx, flight.ID)
	if err != nil {
		return nil, err
	}
	totalSeats := 0
	bookedSeats := 0
	for _, inv := range invs {
		totalSeats += inv.TotalSeats
		booked, err := s.bookings.BookedSeats(ctx, flightID, inv.CabinClass)
		if err != nil {
			return nil, err
		}
		bookedSeats += booked
	}
	since := time.Now().UTC().AddDate(0, 0, -forecastWindowDays)
	recent, err := s.bookings.SeatsBookedSince(ctx, flightID, since)
	if err != nil {
		return nil, err
	}
	velocity := float64(recent) / float64(forecastWindowDays)
	projected := int(math.Ceil(velocity * float64(daysAhead)))
	fc := &DemandForecast{
		FlightID:        flightID,
		DaysAhead:       daysAhead,
		TotalSeats:      totalSeats,
		BookedSeats:     bookedSeats,
		DailyVelocity:   velocity,
		ProjectedDemand: projected,
		ProjectedTotal:  bookedSeats + projected,
	}
	if totalSeats > 0 {
		fc.LoadFactor = float64(bookedSeats) / float64(totalSeats)
	}
	fc.SellOutLikely = fc.ProjectedTotal >= totalSeats
	return fc, nil
}
