package repository

import (
	"context"
	"database/sql"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// OverbookingRepo reads the policy inputs of the overbooking advisor.
// Configs are layered by scope and the most specific active one wins:
// route beats airline beats global.
type OverbookingRepo struct {
	db *sql.DB
}

// NewOverbookingRepo returns a new OverbookingRepo bound to the provided database.
func NewOverbookingRepo(db *sql.DB) *OverbookingRepo { return &OverbookingRepo{db: db} }

// ResolveForFlight returns the active config governing the given flight.
// Resolution happens in a single query: all matching scopes are collected
// and ordered route first, airline second, global last.  ErrNotFound is
// returned when no active config matches at any scope.
func (r *OverbookingRepo) ResolveForFlight(ctx context.Context, f *model.Flight) (*model.OverbookingConfig, error) {
	const q = `SELECT id, scope, airline_code, origin, destination,
	                  economy_rate, business_rate, max_overbooking, historical_no_show_rate, is_active
	           FROM overbooking_configs
	           WHERE is_active = 1 AND (
	                 (scope = 'route' AND origin = ? AND destination = ?)
	              OR (scope = 'airline' AND airline_code = ?)
	              OR scope = 'global')
	           ORDER BY FIELD(scope, 'route', 'airline', 'global')
	           LIMIT 1`
	var c model.OverbookingConfig
	var airline, origin, destination sql.NullString
	err := r.db.QueryRowContext(ctx, q, f.Origin, f.Destination, f.AirlineCode).Scan(
		&c.ID, &c.Scope, &airline, &origin, &destination,
		&c.EconomyRate, &c.BusinessRate, &c.MaxOverbooking, &c.HistoricalNoShowRate, &c.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if airline.Valid {
		v := airline.String
		c.AirlineCode = &v
	}
	if origin.Valid {
		v := origin.String
		c.Origin = &v
	}
	if destination.Valid {
		v := destination.String
		c.Destination = &v
	}
	return &c, nil
}
