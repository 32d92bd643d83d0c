package model

// Overbooking config scopes, from most to least specific.  When several
// active configs match a flight, route wins over airline wins over global.
const (
	ScopeRoute   = "route"
	ScopeAirline = "airline"
	ScopeGlobal  = "global"
)

// OverbookingConfig holds the policy inputs for the overbooking advisor.
// Exactly one of the identifying keys is set depending on Scope: route
// configs carry Origin/Destination, airline configs carry AirlineCode and
// global configs carry neither.
//
// Fields:
//  ID                    – primary key identifier.
//  Scope                 – route, airline or global.
//  AirlineCode           – carrier code for airline-scoped configs.
//  Origin, Destination   – airport pair for route-scoped configs.
//  EconomyRate           – oversell fraction for economy (e.g. 0.05).
//  BusinessRate          – oversell fraction for business and first.
//  MaxOverbooking        – hard cap on extra seats beyond capacity.
//  HistoricalNoShowRate  – observed no-show fraction feeding the formula.
//  IsActive              – inactive configs are ignored by resolution.
type OverbookingConfig struct {
	ID                   uint64  // overbooking_configs.id
	Scope                string  // overbooking_configs.scope
	AirlineCode          *string // overbooking_configs.airline_code (nullable)
	Origin               *string // overbooking_configs.origin (nullable)
	Destination          *string // overbooking_configs.destination (nullable)
	EconomyRate          float64 // overbooking_configs.economy_rate
	BusinessRate         float64 // overbooking_configs.business_rate
	MaxOverbooking       int     // overbooking_configs.max_overbooking
	HistoricalNoShowRate float64 // overbooking_configs.historical_no_show_rate
	IsActive             bool    // overbooking_configs.is_active
}

// RateFor returns the oversell fraction for the given cabin.  Business and
// first share the premium rate.
func (c OverbookingConfig) RateFor(cabin string) float64 {
	if cabin == CabinEconomy {
		return c.EconomyRate
	}
	return c.BusinessRate
}
