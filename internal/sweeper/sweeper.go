// Package sweeper runs the periodic reclamation loop: expired seat holds
// are credited back to the ledger and lapsed waitlist offers are flipped,
// with the freed capacity cascading to the next entries in line.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/kafaat/airline-seat-inventory/internal/service"
)

// Sweeper ticks at a fixed interval and drives both expiry sweeps.  Every
// transition it performs is guarded in SQL, so overlapping runs (another
// instance, or the admin sweep endpoints) are harmless.
type Sweeper struct {
	alloc    *service.AllocationService
	waitlist *service.WaitlistService
	interval time.Duration
}

// New constructs a Sweeper.
func New(alloc *service.AllocationService, waitlist *service.WaitlistService, interval time.Duration) *Sweeper {
	if alloc == nil || waitlist == nil {
		panic("nil service passed to sweeper.New")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{alloc: alloc, waitlist: waitlist, interval: interval}
}

// Run blocks until ctx is cancelled, running one sweep pass per tick.
// Errors are logged and the loop keeps going; a transient database outage
// only delays reclamation until the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n, err := s.alloc.ExpireOldHolds(ctx); err != nil {
		log.Printf("sweeper: hold sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: expired %d holds", n)
	}
	if n, err := s.waitlist.ProcessExpiredOffers(ctx); err != nil {
		log.Printf("sweeper: offer sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: expired %d offers", n)
	}
}
