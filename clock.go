package cashledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/xraph/cashledger/types"
)

// Clock supplies the ledger's "today". Statuses and default dates are
// derived from it, so every store shares one calendar.
type Clock interface {
	Today() types.Date
}

type zoneClock struct {
	loc *time.Location
}

func (c zoneClock) Today() types.Date { return types.DateOf(time.Now().In(c.loc)) }

// NewClock returns a wall clock in the named IANA zone. An empty or
// unknown zone is an error; callers treat it as fatal at startup.
func NewClock(timezone string) (Clock, error) {
	if timezone == "" {
		return nil, fmt.Errorf("cashledger: clock: timezone is required")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("cashledger: clock: %w", err)
	}
	return zoneClock{loc: loc}, nil
}

// FixedClock is a settable clock for tests and back-dated runs.
type FixedClock struct {
	mu    sync.RWMutex
	today types.Date
}

// NewFixedClock returns a clock stuck on d.
func NewFixedClock(d types.Date) *FixedClock {
	return &FixedClock{today: d}
}

func (c *FixedClock) Today() types.Date {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.today
}

// Set moves the clock to d.
func (c *FixedClock) Set(d types.Date) {
	c.mu.Lock()
	c.today = d
	c.mu.Unlock()
}
