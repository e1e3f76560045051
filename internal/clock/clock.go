// Package clock supplies "today" in the operator's time zone.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/essodond/Evexticket/internal/domain"
)

type Clock interface {
	// Today returns the current civil date at UTC midnight.
	Today() time.Time
}

type Zoned struct {
	loc *time.Location
	now func() time.Time
}

// New returns a clock reading the wall time in the named IANA zone.
func New(zone string) (*Zoned, error) {
	const op = "clock.New"

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Zoned{loc: loc, now: time.Now}, nil
}

func (z *Zoned) Today() time.Time {
	return domain.CivilDate(z.now().In(z.loc))
}

// Fixed always reports the same date. Used by tests and one-off commands.
type Fixed time.Time

func (f Fixed) Today() time.Time {
	return domain.CivilDate(time.Time(f))
}
