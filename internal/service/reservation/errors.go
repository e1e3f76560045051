package reservation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrNoSeatsAvailable     = errors.New("no seats available on this segment")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrConcurrentUpdate     = errors.New("reservation changed concurrently")
	ErrForbidden            = errors.New("not allowed for this caller")
	ErrPastDate             = errors.New("travel date is in the past")
	ErrIdentityRequired     = errors.New("caller identity required")
	ErrInvalidReservation   = errors.New("invalid reservation")
	ErrRateLimited          = errors.New("rate limited")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
)

// RateLimitedError carries how long the caller should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// TransitionError names the refused status change.
type TransitionError struct {
	From, To string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
}

func (e TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
