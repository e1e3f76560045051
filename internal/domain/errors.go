package domain

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeStopNotFound   Code = "stop_not_found"
	CodeInvalidSegment Code = "invalid_segment"
	CodeSeatConflict   Code = "seat_conflict"
	CodeRouteInactive  Code = "route_inactive"
	CodeRunInactive    Code = "run_inactive"
)

// Error is a booking-core failure naming the case and the offending field.
type Error struct {
	Code    Code
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// Is matches any *Error with the same code, so callers can test against
// the sentinels below regardless of field and message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrStopNotFound   = &Error{Code: CodeStopNotFound, Message: "stop not found"}
	ErrInvalidSegment = &Error{Code: CodeInvalidSegment, Message: "invalid segment"}
	ErrSeatConflict   = &Error{Code: CodeSeatConflict, Message: "seat already reserved"}
	ErrRouteInactive  = &Error{Code: CodeRouteInactive, Message: "route is not bookable"}
	ErrRunInactive    = &Error{Code: CodeRunInactive, Message: "run is not bookable"}

	ErrDuplicateSequence = errors.New("duplicate stop sequence")
	ErrInvalidRoute      = errors.New("invalid route")
)

func StopNotFound(field, text string) *Error {
	return &Error{Code: CodeStopNotFound, Field: field, Message: fmt.Sprintf("%q does not match any stop", text)}
}

func InvalidSegment(field, msg string) *Error {
	return &Error{Code: CodeInvalidSegment, Field: field, Message: msg}
}

func SeatConflict(seat string) *Error {
	return &Error{Code: CodeSeatConflict, Field: "seat_number", Message: fmt.Sprintf("seat %q is already reserved on an overlapping segment", seat)}
}

// AsError extracts the taxonomy error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func RouteInactive(routeID int64) *Error {
	return &Error{Code: CodeRouteInactive, Field: "route_id", Message: fmt.Sprintf("route %d is not active", routeID)}
}

func RunInactive(routeID int64, date string) *Error {
	return &Error{Code: CodeRunInactive, Field: "travel_date", Message: fmt.Sprintf("route %d does not run on %s", routeID, date)}
}
