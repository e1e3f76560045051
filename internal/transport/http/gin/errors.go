package httpgin

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/essodond/Evexticket/internal/domain"
	"github.com/essodond/Evexticket/internal/service/admin"
	"github.com/essodond/Evexticket/internal/service/payments"
	"github.com/essodond/Evexticket/internal/service/query"
	"github.com/essodond/Evexticket/internal/service/reports"
	"github.com/essodond/Evexticket/internal/service/reservation"
	"github.com/essodond/Evexticket/internal/service/runs"
)

var domainStatus = map[domain.Code]int{
	domain.CodeStopNotFound:   http.StatusNotFound,
	domain.CodeInvalidSegment: http.StatusBadRequest,
	domain.CodeSeatConflict:   http.StatusConflict,
	domain.CodeRouteInactive:  http.StatusConflict,
	domain.CodeRunInactive:    http.StatusConflict,
}

var sentinelStatus = []struct {
	err    error
	status int
	msg    string
}{
	// route and catalog
	{domain.ErrInvalidRoute, http.StatusBadRequest, ""},
	{domain.ErrDuplicateSequence, http.StatusBadRequest, ""},
	{admin.ErrCompanyConflict, http.StatusConflict, "company already exists"},
	{admin.ErrCityConflict, http.StatusConflict, "city already exists"},
	{admin.ErrCompanyNotFound, http.StatusNotFound, "company not found"},
	{admin.ErrRouteNotFound, http.StatusNotFound, "route not found"},
	{admin.ErrUnknownReference, http.StatusUnprocessableEntity, "company or city does not exist"},
	{admin.ErrInvalidInput, http.StatusBadRequest, ""},
	{admin.ErrForbidden, http.StatusForbidden, "forbidden"},
	{runs.ErrRouteNotFound, http.StatusNotFound, "route not found"},
	{runs.ErrForbidden, http.StatusForbidden, "forbidden"},

	// search
	{query.ErrRouteNotFound, http.StatusNotFound, "route not found"},
	{query.ErrInvalidPassenger, http.StatusBadRequest, "invalid passenger count"},

	// reservations
	{reservation.ErrRouteNotFound, http.StatusNotFound, "route not found"},
	{reservation.ErrReservationNotFound, http.StatusNotFound, "reservation not found"},
	{reservation.ErrNoSeatsAvailable, http.StatusConflict, "no seats available on this segment"},
	{reservation.ErrInvalidTransition, http.StatusConflict, ""},
	{reservation.ErrConcurrentUpdate, http.StatusConflict, "reservation changed, retry"},
	{reservation.ErrForbidden, http.StatusForbidden, "forbidden"},
	{reservation.ErrIdentityRequired, http.StatusUnauthorized, "authentication required"},
	{reservation.ErrPastDate, http.StatusBadRequest, "travel date is in the past"},
	{reservation.ErrInvalidReservation, http.StatusBadRequest, ""},
	{reservation.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid payment method"},

	// payments
	{payments.ErrPaymentExists, http.StatusConflict, "reservation already has a payment"},
	{payments.ErrPaymentNotFound, http.StatusNotFound, "payment not found"},
	{payments.ErrReservationNotFound, http.StatusNotFound, "reservation not found"},
	{payments.ErrReservationNotPayable, http.StatusConflict, "reservation can no longer be paid"},
	{payments.ErrAmountMismatch, http.StatusUnprocessableEntity, ""},
	{payments.ErrInvalidPayment, http.StatusBadRequest, "invalid payment"},
	{payments.ErrForbidden, http.StatusForbidden, "forbidden"},
	{payments.ErrConcurrentUpdate, http.StatusConflict, "reservation changed, retry"},

	// reports
	{reports.ErrForbidden, http.StatusForbidden, "forbidden"},
	{reports.ErrRouteNotFound, http.StatusNotFound, "route not found"},
	{reports.ErrInvalidRange, http.StatusBadRequest, "invalid date range"},
}

// respondErr maps service and domain errors to a status and an
// ErrorResponse. Anything unknown is a 500 and is attached to the context
// for the access log.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl reservation.RateLimitedError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "rate_limited"})
		return
	}

	if de, ok := domain.AsError(err); ok {
		status, known := domainStatus[de.Code]
		if !known {
			status = http.StatusBadRequest
		}
		c.JSON(status, ErrorResponse{Error: de.Message, Code: string(de.Code), Field: de.Field})
		return
	}

	var te reservation.TransitionError
	if errors.As(err, &te) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: te.Error(), Code: "invalid_transition"})
		return
	}

	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			msg := s.msg
			if msg == "" {
				msg = unwrapMessage(err)
			}
			c.JSON(s.status, ErrorResponse{Error: msg})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// unwrapMessage drops the "op: " prefixes added on the way up and keeps
// the sentinel with its detail.
func unwrapMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		if errors.Unwrap(next) == nil {
			// err wraps the sentinel directly: keep err's detail.
			return trimOps(err.Error(), next.Error())
		}
		err = next
	}
}

func trimOps(msg, sentinel string) string {
	for i := 0; i+len(sentinel) <= len(msg); i++ {
		if msg[i:i+len(sentinel)] == sentinel {
			return msg[i:]
		}
	}
	return sentinel
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
