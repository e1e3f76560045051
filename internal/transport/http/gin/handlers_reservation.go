package httpgin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/essodond/Evexticket/internal/domain"
	redisrepo "github.com/essodond/Evexticket/internal/repository/redis"
	"github.com/essodond/Evexticket/internal/service/reservation"
)

const idemLockTTL = 30 * time.Second

// @Summary  Book a seat (idempotent)
// @Param    Idempotency-Key  header  string                    false  "client retry key"
// @Param    req              body    CreateReservationRequest  true   "payload"
// @Success  201  {object}  domain.Reservation
// @Failure  400  {object}  ErrorResponse  "invalid_segment"
// @Failure  409  {object}  ErrorResponse  "seat_conflict / route_inactive / run_inactive / in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Security BearerAuth
// @Router   /reservations [post]
func (h *handler) createReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := domain.ParseDate(req.TravelDate)
	if err != nil {
		badRequest(c, "invalid travel_date (YYYY-MM-DD)")
		return
	}

	caller := identity(c)
	ctx := c.Request.Context()

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	var storageKey string
	if h.idem != nil && idemKey != "" {
		storageKey = redisrepo.KeyIdemReservation(caller.Subject, idemKey)

		state, payload, err := h.idem.Begin(ctx, storageKey, idemLockTTL)
		switch {
		case err != nil:
			// Like the rate limiter, Redis trouble must not block bookings;
			// the request runs without replay protection.
			h.logger.Warn("idempotency store unavailable", "error", err)
			storageKey = ""
		case state == redisrepo.IdemReplay:
			c.Header("Idempotency-Key", idemKey)
			c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
			return
		case state == redisrepo.IdemInProgress:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}
	}

	res, err := h.svcs.Reservation.Create(ctx, caller, reservation.Draft{
		RouteID:           req.RouteID,
		TravelDate:        date,
		SeatNumber:        req.SeatNumber,
		OriginStopID:      req.OriginStopID,
		DestinationStopID: req.DestinationStopID,
		PassengerName:     req.PassengerName,
		PassengerEmail:    req.PassengerEmail,
		PassengerPhone:    req.PassengerPhone,
		PaymentMethod:     domain.PaymentMethod(req.PaymentMethod),
		Notes:             req.Notes,
	}, "ip:"+c.ClientIP())
	if err != nil {
		if storageKey != "" {
			// The request context may already be gone.
			_ = h.idem.Release(context.WithoutCancel(ctx), storageKey)
		}
		respondErr(c, err)
		return
	}

	if storageKey != "" {
		if b, err := json.Marshal(res); err == nil {
			_ = h.idem.Save(context.WithoutCancel(ctx), storageKey, string(b))
		}
		c.Header("Idempotency-Key", idemKey)
	}

	c.JSON(http.StatusCreated, res)
}

// @Summary  List the caller's reservations
// @Success  200  {array}  domain.Reservation
// @Security BearerAuth
// @Router   /reservations [get]
func (h *handler) listReservations(c *gin.Context) {
	list, err := h.svcs.Reservation.ListMine(c.Request.Context(), identity(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	c.JSON(http.StatusOK, list)
}

// @Summary  Get reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /reservations/{id} [get]
func (h *handler) getReservation(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	res, err := h.svcs.Reservation.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type transitionFunc func(ctx context.Context, caller domain.Identity, id int64) (domain.Reservation, error)

func (h *handler) transition(c *gin.Context, fn transitionFunc) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), identity(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary  Confirm a pending reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Failure  409  {object}  ErrorResponse  "invalid_transition"
// @Security BearerAuth
// @Router   /reservations/{id}/confirm [post]
func (h *handler) confirmReservation(c *gin.Context) {
	h.transition(c, h.svcs.Reservation.Confirm)
}

// @Summary  Cancel a reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Security BearerAuth
// @Router   /reservations/{id}/cancel [post]
func (h *handler) cancelReservation(c *gin.Context) {
	h.transition(c, h.svcs.Reservation.Cancel)
}

// @Summary  Mark a confirmed reservation as travelled
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Security BearerAuth
// @Router   /reservations/{id}/complete [post]
func (h *handler) completeReservation(c *gin.Context) {
	h.transition(c, h.svcs.Reservation.Complete)
}

// @Summary  Record the payment of a reservation
// @Param    id   path  int                   true  "Reservation ID"
// @Param    req  body  RecordPaymentRequest  true  "payload"
// @Success  201  {object}  payments.Receipt
// @Failure  409  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /reservations/{id}/payment [post]
func (h *handler) recordPayment(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rc, err := h.svcs.Payments.RecordPayment(c.Request.Context(), identity(c), domain.Payment{
		ReservationID: id,
		Amount:        req.Amount,
		Method:        domain.PaymentMethod(req.Method),
		Status:        domain.PaymentStatus(req.Status),
		TransactionID: req.TransactionID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rc)
}

// @Summary  Get the payment of a reservation
// @Param    id  path  int  true  "Reservation ID"
// @Success  200  {object}  domain.Payment
// @Security BearerAuth
// @Router   /reservations/{id}/payment [get]
func (h *handler) getPayment(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	p, err := h.svcs.Payments.GetPayment(c.Request.Context(), identity(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
