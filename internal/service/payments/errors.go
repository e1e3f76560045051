package payments

import "errors"

var (
	ErrPaymentExists         = errors.New("reservation already has a payment")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrReservationNotPayable = errors.New("reservation can no longer be paid")
	ErrAmountMismatch        = errors.New("amount does not cover the reservation price")
	ErrInvalidPayment        = errors.New("invalid payment")
	ErrForbidden             = errors.New("not allowed to pay for this reservation")
	ErrConcurrentUpdate      = errors.New("reservation changed concurrently")
)
