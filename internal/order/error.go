package order

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidOrder   = errors.New("invalid order request")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrInvalidOrderID = errors.New("invalid order id")

	// -- Assembly --
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")

	// -- Resource State --
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// -- Database & Operation Failures --
	ErrFailedCreateOrder = errors.New("failed to create order")
	ErrFailedGetOrder    = errors.New("failed to get order")
	ErrFailedUpdateOrder = errors.New("failed to update order")
)
