package apperrors

import "errors"

// Standardized Exchange Errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrOrderRejected         = errors.New("order rejected")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrNetwork               = errors.New("network error")
	ErrOrderNotFound         = errors.New("order not found")
	ErrDuplicateOrder        = errors.New("duplicate order")
	ErrInvalidOrderParameter = errors.New("invalid order parameter")
)

// Strategy decision errors
var (
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInsufficientCash      = errors.New("insufficient cash balance")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)
