package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Checkout / purchase errors
	ErrAlreadyEnrolled       = errors.New("user already has an active purchase for this tier")
	ErrUnknownMethod         = errors.New("unknown payment method")
	ErrPromoNotApplicable    = errors.New("promo code not applicable")
	ErrPromoExhausted        = errors.New("promo code usage cap reached")
	ErrPurchaseNotPending    = errors.New("purchase is not pending")
	ErrProofAlreadySubmitted = errors.New("payment proof already submitted")
	ErrProofMismatch         = errors.New("proof does not match payment method")
	ErrCheckoutLocked        = errors.New("another checkout is in progress for this user")
)
