package model

import (
	"time"

	"course-marketplace/internal/domain"
)

type PaymentMethod string

const (
	MethodFree    PaymentMethod = "free"
	MethodUSDT    PaymentMethod = "usdt"
	MethodLibyana PaymentMethod = "libyana"
	MethodMadar   PaymentMethod = "madar"
)

// ParsePaymentMethod validates a wire-format method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodFree, MethodUSDT, MethodLibyana, MethodMadar:
		return PaymentMethod(s), nil
	}
	return "", domain.ErrUnknownMethod
}

// ManualConfirmation reports whether the method settles through an operator
// checking a balance-transfer record rather than an on-chain lookup.
func (m PaymentMethod) ManualConfirmation() bool {
	return m == MethodLibyana || m == MethodMadar
}

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusConfirmed PurchaseStatus = "CONFIRMED" // terminal success
	PurchaseStatusFailed    PurchaseStatus = "FAILED"    // terminal failure
)

// Terminal reports whether no further transition is allowed.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseStatusConfirmed || s == PurchaseStatusFailed
}

// Purchase is the financial record of a checkout. Rows are never deleted;
// status only moves PENDING -> CONFIRMED or PENDING -> FAILED.
type Purchase struct {
	ID     string // ULID, time-sortable
	UserID string
	TierID string
	Method PaymentMethod
	Status PurchaseStatus

	// Prices are USD cents captured at creation; FinalPriceCents is what the
	// ledger holds the user to, local-currency amounts are presentational.
	BasePriceCents  int64
	FinalPriceCents int64

	PromoCode    *string // normalized code, nil if none applied
	ReferralCode *string

	// Proof fields are write-once and only while PENDING.
	TxHash    *string // usdt
	FromPhone *string // libyana / madar

	CourseLanguage string

	CreatedAt   time.Time
	ExpiresAt   *time.Time // payment window deadline; nil for free purchases
	ConfirmedAt *time.Time
}

// Active reports whether the purchase blocks a re-purchase of the same tier.
func (p *Purchase) Active() bool {
	return p.Status == PurchaseStatusPending || p.Status == PurchaseStatusConfirmed
}

// HasProof reports whether a payment proof has already been recorded.
func (p *Purchase) HasProof() bool {
	return (p.TxHash != nil && *p.TxHash != "") || (p.FromPhone != nil && *p.FromPhone != "")
}
