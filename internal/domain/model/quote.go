package model

// Promo rejection reasons surfaced on a quote so the client can message the
// exact failure instead of inferring it from the numbers.
const (
	PromoReasonNotFound   = "not_found"
	PromoReasonExpired    = "expired"
	PromoReasonRestricted = "restricted"
	PromoReasonExhausted  = "exhausted"
	PromoReasonUserCap    = "user_cap"
)

// Quote is the amount due for a (tier, method, country, promo) tuple. All
// amounts are USD cents except the Local* pair, which is a display-only
// conversion for the balance-transfer rails.
type Quote struct {
	TierID   string
	Method   PaymentMethod
	BaseUsed int64
	Discount int64
	Due      int64
	Currency string // always "USDT"

	// LocalDue/LocalCurrency are set only for libyana/madar in the local
	// market; the ledger amount remains Due.
	LocalDue      int64
	LocalCurrency string

	// PricingApplied is true iff a promo code was supplied and accepted.
	// PromoReason carries the rejection reason when a supplied code was not
	// applied; it is empty when no code was supplied at all.
	PricingApplied bool
	PromoReason    string
}
