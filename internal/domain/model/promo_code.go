package model

import (
	"strings"
	"time"

	"course-marketplace/internal/domain"
)

type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent" // value is 0..100
	DiscountFixed   DiscountKind = "fixed"   // value is USD cents
)

// PromoCode is an operator-managed discount rule. Codes are matched
// case-insensitively and soft-deleted so purchases keep their audit reference.
type PromoCode struct {
	ID             string
	Code           string // stored normalized (upper-case, trimmed)
	Kind           DiscountKind
	Value          int64
	MaxUses        *int // global cap; nil = unlimited
	MaxUsesPerUser *int
	UsedCount      int
	TierID         *string        // nil = any tier
	Method         *PaymentMethod // nil = any method
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

// NormalizePromoCode canonicalizes a user-supplied code string.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPromoCode validates and constructs a promo code.
func NewPromoCode(id, code string, kind DiscountKind, value int64) (*PromoCode, error) {
	code = NormalizePromoCode(code)
	if id == "" || code == "" || value <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	switch kind {
	case DiscountPercent:
		if value > 100 {
			return nil, domain.ErrInvalidArgument
		}
	case DiscountFixed:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &PromoCode{
		ID:        id,
		Code:      code,
		Kind:      kind,
		Value:     value,
		CreatedAt: time.Now(),
	}, nil
}

// Expired reports whether the code is past its expiry at the given instant.
func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// Restricts reports whether the code's optional tier/method restriction
// rejects the given request.
func (p *PromoCode) Restricts(tierID string, method PaymentMethod) bool {
	if p.TierID != nil && *p.TierID != tierID {
		return true
	}
	if p.Method != nil && *p.Method != method {
		return true
	}
	return false
}

// DiscountFor computes the discount in cents for a base price, clamped so the
// remaining due amount never goes below zero.
func (p *PromoCode) DiscountFor(baseCents int64) int64 {
	var d int64
	switch p.Kind {
	case DiscountPercent:
		d = baseCents * p.Value / 100
	case DiscountFixed:
		d = p.Value
	}
	if d > baseCents {
		d = baseCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
