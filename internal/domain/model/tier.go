package model

import (
	"time"

	"course-marketplace/internal/domain"
)

// CourseTier is a purchasable course package. Prices are captured onto the
// Purchase at checkout time; editing a tier never rewrites past purchases.
type CourseTier struct {
	ID          string
	Name        string
	Description string
	// PriceUSDCents is the reference (ledger) price in USDT cents.
	PriceUSDCents int64
	// PriceLYDDirhams is the operator-set local display price in dirhams.
	// Zero means "derive from the configured conversion rate".
	PriceLYDDirhams int64
	Level           string
	Instructor      string
	CoverURL        string
	CreatedAt       time.Time
}

func (t *CourseTier) IsZero() bool { return t == nil || t.ID == "" }

// Free reports whether the tier is granted without payment.
func (t *CourseTier) Free() bool { return t.PriceUSDCents <= 0 }

// NewCourseTier validates and constructs a tier.
func NewCourseTier(id, name string, priceUSDCents, priceLYDDirhams int64, level string) (*CourseTier, error) {
	if id == "" || name == "" || priceUSDCents < 0 || priceLYDDirhams < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &CourseTier{
		ID:              id,
		Name:            name,
		PriceUSDCents:   priceUSDCents,
		PriceLYDDirhams: priceLYDDirhams,
		Level:           level,
		CreatedAt:       time.Now(),
	}, nil
}
