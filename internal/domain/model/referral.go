package model

import "time"

// ReferralCredit is the historical trail of a referral attribution: one row
// per confirmed purchase that carried a referral code. Referral codes never
// expire and have no usage cap; they do not affect price on their own.
type ReferralCredit struct {
	ID         string
	Code       string
	PurchaseID string
	UserID     string
	TierID     string
	CreatedAt  time.Time
}
