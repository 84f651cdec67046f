package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
)

// PurchaseUseCase owns the purchase lifecycle after creation: proof intake,
// the PENDING -> CONFIRMED/FAILED transitions, and the payment-window sweep.
//
// Confirm and Fail are idempotent: the first caller wins the transition, later
// callers get the current record back without error, which makes the
// confirmation endpoints safe to retry or double-submit.
type PurchaseUseCase interface {
	// SubmitProof records user-submitted payment evidence. For usdt the hash
	// is handed to an external reconciliation process; for libyana/madar the
	// purchase stays PENDING awaiting operator confirmation. Proof fields are
	// write-once.
	SubmitProof(ctx context.Context, userID, purchaseID string, txHash, fromPhone string) error
	GetForUser(ctx context.Context, userID, purchaseID string) (*model.Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error)
	// Confirm moves a PENDING purchase to CONFIRMED (operator action or
	// on-chain reconciliation outcome).
	Confirm(ctx context.Context, purchaseID string) (*model.Purchase, error)
	// Fail moves a PENDING purchase to FAILED and releases any promo use.
	Fail(ctx context.Context, purchaseID string) (*model.Purchase, error)
	// ExpireOverdue fails PENDING purchases whose payment window has closed.
	// Called by the sweep worker; returns how many purchases were failed.
	ExpireOverdue(ctx context.Context) (int, error)
}

var _ PurchaseUseCase = (*purchaseUC)(nil)

type purchaseUC struct {
	purchases  repository.PurchaseRepository
	promos     repository.PromoCodeRepository
	referrals  repository.ReferralCreditRepository
	tm         repository.TransactionManager
	sweepBatch int
	log        *zerolog.Logger
}

func NewPurchaseUseCase(
	purchases repository.PurchaseRepository,
	promos repository.PromoCodeRepository,
	referrals repository.ReferralCreditRepository,
	tm repository.TransactionManager,
	sweepBatch int,
	logger *zerolog.Logger,
) *purchaseUC {
	if sweepBatch <= 0 {
		sweepBatch = 100
	}
	l := logger.With().Str("component", "PurchaseUC").Logger()
	return &purchaseUC{
		purchases: purchases, promos: promos, referrals: referrals,
		tm: tm, sweepBatch: sweepBatch, log: &l,
	}
}

func (u *purchaseUC) SubmitProof(ctx context.Context, userID, purchaseID string, txHash, fromPhone string) error {
	p, err := u.purchases.FindByID(ctx, repository.NoTX, purchaseID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return domain.ErrNotFound
	}
	if p.Status != model.PurchaseStatusPending {
		return domain.ErrPurchaseNotPending
	}
	if p.HasProof() {
		return domain.ErrProofAlreadySubmitted
	}

	txHash = strings.TrimSpace(txHash)
	fromPhone = strings.TrimSpace(fromPhone)

	var hashPtr, phonePtr *string
	switch {
	case p.Method == model.MethodUSDT:
		if txHash == "" {
			return domain.ErrProofMismatch
		}
		hashPtr = &txHash
	case p.Method.ManualConfirmation():
		if fromPhone == "" {
			return domain.ErrProofMismatch
		}
		phonePtr = &fromPhone
	default:
		// Free purchases never take proof.
		return domain.ErrProofMismatch
	}

	// The conditional update re-checks status and emptiness, so a concurrent
	// submission or a sweep racing this call cannot double-write.
	ok, err := u.purchases.SetProofIfAbsent(ctx, repository.NoTX, purchaseID, hashPtr, phonePtr)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProofAlreadySubmitted
	}
	u.log.Info().Str("purchase_id", purchaseID).Str("method", string(p.Method)).Msg("payment proof recorded")
	return nil
}

func (u *purchaseUC) GetForUser(ctx context.Context, userID, purchaseID string) (*model.Purchase, error) {
	p, err := u.purchases.FindByID(ctx, repository.NoTX, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (u *purchaseUC) ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	return u.purchases.ListByUser(ctx, repository.NoTX, userID)
}

func (u *purchaseUC) Confirm(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	var out *model.Purchase
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		won, err := u.purchases.UpdateStatusIfPending(ctx, tx, purchaseID, model.PurchaseStatusConfirmed, &now)
		if err != nil {
			return err
		}
		p, err := u.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		out = p
		if !won {
			// Already terminal; benign no-op.
			return nil
		}
		if p.ReferralCode != nil {
			credit := &model.ReferralCredit{
				ID:         ulid.Make().String(),
				Code:       *p.ReferralCode,
				PurchaseID: p.ID,
				UserID:     p.UserID,
				TierID:     p.TierID,
				CreatedAt:  now,
			}
			if err := u.referrals.Save(ctx, tx, credit); err != nil {
				return err
			}
		}
		metrics.IncPurchase(string(p.Method), string(model.PurchaseStatusConfirmed))
		metrics.AddPurchaseRevenue(string(p.Method), p.FinalPriceCents)
		u.log.Info().Str("purchase_id", p.ID).Msg("purchase confirmed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *purchaseUC) Fail(ctx context.Context, purchaseID string) (*model.Purchase, error) {
	var out *model.Purchase
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		won, err := u.purchases.UpdateStatusIfPending(ctx, tx, purchaseID, model.PurchaseStatusFailed, nil)
		if err != nil {
			return err
		}
		p, err := u.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		out = p
		if !won {
			return nil
		}
		if err := u.releasePromo(ctx, tx, p); err != nil {
			return err
		}
		metrics.IncPurchase(string(p.Method), string(model.PurchaseStatusFailed))
		u.log.Info().Str("purchase_id", p.ID).Msg("purchase failed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// releasePromo returns a consumed use to the code's global counter so an
// abandoned checkout does not burn a capped code.
func (u *purchaseUC) releasePromo(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if p.PromoCode == nil {
		return nil
	}
	pc, err := u.promos.FindByCode(ctx, tx, *p.PromoCode)
	if err != nil {
		// The code may have been soft-deleted since; the purchase record
		// keeps the audit reference either way.
		return nil
	}
	return u.promos.ReleaseUse(ctx, tx, pc.ID)
}

func (u *purchaseUC) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := u.purchases.ListPendingExpired(ctx, repository.NoTX, time.Now(), u.sweepBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range overdue {
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			// The compare-and-set also asserts no proof is on file, so a
			// proof landing between the listing and this transition keeps
			// the purchase PENDING for manual review.
			won, err := u.purchases.ExpireIfUnproven(ctx, tx, p.ID)
			if err != nil || !won {
				return err
			}
			if err := u.releasePromo(ctx, tx, p); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil {
			u.log.Error().Err(err).Str("purchase_id", p.ID).Msg("sweep transition failed")
		}
	}
	if n > 0 {
		metrics.IncPurchasesExpired(n)
	}
	return n, nil
}
