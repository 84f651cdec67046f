package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-marketplace/internal/usecase"
)

// SweepWorker periodically fails PENDING purchases whose payment window has
// closed. It is the only asynchronous actor in the purchase engine; the
// transition it performs uses the same compare-and-set as confirmation, so it
// can never race a proof being accepted at the deadline boundary.
type SweepWorker struct {
	interval   time.Duration
	purchaseUC usecase.PurchaseUseCase
	log        *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, purchaseUC usecase.PurchaseUseCase, logger *zerolog.Logger) *SweepWorker {
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{interval: interval, purchaseUC: purchaseUC, log: &l}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting payment-window sweep")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping payment-window sweep")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.purchaseUC.ExpireOverdue(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("overdue purchases failed")
			}
		}
	}
}
