package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"course-marketplace/internal/config"
	"course-marketplace/internal/domain/model"
	pg "course-marketplace/internal/infra/db/postgres"
	"course-marketplace/internal/infra/logging"
	"course-marketplace/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	catalogUC := usecase.NewCatalogUseCase(pg.NewTierRepo(pool), logger)
	promoUC := usecase.NewPromoUseCase(pg.NewPromoRepo(pool), logger)

	// If tiers already exist, do nothing.
	tiers, err := catalogUC.List(ctx)
	if err != nil {
		log.Fatalf("list tiers: %v", err)
	}
	if len(tiers) > 0 {
		fmt.Printf("%d tiers already present. No changes.\n", len(tiers))
		for _, t := range tiers {
			fmt.Printf("  - %s (usd_cents=%d, lyd_dirhams=%d)\n", t.Name, t.PriceUSDCents, t.PriceLYDDirhams)
		}
		return
	}

	seed := []struct {
		Name     string
		Desc     string
		USDCents int64
		LYD      int64
		Level    string
	}{
		{"Starter", "Introductory trading course", 0, 0, "beginner"},
		{"Advanced", "Full strategy curriculum", 10_000, 48_500, "intermediate"},
		{"Mentorship", "One-on-one mentorship tier", 50_000, 242_500, "advanced"},
	}
	for _, s := range seed {
		t, err := catalogUC.Create(ctx, s.Name, s.Desc, s.USDCents, s.LYD, s.Level, "")
		if err != nil {
			log.Fatalf("create tier %q: %v", s.Name, err)
		}
		fmt.Printf("created tier %s (%s)\n", t.Name, t.ID)
	}

	// A couple of demo promo codes for manual checkout testing.
	maxUses := 100
	if _, err := promoUC.Create(ctx, "LAUNCH20", model.DiscountPercent, 20, &maxUses, nil, nil, nil, nil); err != nil {
		log.Fatalf("create promo: %v", err)
	}
	perUser := 1
	if _, err := promoUC.Create(ctx, "WELCOME5", model.DiscountFixed, 500, nil, &perUser, nil, nil, nil); err != nil {
		log.Fatalf("create promo: %v", err)
	}
	fmt.Println("seed complete")
}
