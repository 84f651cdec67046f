package main

import (
	"context"
	"flag"
	"log"
	"os"

	"course-marketplace/internal/config"
	pg "course-marketplace/internal/infra/db/postgres"
)

// Resets the database to a clean, predictable state for manual end-to-end
// testing of the checkout flow: applies the schema and wipes all data.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	schemaPath := flag.String("schema", "deploy/postgres/init.sql", "path to schema file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	log.Println("[1/2] Applying schema...")
	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	log.Println("[2/2] Wiping all existing data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE course_tiers, promo_codes, purchases, referral_credits
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("truncate tables: %v", err)
	}

	log.Println("E2E environment ready. Run cmd/seed to load demo data.")
}
