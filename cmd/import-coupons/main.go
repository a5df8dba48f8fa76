package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/parkops/pricingservice/internal/config"
	"github.com/parkops/pricingservice/internal/db"
	sharedlog "github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: import-coupons <csv-file-path> [config.yaml]")
	}

	csvFilePath := os.Args[1]
	configPath := "config.yaml"
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		log.Fatal("postgres.dsn must be set to import coupons")
	}

	if err := sharedlog.Init(cfg.Log.Level, "import-coupons"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	dbConfig := db.DefaultConfig(cfg.Postgres.DSN)
	dbConfig.MaxConns = cfg.Postgres.MaxConns
	dbPool, err := db.NewPool(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer dbPool.Close()

	store := postgres.NewStore(dbPool.Pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare coupon schema: %v", err)
	}

	file, err := os.Open(csvFilePath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	coupons, skipped, err := readCoupons(file)
	if err != nil {
		log.Fatalf("Failed to read coupons from CSV: %v", err)
	}
	for _, s := range skipped {
		fmt.Printf("Warning: %v\n", s)
	}
	fmt.Printf("Loaded %d coupons from CSV\n", len(coupons))

	for _, coupon := range coupons {
		if err := store.Upsert(ctx, coupon); err != nil {
			log.Fatalf("Failed to import coupon %s: %v", coupon.Code, err)
		}
	}

	fmt.Printf("Successfully imported %d coupons\n", len(coupons))
}
