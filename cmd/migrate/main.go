package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"commerce-payment-providers/internal/config"
	pg "commerce-payment-providers/internal/infra/db/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	schemaPath := flag.String("schema", "deploy/postgres/init.sql", "path to schema file")
	dev := flag.Bool("dev", false, "development mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *dev)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")
}
