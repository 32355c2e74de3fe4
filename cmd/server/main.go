package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "tradeledger/internal/adapters/web"
	"tradeledger/internal/app"
	"tradeledger/internal/core"
	"tradeledger/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	master := core.NewMasterService(pool)
	ingest := core.NewIngestService(pool, master)
	ledger := core.NewLedgerService(pool)
	aggregation := core.NewAggregationService(pool)
	settlement := core.NewSettlementService(pool, master, ledger)
	invoice := core.NewInvoiceService(pool)
	payment := core.NewPaymentService(pool)
	closing := core.NewClosingService(pool)
	users := core.NewUserService(pool)

	svc := app.NewAppService(pool, master, ingest, ledger, aggregation, settlement, invoice, payment, closing, users)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatalf("JWT_SECRET must be set")
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
