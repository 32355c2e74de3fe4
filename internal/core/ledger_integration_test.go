package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE ledger_lines, settlements, settlement_details, invoices,
			monthly_closings, order_sequences, invoice_sequences,
			partners, products CASCADE;

		INSERT INTO partners (code, name, brand, brand_code, role) VALUES
		('AQL', 'Aquelle Labs', 'Aquelle', 'AQL', 'SUPPLIER'),
		('TFM', 'Terraform Co', 'Terraform', 'TFM', 'BOTH'),
		('RMART', 'Retail Mart', NULL, NULL, 'BUYER');

		INSERT INTO products (barcode, name, brand, buy_price) VALUES
		('8800001', 'Hydra Cream 50ml', 'Aquelle', 4200),
		('8800002', 'Mist Toner 120ml', 'Aquelle', 3100),
		('8800003', 'Clay Mask 80g', 'Terraform', 5600);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// insertLedgerLine writes one open ledger line directly and returns its id.
func insertLedgerLine(t *testing.T, pool *pgxpool.Pool, orderCode, orderDate, supplier, buyer, brand string, qty int, buyPrice, supplyPrice int64) int {
	t.Helper()

	bp := decimal.NewFromInt(buyPrice)
	sp := decimal.NewFromInt(supplyPrice)
	q := decimal.NewFromInt(int64(qty))
	purchase := bp.Mul(q)
	supply := sp.Mul(q)
	margin := supply.Sub(purchase)
	rate := decimal.Zero
	if purchase.IsPositive() {
		rate = margin.Div(purchase).Round(4)
	}

	var id int
	err := pool.QueryRow(context.Background(), `
		INSERT INTO ledger_lines (
			order_code, order_date, product_code, product_name, brand,
			supplier_name, buyer_name, order_qty, confirmed_qty,
			buy_price, supply_price, purchase_amount, supply_amount,
			margin_amount, margin_rate
		) VALUES ($1, $2, '8800001', 'Hydra Cream 50ml', $3, $4, $5, $6, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, orderCode, orderDate, brand, supplier, buyer, qty, bp, sp, purchase, supply, margin, rate).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert ledger line: %v", err)
	}
	return id
}

func TestLedger_UpdateConfirmedQuantities_RecomputesAmounts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewLedgerService(pool)

	id := insertLedgerLine(t, pool, "20250110-RMART-AQL-001", "2025-01-10", "Aquelle Labs", "Retail Mart", "Aquelle", 10, 4200, 5000)

	result, err := svc.UpdateConfirmedQuantities(ctx, []core.ConfirmedQtyChange{
		{LineID: id, ConfirmedQty: 7},
	})
	if err != nil {
		t.Fatalf("UpdateConfirmedQuantities: %v", err)
	}
	if result.UpdatedCount != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	lines, err := svc.GetTransactions(ctx, core.LedgerFilter{OrderCode: "20250110-RMART-AQL-001"})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}

	l := lines[0]
	if l.ConfirmedQty != 7 || l.OrderQty != 10 {
		t.Errorf("confirmed/order qty = %d/%d, want 7/10", l.ConfirmedQty, l.OrderQty)
	}
	if !l.PurchaseAmount.Equal(decimal.NewFromInt(29400)) {
		t.Errorf("PurchaseAmount = %s, want 29400", l.PurchaseAmount)
	}
	if !l.SupplyAmount.Equal(decimal.NewFromInt(35000)) {
		t.Errorf("SupplyAmount = %s, want 35000", l.SupplyAmount)
	}
	if !l.MarginAmount.Equal(decimal.NewFromInt(5600)) {
		t.Errorf("MarginAmount = %s, want 5600", l.MarginAmount)
	}
	// 5600 / 29400, rounded to 4 places.
	wantRate, _ := decimal.NewFromString("0.1905")
	if !l.MarginRate.Equal(wantRate) {
		t.Errorf("MarginRate = %s, want %s", l.MarginRate, wantRate)
	}
}

func TestLedger_UpdateConfirmedQuantities_RejectsSettledLine(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewLedgerService(pool)

	id := insertLedgerLine(t, pool, "20250110-RMART-AQL-001", "2025-01-10", "Aquelle Labs", "Retail Mart", "Aquelle", 10, 4200, 5000)
	if _, err := pool.Exec(ctx, "UPDATE ledger_lines SET transaction_state = 'SETTLED' WHERE id = $1", id); err != nil {
		t.Fatalf("Failed to settle line: %v", err)
	}

	result, err := svc.UpdateConfirmedQuantities(ctx, []core.ConfirmedQtyChange{
		{LineID: id, ConfirmedQty: 5},
	})
	if err != nil {
		t.Fatalf("UpdateConfirmedQuantities: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Errorf("UpdatedCount = %d, want 0", result.UpdatedCount)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(result.Errors))
	}

	var qty int
	if err := pool.QueryRow(ctx, "SELECT confirmed_qty FROM ledger_lines WHERE id = $1", id).Scan(&qty); err != nil {
		t.Fatalf("Failed to read line: %v", err)
	}
	if qty != 10 {
		t.Errorf("confirmed_qty = %d, want 10 (settled line must not change)", qty)
	}
}

func TestLedger_UpdateConfirmedQuantities_PartialBatch(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewLedgerService(pool)

	good := insertLedgerLine(t, pool, "20250110-RMART-AQL-001", "2025-01-10", "Aquelle Labs", "Retail Mart", "Aquelle", 10, 4200, 5000)

	result, err := svc.UpdateConfirmedQuantities(ctx, []core.ConfirmedQtyChange{
		{LineID: good, ConfirmedQty: 8},
		{LineID: 999999, ConfirmedQty: 3}, // no such line
	})
	if err != nil {
		t.Fatalf("UpdateConfirmedQuantities: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Errorf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if len(result.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(result.Errors))
	}

	// The good line stays updated even though a sibling failed.
	var qty int
	if err := pool.QueryRow(ctx, "SELECT confirmed_qty FROM ledger_lines WHERE id = $1", good).Scan(&qty); err != nil {
		t.Fatalf("Failed to read line: %v", err)
	}
	if qty != 8 {
		t.Errorf("confirmed_qty = %d, want 8", qty)
	}
}

func TestLedger_GetTransactions_Filters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewLedgerService(pool)

	insertLedgerLine(t, pool, "20250110-RMART-AQL-001", "2025-01-10", "Aquelle Labs", "Retail Mart", "Aquelle", 10, 4200, 5000)
	insertLedgerLine(t, pool, "20250115-RMART-TFM-001", "2025-01-15", "Terraform Co", "Retail Mart", "Terraform", 5, 5600, 7000)
	insertLedgerLine(t, pool, "20250210-RMART-AQL-001", "2025-02-10", "Aquelle Labs", "Retail Mart", "Aquelle", 3, 4200, 5000)

	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatalf("bad date %s: %v", s, err)
		}
		return d
	}

	january, err := svc.GetTransactions(ctx, core.LedgerFilter{Start: day("2025-01-01"), End: day("2025-01-31")})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(january) != 2 {
		t.Errorf("january lines = %d, want 2", len(january))
	}

	aquelle, err := svc.GetTransactions(ctx, core.LedgerFilter{Supplier: "Aquelle Labs"})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(aquelle) != 2 {
		t.Errorf("aquelle lines = %d, want 2", len(aquelle))
	}

	open, err := svc.GetTransactions(ctx, core.LedgerFilter{State: core.StateConfirmedOpen})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(open) != 3 {
		t.Errorf("open lines = %d, want 3", len(open))
	}
}
