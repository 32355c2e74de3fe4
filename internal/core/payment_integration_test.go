package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

// seedIssuedInvoice inserts an invoice already in ISSUED state, skipping the
// DRAFT step so payment tests stay independent of invoice creation.
func seedIssuedInvoice(t *testing.T, pool *pgxpool.Pool, id, company, date string, amount int64) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO invoices (invoice_id, billing_type, order_numbers, company, type,
			invoice_date, amount, paid_amount, remaining_amount, status, issued_at)
		VALUES ($1, 'DIRECT', '[]', $2, 'SALES', $3, $4, 0, $4, 'ISSUED', NOW())
	`, id, company, date, amount)
	if err != nil {
		t.Fatalf("Failed to seed invoice: %v", err)
	}
}

func TestPayment_UploadBankStatement(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewPaymentService(pool)

	seedIssuedInvoice(t, pool, "INV-20250110-001", "Retail Mart", "2025-01-10", 100000)
	seedIssuedInvoice(t, pool, "INV-20250112-001", "Terraform Co", "2025-01-12", 250000)

	csv := "Date,Depositor,Deposit,Withdrawal,Balance\n" +
		"2025-01-11,Retail Mart,\"100,000\",0,100000\n" +
		"2025-01-13,Terraform Co,250000,0,350000\n" +
		"2025-01-14,Stranger,99999,0,449999\n"

	result, err := svc.UploadBankStatement(ctx, csv, core.DefaultMatchTolerance())
	if err != nil {
		t.Fatalf("UploadBankStatement: %v", err)
	}
	if result.DepositCount != 3 {
		t.Errorf("DepositCount = %d, want 3", result.DepositCount)
	}
	if len(result.Matches) != 2 || result.UpdatedInvoices != 2 {
		t.Fatalf("matches/updated = %d/%d, want 2/2", len(result.Matches), result.UpdatedInvoices)
	}
	if len(result.UnmatchedDeposits) != 1 || result.UnmatchedDeposits[0].Depositor != "Stranger" {
		t.Errorf("unexpected unmatched set: %+v", result.UnmatchedDeposits)
	}

	// Both invoices are fully paid and stamped.
	var status string
	var remaining decimal.Decimal
	var paidAt *time.Time
	err = pool.QueryRow(ctx,
		"SELECT status, remaining_amount, paid_at FROM invoices WHERE invoice_id = 'INV-20250110-001'",
	).Scan(&status, &remaining, &paidAt)
	if err != nil {
		t.Fatalf("read invoice: %v", err)
	}
	if status != "PAID" {
		t.Errorf("status = %s, want PAID", status)
	}
	if !remaining.IsZero() {
		t.Errorf("remaining_amount = %s, want 0", remaining)
	}
	if paidAt == nil {
		t.Error("paid_at should be stamped with the deposit date")
	}
}

func TestPayment_PartialThenFull(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewPaymentService(pool)

	seedIssuedInvoice(t, pool, "INV-20250110-001", "Retail Mart", "2025-01-10", 100000)

	if err := svc.RecordManualPayment(ctx, "INV-20250110-001", decimal.NewFromInt(40000), day(t, "2025-01-15")); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	var status string
	var remaining decimal.Decimal
	if err := pool.QueryRow(ctx,
		"SELECT status, remaining_amount FROM invoices WHERE invoice_id = 'INV-20250110-001'",
	).Scan(&status, &remaining); err != nil {
		t.Fatalf("read invoice: %v", err)
	}
	if status != "PAID_PARTIAL" {
		t.Errorf("status = %s, want PAID_PARTIAL", status)
	}
	if !remaining.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("remaining = %s, want 60000", remaining)
	}

	// Overpaying the rest clamps at the invoice total.
	if err := svc.RecordManualPayment(ctx, "INV-20250110-001", decimal.NewFromInt(70000), day(t, "2025-01-20")); err != nil {
		t.Fatalf("second payment: %v", err)
	}

	var paid decimal.Decimal
	if err := pool.QueryRow(ctx,
		"SELECT status, paid_amount, remaining_amount FROM invoices WHERE invoice_id = 'INV-20250110-001'",
	).Scan(&status, &paid, &remaining); err != nil {
		t.Fatalf("read invoice: %v", err)
	}
	if status != "PAID" {
		t.Errorf("status = %s, want PAID", status)
	}
	if !paid.Equal(decimal.NewFromInt(100000)) || !remaining.IsZero() {
		t.Errorf("paid/remaining = %s/%s, want 100000/0", paid, remaining)
	}
}

func TestPayment_RejectsDraftInvoice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewPaymentService(pool)

	if _, err := pool.Exec(ctx, `
		INSERT INTO invoices (invoice_id, billing_type, order_numbers, company, type,
			invoice_date, amount, paid_amount, remaining_amount, status)
		VALUES ('INV-20250110-001', 'DIRECT', '[]', 'Retail Mart', 'SALES', '2025-01-10', 1000, 0, 1000, 'DRAFT')
	`); err != nil {
		t.Fatalf("seed draft invoice: %v", err)
	}

	err := svc.RecordManualPayment(ctx, "INV-20250110-001", decimal.NewFromInt(1000), day(t, "2025-01-15"))
	if err == nil || !strings.Contains(err.Error(), "cannot take a payment") {
		t.Errorf("payment on DRAFT invoice: got %v, want status error", err)
	}
}

func TestPayment_OutstandingAlerts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewPaymentService(pool)

	old := time.Now().AddDate(0, 0, -40).Format("2006-01-02")
	mid := time.Now().AddDate(0, 0, -20).Format("2006-01-02")
	recent := time.Now().AddDate(0, 0, -2).Format("2006-01-02")

	seedIssuedInvoice(t, pool, "INV-OLD", "Retail Mart", old, 50000)
	seedIssuedInvoice(t, pool, "INV-MID", "Retail Mart", mid, 30000)
	seedIssuedInvoice(t, pool, "INV-NEW", "Retail Mart", recent, 10000)

	alerts, err := svc.OutstandingAlerts(ctx, 7)
	if err != nil {
		t.Fatalf("OutstandingAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("len(alerts) = %d, want 2 (recent invoice excluded)", len(alerts))
	}

	// Oldest first, with severity derived from overdue days.
	if alerts[0].InvoiceID != "INV-OLD" || alerts[0].Severity != "HIGH" {
		t.Errorf("alerts[0] = %s/%s, want INV-OLD/HIGH", alerts[0].InvoiceID, alerts[0].Severity)
	}
	if alerts[1].InvoiceID != "INV-MID" || alerts[1].Severity != "MEDIUM" {
		t.Errorf("alerts[1] = %s/%s, want INV-MID/MEDIUM", alerts[1].InvoiceID, alerts[1].Severity)
	}
}
