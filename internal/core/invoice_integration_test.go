package core_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

func TestInvoice_DirectAmountFromLedger(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewInvoiceService(pool)

	insertLedgerLine(t, pool, "20250110-RMART-AQL-001", "2025-01-10", "Aquelle Labs", "Retail Mart", "Aquelle", 10, 4200, 5000)
	insertLedgerLine(t, pool, "20250110-RMART-AQL-002", "2025-01-10", "Aquelle Labs", "Retail Mart", "Aquelle", 4, 3100, 4000)

	id, err := svc.CreateInvoice(ctx, core.CreateInvoiceRequest{
		OrderNumbers: []string{"20250110-RMART-AQL-001", "20250110-RMART-AQL-002"},
		Type:         core.SettlementSales,
		Company:      "Retail Mart",
		InvoiceDate:  day(t, "2025-01-20"),
		Actor:        "tester",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if id != "INV-20250120-001" {
		t.Errorf("invoice id = %s, want INV-20250120-001", id)
	}

	invoices, err := svc.ListInvoices(ctx, core.InvoiceFilter{Company: "Retail Mart"})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("len(invoices) = %d, want 1", len(invoices))
	}

	inv := invoices[0]
	if inv.BillingType != core.BillingDirect {
		t.Errorf("BillingType = %s, want DIRECT", inv.BillingType)
	}
	// 10*5000 + 4*4000, summed from the ledger because no amount was given.
	if !inv.Amount.Equal(decimal.NewFromInt(66000)) {
		t.Errorf("Amount = %s, want 66000", inv.Amount)
	}
	if !inv.RemainingAmount.Equal(inv.Amount) {
		t.Errorf("RemainingAmount = %s, want full amount %s", inv.RemainingAmount, inv.Amount)
	}
	if inv.Status != core.InvoiceDraft {
		t.Errorf("Status = %s, want DRAFT", inv.Status)
	}
	if len(inv.OrderNumbers) != 2 {
		t.Errorf("OrderNumbers = %v, want both order codes", inv.OrderNumbers)
	}
}

func TestInvoice_SequencePerDay(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewInvoiceService(pool)

	mk := func(date string, amount int64) string {
		id, err := svc.CreateInvoice(ctx, core.CreateInvoiceRequest{
			OrderNumbers: []string{"X-1"},
			Type:         core.SettlementSales,
			Company:      "Retail Mart",
			InvoiceDate:  day(t, date),
			Amount:       decimal.NewFromInt(amount),
			Actor:        "tester",
		})
		if err != nil {
			t.Fatalf("CreateInvoice: %v", err)
		}
		return id
	}

	if got := mk("2025-01-20", 1000); got != "INV-20250120-001" {
		t.Errorf("first id = %s", got)
	}
	if got := mk("2025-01-20", 2000); got != "INV-20250120-002" {
		t.Errorf("second id = %s", got)
	}
	// A different day starts its own sequence.
	if got := mk("2025-01-21", 3000); got != "INV-20250121-001" {
		t.Errorf("next-day id = %s", got)
	}
}

func TestInvoice_CheckExistsByOrderNumber(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewInvoiceService(pool)

	_, err := svc.CreateInvoice(ctx, core.CreateInvoiceRequest{
		OrderNumbers: []string{"20250110-RMART-AQL-001", "20250110-RMART-AQL-002"},
		Type:         core.SettlementSales,
		Company:      "Retail Mart",
		InvoiceDate:  day(t, "2025-01-20"),
		Amount:       decimal.NewFromInt(66000),
		Actor:        "tester",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	hits, err := svc.CheckInvoiceExists(ctx, "20250110-RMART-AQL-002")
	if err != nil {
		t.Fatalf("CheckInvoiceExists: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("len(hits) = %d, want 1", len(hits))
	}

	misses, err := svc.CheckInvoiceExists(ctx, "20250110-RMART-AQL-999")
	if err != nil {
		t.Fatalf("CheckInvoiceExists: %v", err)
	}
	if len(misses) != 0 {
		t.Errorf("len(misses) = %d, want 0", len(misses))
	}
}

func TestInvoice_StatusTransitions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewInvoiceService(pool)

	id, err := svc.CreateInvoice(ctx, core.CreateInvoiceRequest{
		OrderNumbers: []string{"X-1"},
		Type:         core.SettlementSales,
		Company:      "Retail Mart",
		InvoiceDate:  day(t, "2025-01-20"),
		Amount:       decimal.NewFromInt(1000),
		Actor:        "tester",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// DRAFT cannot jump straight to PAID.
	if err := svc.UpdateInvoiceStatus(ctx, id, core.InvoicePaid, "tester"); err == nil {
		t.Error("expected DRAFT -> PAID to be rejected")
	}

	if err := svc.UpdateInvoiceStatus(ctx, id, core.InvoiceIssued, "tester"); err != nil {
		t.Fatalf("DRAFT -> ISSUED: %v", err)
	}

	var issuedBy *string
	if err := pool.QueryRow(ctx, "SELECT issued_by FROM invoices WHERE invoice_id = $1", id).Scan(&issuedBy); err != nil {
		t.Fatalf("read invoice: %v", err)
	}
	if issuedBy == nil || *issuedBy != "tester" {
		t.Errorf("issued_by = %v, want tester", issuedBy)
	}

	// Backward transitions are rejected.
	err = svc.UpdateInvoiceStatus(ctx, id, core.InvoiceDraft, "tester")
	if err == nil || !strings.Contains(err.Error(), "cannot move") {
		t.Errorf("ISSUED -> DRAFT: got %v, want transition error", err)
	}

	if err := svc.UpdateInvoiceStatus(ctx, id, core.InvoicePaid, "tester"); err != nil {
		t.Fatalf("ISSUED -> PAID: %v", err)
	}

	var paidAtSet bool
	if err := pool.QueryRow(ctx, "SELECT paid_at IS NOT NULL FROM invoices WHERE invoice_id = $1", id).Scan(&paidAtSet); err != nil {
		t.Fatalf("read invoice: %v", err)
	}
	if !paidAtSet {
		t.Error("paid_at should be stamped when status reaches PAID")
	}
}
