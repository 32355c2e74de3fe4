package core_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

func seedSettlementRow(t *testing.T, pool *pgxpool.Pool, id, stype, partner, start, end, status string, amount int64) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO settlements (settlement_id, type, partner, period_start, period_end, status, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, stype, partner, start, end, status, amount)
	if err != nil {
		t.Fatalf("Failed to seed settlement: %v", err)
	}
}

func TestClosing_ExecuteLocksConfirmedMonth(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewClosingService(pool)

	seedSettlementRow(t, pool, "PS-202501-AQL", "PURCHASE", "Aquelle Labs", "2025-01-01", "2025-01-31", "CONFIRMED", 54400)
	seedSettlementRow(t, pool, "SS-202501-RMART", "SALES", "Retail Mart", "2025-01-01", "2025-01-31", "CONFIRMED", 66000)
	seedSettlementRow(t, pool, "PS-202501-TFM", "PURCHASE", "Terraform Co", "2025-01-01", "2025-01-31", "DRAFT", 9999)
	seedSettlementRow(t, pool, "PS-202502-AQL", "PURCHASE", "Aquelle Labs", "2025-02-01", "2025-02-28", "CONFIRMED", 12600)

	result, err := svc.ExecuteClosing(ctx, "202501", "tester")
	if err != nil {
		t.Fatalf("ExecuteClosing: %v", err)
	}
	if result.ClosingID != "MC-202501" {
		t.Errorf("ClosingID = %s, want MC-202501", result.ClosingID)
	}
	if result.PurchaseCount != 1 || result.SalesCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1 (DRAFT and other months excluded)", result.PurchaseCount, result.SalesCount)
	}
	if !result.PurchaseAmount.Equal(decimal.NewFromInt(54400)) {
		t.Errorf("PurchaseAmount = %s, want 54400", result.PurchaseAmount)
	}
	if !result.SalesAmount.Equal(decimal.NewFromInt(66000)) {
		t.Errorf("SalesAmount = %s, want 66000", result.SalesAmount)
	}

	var locked int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM settlements WHERE status = 'LOCKED'").Scan(&locked); err != nil {
		t.Fatalf("count locked: %v", err)
	}
	if locked != 2 {
		t.Errorf("locked settlements = %d, want 2", locked)
	}

	// The DRAFT settlement and the February one are untouched.
	var draftStatus, febStatus string
	pool.QueryRow(ctx, "SELECT status FROM settlements WHERE settlement_id = 'PS-202501-TFM'").Scan(&draftStatus)
	pool.QueryRow(ctx, "SELECT status FROM settlements WHERE settlement_id = 'PS-202502-AQL'").Scan(&febStatus)
	if draftStatus != "DRAFT" || febStatus != "CONFIRMED" {
		t.Errorf("draft/feb status = %s/%s, want DRAFT/CONFIRMED", draftStatus, febStatus)
	}
}

func TestClosing_UnlockReversesMonth(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewClosingService(pool)

	seedSettlementRow(t, pool, "PS-202501-AQL", "PURCHASE", "Aquelle Labs", "2025-01-01", "2025-01-31", "CONFIRMED", 54400)
	seedSettlementRow(t, pool, "SS-202501-RMART", "SALES", "Retail Mart", "2025-01-01", "2025-01-31", "CONFIRMED", 66000)

	if _, err := svc.ExecuteClosing(ctx, "202501", "tester"); err != nil {
		t.Fatalf("ExecuteClosing: %v", err)
	}

	unlocked, err := svc.UnlockClosing(ctx, "202501", "tester")
	if err != nil {
		t.Fatalf("UnlockClosing: %v", err)
	}
	if unlocked != 2 {
		t.Errorf("unlocked = %d, want 2", unlocked)
	}

	var confirmed int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM settlements WHERE status = 'CONFIRMED'").Scan(&confirmed); err != nil {
		t.Fatalf("count confirmed: %v", err)
	}
	if confirmed != 2 {
		t.Errorf("confirmed settlements after unlock = %d, want 2", confirmed)
	}

	var status string
	var unlockedBy *string
	if err := pool.QueryRow(ctx, "SELECT status, unlocked_by FROM monthly_closings WHERE closing_id = 'MC-202501'").Scan(&status, &unlockedBy); err != nil {
		t.Fatalf("read closing: %v", err)
	}
	if status != "OPEN" {
		t.Errorf("closing status = %s, want OPEN", status)
	}
	if unlockedBy == nil || *unlockedBy != "tester" {
		t.Errorf("unlocked_by = %v, want tester", unlockedBy)
	}

	// A second unlock finds the closing already OPEN and refuses.
	if _, err := svc.UnlockClosing(ctx, "202501", "tester"); err == nil {
		t.Error("expected second unlock to be rejected")
	}
}

func TestClosing_Validation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewClosingService(pool)

	if _, err := svc.ExecuteClosing(ctx, "2025-01", "tester"); err == nil || !strings.Contains(err.Error(), "YYYYMM") {
		t.Errorf("bad year-month: got %v, want format error", err)
	}
	if _, err := svc.UnlockClosing(ctx, "209913", "tester"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown closing: got %v, want not-found error", err)
	}
}

func TestClosing_ReclosingAfterUnlock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewClosingService(pool)

	seedSettlementRow(t, pool, "PS-202501-AQL", "PURCHASE", "Aquelle Labs", "2025-01-01", "2025-01-31", "CONFIRMED", 54400)

	if _, err := svc.ExecuteClosing(ctx, "202501", "tester"); err != nil {
		t.Fatalf("first ExecuteClosing: %v", err)
	}
	if _, err := svc.UnlockClosing(ctx, "202501", "tester"); err != nil {
		t.Fatalf("UnlockClosing: %v", err)
	}

	// The month can be closed again; the closing record is reused.
	result, err := svc.ExecuteClosing(ctx, "202501", "tester")
	if err != nil {
		t.Fatalf("second ExecuteClosing: %v", err)
	}
	if result.PurchaseCount != 1 {
		t.Errorf("PurchaseCount = %d, want 1", result.PurchaseCount)
	}

	closings, err := svc.ListClosings(ctx)
	if err != nil {
		t.Fatalf("ListClosings: %v", err)
	}
	if len(closings) != 1 {
		t.Errorf("len(closings) = %d, want 1", len(closings))
	}
	if closings[0].Status != core.ClosingClosed {
		t.Errorf("closing status = %s, want CLOSED", closings[0].Status)
	}
}
