package core

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ClosingResult struct {
	ClosingID      string          `json:"closing_id"`
	PurchaseCount  int             `json:"purchase_count"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	SalesCount     int             `json:"sales_count"`
	SalesAmount    decimal.Decimal `json:"sales_amount"`
}

type ClosingService interface {
	// ExecuteClosing locks every CONFIRMED settlement in the month and
	// records the month's totals under MC-{yearMonth}. Re-running updates
	// the same record.
	ExecuteClosing(ctx context.Context, yearMonth, actor string) (*ClosingResult, error)
	// UnlockClosing is the whole-month reverse: every LOCKED settlement in
	// the month goes back to CONFIRMED and the closing record opens.
	UnlockClosing(ctx context.Context, yearMonth, actor string) (int, error)
	ListClosings(ctx context.Context) ([]MonthlyClosing, error)
}

type closingService struct {
	pool *pgxpool.Pool
}

func NewClosingService(pool *pgxpool.Pool) ClosingService {
	return &closingService{pool: pool}
}

var yearMonthPattern = regexp.MustCompile(`^\d{6}$`)

func validYearMonth(yearMonth string) error {
	if !yearMonthPattern.MatchString(yearMonth) {
		return fmt.Errorf("year-month must be YYYYMM, got %q", yearMonth)
	}
	return nil
}

func (s *closingService) ExecuteClosing(ctx context.Context, yearMonth, actor string) (*ClosingResult, error) {
	if err := validYearMonth(yearMonth); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE settlements
		SET status = $1
		WHERE status = $2 AND to_char(period_start, 'YYYYMM') = $3
		RETURNING type, amount
	`, string(SettlementLocked), string(SettlementConfirmed), yearMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to lock settlements for %s: %w", yearMonth, err)
	}

	result := &ClosingResult{
		ClosingID:      "MC-" + yearMonth,
		PurchaseAmount: decimal.Zero,
		SalesAmount:    decimal.Zero,
	}
	for rows.Next() {
		var stype SettlementType
		var amount decimal.Decimal
		if err := rows.Scan(&stype, &amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan locked settlement: %w", err)
		}
		if stype == SettlementPurchase {
			result.PurchaseCount++
			result.PurchaseAmount = result.PurchaseAmount.Add(amount)
		} else {
			result.SalesCount++
			result.SalesAmount = result.SalesAmount.Add(amount)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock settlements for %s: %w", yearMonth, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO monthly_closings (
			closing_id, year_month, status, purchase_count, purchase_amount,
			sales_count, sales_amount, closed_at, closed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
		ON CONFLICT (closing_id) DO UPDATE SET
			status          = EXCLUDED.status,
			purchase_count  = EXCLUDED.purchase_count,
			purchase_amount = EXCLUDED.purchase_amount,
			sales_count     = EXCLUDED.sales_count,
			sales_amount    = EXCLUDED.sales_amount,
			closed_at       = EXCLUDED.closed_at,
			closed_by       = EXCLUDED.closed_by
	`, result.ClosingID, yearMonth, string(ClosingClosed),
		result.PurchaseCount, result.PurchaseAmount,
		result.SalesCount, result.SalesAmount, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert monthly closing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func (s *closingService) UnlockClosing(ctx context.Context, yearMonth, actor string) (int, error) {
	if err := validYearMonth(yearMonth); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status ClosingStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM monthly_closings WHERE closing_id = $1 FOR UPDATE", "MC-"+yearMonth,
	).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("monthly closing not found: %s", yearMonth)
		}
		return 0, fmt.Errorf("failed to read monthly closing: %w", err)
	}
	if status != ClosingClosed {
		return 0, fmt.Errorf("monthly closing %s is not %s", yearMonth, ClosingClosed)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE settlements
		SET status = $1
		WHERE status = $2 AND to_char(period_start, 'YYYYMM') = $3
	`, string(SettlementConfirmed), string(SettlementLocked), yearMonth)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock settlements for %s: %w", yearMonth, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE monthly_closings
		SET status = $1, unlocked_at = NOW(), unlocked_by = $2
		WHERE closing_id = $3
	`, string(ClosingOpen), actor, "MC-"+yearMonth)
	if err != nil {
		return 0, fmt.Errorf("failed to open monthly closing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *closingService) ListClosings(ctx context.Context) ([]MonthlyClosing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT closing_id, year_month, status, purchase_count, purchase_amount,
		       sales_count, sales_amount, closed_at, closed_by, unlocked_at, unlocked_by
		FROM monthly_closings
		ORDER BY year_month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly closings: %w", err)
	}
	defer rows.Close()

	var closings []MonthlyClosing
	for rows.Next() {
		var c MonthlyClosing
		err := rows.Scan(&c.ClosingID, &c.YearMonth, &c.Status, &c.PurchaseCount, &c.PurchaseAmount,
			&c.SalesCount, &c.SalesAmount, &c.ClosedAt, &c.ClosedBy, &c.UnlockedAt, &c.UnlockedBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly closing: %w", err)
		}
		closings = append(closings, c)
	}
	return closings, rows.Err()
}
