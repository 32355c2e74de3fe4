package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerFilter narrows a transaction listing. Zero values mean "no filter".
type LedgerFilter struct {
	Start       time.Time
	End         time.Time
	Supplier    string
	Buyer       string
	Brand       string
	State       TransactionState
	OrderCode   string
	Limit       int
}

// ConfirmedQtyChange revises the accepted quantity of one ledger line.
type ConfirmedQtyChange struct {
	LineID       int `json:"line_id"`
	ConfirmedQty int `json:"confirmed_qty"`
}

// QtyUpdateResult reports a partially-successful batch: lines that failed
// are enumerated, lines that succeeded stay updated.
type QtyUpdateResult struct {
	UpdatedCount int      `json:"updated_count"`
	Errors       []string `json:"errors,omitempty"`
}

type LedgerService interface {
	GetTransactions(ctx context.Context, filter LedgerFilter) ([]LedgerLine, error)
	// UpdateConfirmedQuantities revises accepted quantities and recomputes
	// every derived amount in the same statement, so the stored amounts are
	// never stale. Lines already SETTLED are rejected.
	UpdateConfirmedQuantities(ctx context.Context, changes []ConfirmedQtyChange) (*QtyUpdateResult, error)
	// UpdateStateForSettlement marks every open line matching the
	// settlement's partner and period as SETTLED and stamps the settlement
	// id, in one statement. Returns the number of lines transitioned.
	UpdateStateForSettlement(ctx context.Context, stype SettlementType, partner string, start, end time.Time, settlementID string) (int, error)
	// RestoreStateForSettlement reverses UpdateStateForSettlement inside the
	// caller's transaction: lines stamped with settlementID go back to
	// CONFIRMED_OPEN and the stamp is cleared, atomically together.
	RestoreStateForSettlement(ctx context.Context, tx pgx.Tx, stype SettlementType, settlementID string) (int, error)
}

type ledgerService struct {
	pool *pgxpool.Pool
}

func NewLedgerService(pool *pgxpool.Pool) LedgerService {
	return &ledgerService{pool: pool}
}

const ledgerLineColumns = `
	id, order_code, order_date, product_code, product_name, brand,
	supplier_name, buyer_name, order_qty, confirmed_qty,
	buy_price, supply_price, purchase_amount, supply_amount,
	margin_amount, margin_rate, transaction_state,
	purchase_settlement_id, sales_settlement_id, created_at, updated_at`

func scanLedgerLine(row pgx.Row) (LedgerLine, error) {
	var l LedgerLine
	err := row.Scan(
		&l.ID, &l.OrderCode, &l.OrderDate, &l.ProductCode, &l.ProductName, &l.Brand,
		&l.SupplierName, &l.BuyerName, &l.OrderQty, &l.ConfirmedQty,
		&l.BuyPrice, &l.SupplyPrice, &l.PurchaseAmount, &l.SupplyAmount,
		&l.MarginAmount, &l.MarginRate, &l.TransactionState,
		&l.PurchaseSettlementID, &l.SalesSettlementID, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (s *ledgerService) GetTransactions(ctx context.Context, filter LedgerFilter) ([]LedgerLine, error) {
	query := `SELECT ` + ledgerLineColumns + `
		FROM ledger_lines
		WHERE ($1::date IS NULL OR order_date >= $1)
		  AND ($2::date IS NULL OR order_date <= $2)
		  AND ($3 = '' OR supplier_name = $3)
		  AND ($4 = '' OR buyer_name = $4)
		  AND ($5 = '' OR brand = $5)
		  AND ($6 = '' OR transaction_state = $6)
		  AND ($7 = '' OR order_code = $7)
		ORDER BY order_date DESC, order_code, id
		LIMIT $8
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	var start, end *time.Time
	if !filter.Start.IsZero() {
		start = &filter.Start
	}
	if !filter.End.IsZero() {
		end = &filter.End
	}

	rows, err := s.pool.Query(ctx, query,
		start, end, filter.Supplier, filter.Buyer, filter.Brand,
		string(filter.State), filter.OrderCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var lines []LedgerLine
	for rows.Next() {
		l, err := scanLedgerLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *ledgerService) UpdateConfirmedQuantities(ctx context.Context, changes []ConfirmedQtyChange) (*QtyUpdateResult, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("no quantity changes given")
	}

	result := &QtyUpdateResult{}

	for _, change := range changes {
		if change.ConfirmedQty < 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: confirmed quantity must not be negative", change.LineID))
			continue
		}
		if err := s.applyQtyChange(ctx, change); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", change.LineID, err))
			continue
		}
		result.UpdatedCount++
	}
	return result, nil
}

func (s *ledgerService) applyQtyChange(ctx context.Context, change ConfirmedQtyChange) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var state TransactionState
	err = tx.QueryRow(ctx,
		"SELECT transaction_state FROM ledger_lines WHERE id = $1 FOR UPDATE", change.LineID,
	).Scan(&state)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("ledger line not found")
		}
		return fmt.Errorf("failed to lock ledger line: %w", err)
	}
	if state != StateConfirmedOpen {
		return fmt.Errorf("cannot revise quantity: state is %s (must be %s)", state, StateConfirmedOpen)
	}

	// Recompute all derived amounts from the new quantity in one UPDATE.
	_, err = tx.Exec(ctx, `
		UPDATE ledger_lines SET
			confirmed_qty   = $1,
			purchase_amount = buy_price * $1,
			supply_amount   = supply_price * $1,
			margin_amount   = (supply_price - buy_price) * $1,
			margin_rate     = CASE WHEN buy_price * $1 > 0
			                       THEN ROUND(((supply_price - buy_price) * $1) / (buy_price * $1), 4)
			                       ELSE 0 END,
			updated_at      = NOW()
		WHERE id = $2
	`, change.ConfirmedQty, change.LineID)
	if err != nil {
		return fmt.Errorf("failed to update ledger line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// settlementColumns picks the side-specific ledger columns for a settlement
// type. otherIDCol is the opposite side's settlement-id column; each line can
// carry both at once because purchase and sales settle independently.
func settlementColumns(stype SettlementType) (partnerCol, idCol string) {
	if stype == SettlementPurchase {
		return "supplier_name", "purchase_settlement_id"
	}
	return "buyer_name", "sales_settlement_id"
}

func otherIDColumn(stype SettlementType) string {
	if stype == SettlementPurchase {
		return "sales_settlement_id"
	}
	return "purchase_settlement_id"
}

func (s *ledgerService) UpdateStateForSettlement(ctx context.Context, stype SettlementType, partner string, start, end time.Time, settlementID string) (int, error) {
	partnerCol, idCol := settlementColumns(stype)
	// Guard per side: a line already stamped by another settlement on this
	// side stays untouched, but a line settled only on the opposite side is
	// still fair game.
	query := fmt.Sprintf(`
		UPDATE ledger_lines
		SET transaction_state = $1, %s = $2, updated_at = NOW()
		WHERE %s = $3
		  AND order_date >= $4 AND order_date <= $5
		  AND (%s IS NULL OR %s = $2)
	`, idCol, partnerCol, idCol, idCol)

	tag, err := s.pool.Exec(ctx, query,
		string(StateSettled), settlementID, partner, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to update ledger state for settlement %s: %w", settlementID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *ledgerService) RestoreStateForSettlement(ctx context.Context, tx pgx.Tx, stype SettlementType, settlementID string) (int, error) {
	_, idCol := settlementColumns(stype)
	otherCol := otherIDColumn(stype)
	// Lines still held by the opposite side keep their SETTLED state; only
	// the side's own stamp is cleared.
	query := fmt.Sprintf(`
		UPDATE ledger_lines
		SET %s = NULL,
		    transaction_state = CASE WHEN %s IS NULL THEN $1 ELSE transaction_state END,
		    updated_at = NOW()
		WHERE %s = $2
	`, idCol, otherCol, idCol)

	tag, err := tx.Exec(ctx, query, string(StateConfirmedOpen), settlementID)
	if err != nil {
		return 0, fmt.Errorf("failed to restore ledger state for settlement %s: %w", settlementID, err)
	}
	return int(tag.RowsAffected()), nil
}
