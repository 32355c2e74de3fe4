package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SettlementWarning reports that a settlement row was persisted but the
// dependent ledger-state update failed. The settlement itself is valid;
// the caller decides whether to retry the confirm.
type SettlementWarning struct {
	SettlementID string
	Err          error
}

func (w *SettlementWarning) Message() string {
	return fmt.Sprintf("settlement %s was saved but the ledger state update failed: %v", w.SettlementID, w.Err)
}

type SaveSettlementRequest struct {
	Type    SettlementType   `json:"type"`
	Partner string           `json:"partner"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Status  SettlementStatus `json:"status"` // DRAFT or CONFIRMED
	Notes   string           `json:"notes"`
	Items   []AggregatedItem `json:"items"`
	Actor   string           `json:"actor"`
}

type SaveSettlementResult struct {
	SettlementID string             `json:"settlement_id"`
	UpdatedLines int                `json:"updated_lines"`
	Warning      *SettlementWarning `json:"-"`
}

type SettlementFilter struct {
	Type    SettlementType
	Partner string
	Status  SettlementStatus
	Month   string // YYYYMM, matched against periodStart
}

type SettlementDetailResult struct {
	Settlement Settlement         `json:"settlement"`
	Items      []SettlementDetail `json:"items"`
}

type SettlementService interface {
	// SaveSettlement upserts the settlement row keyed by its deterministic
	// id and replaces the detail snapshot. When the requested status is
	// CONFIRMED it then transitions the covered ledger lines to SETTLED;
	// a failure in that second step is returned as a warning, not an error.
	SaveSettlement(ctx context.Context, req SaveSettlementRequest) (*SaveSettlementResult, error)
	// UnlockSettlement puts a CONFIRMED settlement back to DRAFT and
	// reverses its ledger-state stamp. LOCKED settlements are rejected:
	// the enclosing monthly closing must be unlocked first.
	UnlockSettlement(ctx context.Context, settlementID string, stype SettlementType) (int, error)
	GetSettlementDetail(ctx context.Context, settlementID string) (*SettlementDetailResult, error)
	ListSettlements(ctx context.Context, filter SettlementFilter) ([]Settlement, error)
}

type settlementService struct {
	pool   *pgxpool.Pool
	master MasterService
	ledger LedgerService
}

func NewSettlementService(pool *pgxpool.Pool, master MasterService, ledger LedgerService) SettlementService {
	return &settlementService{pool: pool, master: master, ledger: ledger}
}

// SettlementID derives the deterministic id for one (type, month, partner)
// close: {PS|SS}-{YYYYMM}-{partnerCode}. Re-running the same close always
// targets the same record.
func SettlementID(stype SettlementType, start time.Time, partnerCode string) string {
	prefix := "SS"
	if stype == SettlementPurchase {
		prefix = "PS"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, start.Format("200601"), partnerCode)
}

func (s *settlementService) SaveSettlement(ctx context.Context, req SaveSettlementRequest) (*SaveSettlementResult, error) {
	if strings.TrimSpace(req.Partner) == "" {
		return nil, fmt.Errorf("partner is required")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, fmt.Errorf("settlement period is required")
	}
	if req.Type != SettlementPurchase && req.Type != SettlementSales {
		return nil, fmt.Errorf("unknown settlement type: %s", req.Type)
	}
	if req.Status != SettlementDraft && req.Status != SettlementConfirmed {
		return nil, fmt.Errorf("settlement can only be saved as %s or %s, got %s", SettlementDraft, SettlementConfirmed, req.Status)
	}

	partnerCode, err := s.master.PartnerCode(ctx, req.Partner)
	if err != nil {
		return nil, err
	}
	if partnerCode == "" {
		// No master row: the name itself keeps the id deterministic.
		partnerCode = req.Partner
	}
	settlementID := SettlementID(req.Type, req.Start, partnerCode)

	totals := AggregationTotals{Amount: decimal.Zero}
	for _, item := range req.Items {
		totals.ItemCount++
		totals.OrderQty += item.OrderQty
		totals.ConfirmedQty += item.ConfirmedQty
		totals.Amount = totals.Amount.Add(item.Amount)
		totals.DiffQty += item.DiffQty
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentStatus SettlementStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM settlements WHERE settlement_id = $1 FOR UPDATE", settlementID,
	).Scan(&currentStatus)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to read settlement: %w", err)
	}
	if currentStatus == SettlementLocked {
		return nil, fmt.Errorf("settlement %s is %s: unlock the monthly closing first", settlementID, SettlementLocked)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO settlements (
			settlement_id, type, partner, period_start, period_end, status,
			item_count, order_qty, confirmed_qty, amount, diff_qty, notes,
			created_by, confirmed_at, confirmed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			CASE WHEN $6 = 'CONFIRMED' THEN NOW() END,
			CASE WHEN $6 = 'CONFIRMED' THEN $13 END)
		ON CONFLICT (settlement_id) DO UPDATE SET
			period_start  = EXCLUDED.period_start,
			period_end    = EXCLUDED.period_end,
			status        = EXCLUDED.status,
			item_count    = EXCLUDED.item_count,
			order_qty     = EXCLUDED.order_qty,
			confirmed_qty = EXCLUDED.confirmed_qty,
			amount        = EXCLUDED.amount,
			diff_qty      = EXCLUDED.diff_qty,
			notes         = EXCLUDED.notes,
			confirmed_at  = EXCLUDED.confirmed_at,
			confirmed_by  = EXCLUDED.confirmed_by
	`, settlementID, string(req.Type), req.Partner, req.Start, req.End, string(req.Status),
		totals.ItemCount, totals.OrderQty, totals.ConfirmedQty, totals.Amount, totals.DiffQty,
		req.Notes, req.Actor)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert settlement: %w", err)
	}

	// The detail snapshot is what the caller submitted, replaced wholesale.
	_, err = tx.Exec(ctx, "DELETE FROM settlement_details WHERE settlement_id = $1", settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear settlement details: %w", err)
	}
	for _, item := range req.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO settlement_details (
				settlement_id, order_code, order_date, counterparty, brand,
				product_name, product_code, order_qty, confirmed_qty,
				unit_price, amount, diff_qty
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, settlementID, item.OrderCode, item.OrderDate, item.Counterparty, item.Brand,
			item.ProductName, item.ProductCode, item.OrderQty, item.ConfirmedQty,
			item.UnitPrice, item.Amount, item.DiffQty)
		if err != nil {
			return nil, fmt.Errorf("failed to insert settlement detail: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result := &SaveSettlementResult{SettlementID: settlementID}

	// Step two of the saga: the settlement row is already durable, so a
	// failure here downgrades to a warning instead of rolling back.
	if req.Status == SettlementConfirmed {
		updated, err := s.ledger.UpdateStateForSettlement(ctx, req.Type, req.Partner, req.Start, req.End, settlementID)
		if err != nil {
			result.Warning = &SettlementWarning{SettlementID: settlementID, Err: err}
			return result, nil
		}
		result.UpdatedLines = updated
	}
	return result, nil
}

func (s *settlementService) UnlockSettlement(ctx context.Context, settlementID string, stype SettlementType) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status SettlementStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM settlements WHERE settlement_id = $1 FOR UPDATE", settlementID,
	).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("settlement not found: %s", settlementID)
		}
		return 0, fmt.Errorf("failed to read settlement: %w", err)
	}
	if status == SettlementLocked {
		return 0, fmt.Errorf("settlement %s is %s: unlock the monthly closing first", settlementID, SettlementLocked)
	}

	_, err = tx.Exec(ctx, `
		UPDATE settlements
		SET status = $1, confirmed_at = NULL, confirmed_by = NULL
		WHERE settlement_id = $2
	`, string(SettlementDraft), settlementID)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock settlement: %w", err)
	}

	restored, err := s.ledger.RestoreStateForSettlement(ctx, tx, stype, settlementID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return restored, nil
}

const settlementColumnsSQL = `
	settlement_id, type, partner, period_start, period_end, status,
	item_count, order_qty, confirmed_qty, amount, diff_qty, notes,
	created_at, created_by, confirmed_at, confirmed_by`

func scanSettlement(row pgx.Row) (Settlement, error) {
	var st Settlement
	err := row.Scan(
		&st.SettlementID, &st.Type, &st.Partner, &st.PeriodStart, &st.PeriodEnd, &st.Status,
		&st.ItemCount, &st.OrderQty, &st.ConfirmedQty, &st.Amount, &st.DiffQty, &st.Notes,
		&st.CreatedAt, &st.CreatedBy, &st.ConfirmedAt, &st.ConfirmedBy,
	)
	return st, err
}

func (s *settlementService) GetSettlementDetail(ctx context.Context, settlementID string) (*SettlementDetailResult, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+settlementColumnsSQL+" FROM settlements WHERE settlement_id = $1", settlementID)
	st, err := scanSettlement(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("settlement not found: %s", settlementID)
		}
		return nil, fmt.Errorf("failed to read settlement: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT settlement_id, order_code, order_date, counterparty, brand,
		       product_name, product_code, order_qty, confirmed_qty,
		       unit_price, amount, diff_qty
		FROM settlement_details
		WHERE settlement_id = $1
		ORDER BY order_date, order_code, id
	`, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement details: %w", err)
	}
	defer rows.Close()

	result := &SettlementDetailResult{Settlement: st}
	for rows.Next() {
		var d SettlementDetail
		err := rows.Scan(&d.SettlementID, &d.OrderCode, &d.OrderDate, &d.Counterparty, &d.Brand,
			&d.ProductName, &d.ProductCode, &d.OrderQty, &d.ConfirmedQty,
			&d.UnitPrice, &d.Amount, &d.DiffQty)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement detail: %w", err)
		}
		result.Items = append(result.Items, d)
	}
	return result, rows.Err()
}

func (s *settlementService) ListSettlements(ctx context.Context, filter SettlementFilter) ([]Settlement, error) {
	query := `SELECT ` + settlementColumnsSQL + `
		FROM settlements
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR partner = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4 = '' OR to_char(period_start, 'YYYYMM') = $4)
		ORDER BY period_start DESC, settlement_id
	`
	rows, err := s.pool.Query(ctx, query,
		string(filter.Type), filter.Partner, string(filter.Status), filter.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}
