package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AggregatedItem is one ledger line viewed from one settlement side, with
// amounts recomputed fresh from confirmed quantity and unit price.
type AggregatedItem struct {
	OrderCode    string          `json:"order_code"`
	OrderDate    time.Time       `json:"order_date"`
	Counterparty string          `json:"counterparty"`
	Brand        string          `json:"brand"`
	ProductName  string          `json:"product_name"`
	ProductCode  string          `json:"product_code"`
	OrderQty     int             `json:"order_qty"`
	ConfirmedQty int             `json:"confirmed_qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Amount       decimal.Decimal `json:"amount"`
	DiffQty      int             `json:"diff_qty"`
}

type AggregationTotals struct {
	ItemCount    int             `json:"item_count"`
	OrderQty     int             `json:"order_qty"`
	ConfirmedQty int             `json:"confirmed_qty"`
	Amount       decimal.Decimal `json:"amount"`
	DiffQty      int             `json:"diff_qty"`
}

type AggregationResult struct {
	Items  []AggregatedItem  `json:"items"`
	Totals AggregationTotals `json:"totals"`
}

type AggregationService interface {
	// Aggregate filters ledger lines by side, optional partner and an
	// inclusive date range, recomputing amounts from confirmedQty and the
	// side's unit price. Read-only: the same computation backs both live
	// reporting and settlement snapshots.
	Aggregate(ctx context.Context, stype SettlementType, partner string, start, end time.Time) (*AggregationResult, error)
}

type aggregationService struct {
	pool *pgxpool.Pool
}

func NewAggregationService(pool *pgxpool.Pool) AggregationService {
	return &aggregationService{pool: pool}
}

func (s *aggregationService) Aggregate(ctx context.Context, stype SettlementType, partner string, start, end time.Time) (*AggregationResult, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("aggregation period is required")
	}
	if stype != SettlementPurchase && stype != SettlementSales {
		return nil, fmt.Errorf("unknown settlement type: %s", stype)
	}

	partnerCol, _ := settlementColumns(stype)
	priceCol := "supply_price"
	if stype == SettlementPurchase {
		priceCol = "buy_price"
	}

	query := fmt.Sprintf(`
		SELECT order_code, order_date, %s, brand, product_name, product_code,
		       order_qty, confirmed_qty, %s
		FROM ledger_lines
		WHERE order_date >= $1 AND order_date <= $2
		  AND ($3 = '' OR %s = $3)
		ORDER BY order_date, order_code, id
	`, partnerCol, priceCol, partnerCol)

	rows, err := s.pool.Query(ctx, query, start, end, partner)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger lines: %w", err)
	}
	defer rows.Close()

	result := &AggregationResult{Totals: AggregationTotals{Amount: decimal.Zero}}
	for rows.Next() {
		var item AggregatedItem
		err := rows.Scan(&item.OrderCode, &item.OrderDate, &item.Counterparty, &item.Brand,
			&item.ProductName, &item.ProductCode, &item.OrderQty, &item.ConfirmedQty, &item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregated line: %w", err)
		}

		// Recomputed from quantity and unit price; stored amounts are ignored.
		item.Amount = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.ConfirmedQty)))
		item.DiffQty = item.OrderQty - item.ConfirmedQty

		result.Items = append(result.Items, item)
		result.Totals.ItemCount++
		result.Totals.OrderQty += item.OrderQty
		result.Totals.ConfirmedQty += item.ConfirmedQty
		result.Totals.Amount = result.Totals.Amount.Add(item.Amount)
		result.Totals.DiffQty += item.DiffQty
	}
	return result, rows.Err()
}
