package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type IngestService interface {
	// ParseOrders normalizes raw order-file rows and matches them against
	// the product master. Nothing is persisted.
	ParseOrders(ctx context.Context, header []string, rows [][]string) (*ParseResult, error)
	// CommitOrderItems validates every item and then writes all of them,
	// or none: a single validation failure aborts the whole batch.
	CommitOrderItems(ctx context.Context, items []ParsedOrderItem, actor string) (*CommitResult, error)
	// CheckDuplicateOrders reports orders already on the ledger for the
	// given buyer and date, grouped by order code.
	CheckDuplicateOrders(ctx context.Context, customer string, date time.Time) ([]DuplicateOrder, error)
}

type CommitResult struct {
	SavedRows  int      `json:"saved_rows"`
	TotalRows  int      `json:"total_rows"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors,omitempty"`
	OrderCodes []string `json:"order_codes,omitempty"`
}

type DuplicateOrder struct {
	OrderCode   string          `json:"order_code"`
	Brands      string          `json:"brands"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type ingestService struct {
	pool   *pgxpool.Pool
	master MasterService
}

func NewIngestService(pool *pgxpool.Pool, master MasterService) IngestService {
	return &ingestService{pool: pool, master: master}
}

func (s *ingestService) ParseOrders(ctx context.Context, header []string, rows [][]string) (*ParseResult, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no header row to parse")
	}
	idx, err := s.master.BuildProductIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ParseOrderRows(header, rows, idx), nil
}

// validatedItem pairs an input item with the values resolved during
// validation so the write phase never repeats a lookup.
type validatedItem struct {
	item     ParsedOrderItem
	buyPrice decimal.Decimal
	customer string
}

// validateBatch checks every item and returns either the full validated
// batch or the full error list, never a mix.
func (s *ingestService) validateBatch(ctx context.Context, items []ParsedOrderItem, idx *ProductIndex) ([]validatedItem, []string) {
	var errors []string
	validated := make([]validatedItem, 0, len(items))

	for i, item := range items {
		var itemErrors []string

		barcode := normalizeCell(item.Barcode)
		if barcode == "" {
			itemErrors = append(itemErrors, "missing barcode")
		}

		var buyPrice decimal.Decimal
		if barcode != "" {
			p, ok := idx.Lookup(barcode)
			if !ok || !p.BuyPrice.IsPositive() {
				itemErrors = append(itemErrors, fmt.Sprintf("no buy price in product master (barcode: %s)", barcode))
			} else {
				buyPrice = p.BuyPrice
			}
		}

		if !item.SupplyPrice.IsPositive() {
			itemErrors = append(itemErrors, "missing supply price")
		}
		if item.OrderQty <= 0 {
			itemErrors = append(itemErrors, "missing order quantity")
		}
		if strings.TrimSpace(item.Brand) == "" {
			itemErrors = append(itemErrors, "missing brand")
		}
		customer := strings.TrimSpace(item.Customer)
		if customer == "" {
			itemErrors = append(itemErrors, "missing buyer")
		}

		if len(itemErrors) > 0 {
			name := item.ProductName
			if name == "" {
				name = "unnamed product"
			}
			errors = append(errors, fmt.Sprintf("row %d [%s]: %s", i+1, name, strings.Join(itemErrors, ", ")))
			continue
		}
		validated = append(validated, validatedItem{item: item, buyPrice: buyPrice, customer: customer})
	}

	if len(errors) > 0 {
		return nil, errors
	}
	return validated, nil
}

func (s *ingestService) CommitOrderItems(ctx context.Context, items []ParsedOrderItem, actor string) (*CommitResult, error) {
	if len(items) == 0 {
		return &CommitResult{Errors: []string{"no items to save"}, ErrorCount: 1}, fmt.Errorf("no items to save")
	}

	idx, err := s.master.BuildProductIndex(ctx)
	if err != nil {
		return nil, err
	}

	validated, valErrors := s.validateBatch(ctx, items, idx)
	if len(valErrors) > 0 {
		return &CommitResult{
			TotalRows:  len(items),
			ErrorCount: len(valErrors),
			Errors:     valErrors,
		}, nil
	}

	// Group by buyer so each buyer's lines share one sequence run.
	byCustomer := make(map[string][]validatedItem)
	var customers []string
	for _, v := range validated {
		if _, ok := byCustomer[v.customer]; !ok {
			customers = append(customers, v.customer)
		}
		byCustomer[v.customer] = append(byCustomer[v.customer], v)
	}

	now := time.Now()
	orderDate := now.Truncate(24 * time.Hour)
	dateStr := now.Format("20060102")

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &CommitResult{TotalRows: len(items)}

	for _, customer := range customers {
		customerCode, err := s.master.PartnerCode(ctx, customer)
		if err != nil {
			return nil, err
		}
		if customerCode == "" {
			customerCode = "CUS"
		}

		// Concurrency-safe sequence per (date, buyer); one allocation per
		// batch, shared by every line of this buyer's order.
		var seq int64
		err = tx.QueryRow(ctx, `
			INSERT INTO order_sequences (order_date, buyer, last_number)
			VALUES ($1, $2, 1)
			ON CONFLICT (order_date, buyer)
			DO UPDATE SET last_number = order_sequences.last_number + 1
			RETURNING last_number
		`, orderDate, customer).Scan(&seq)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate order sequence: %w", err)
		}

		for _, v := range byCustomer[customer] {
			brandCode := idx.BrandCode(v.item.Brand)
			orderCode := fmt.Sprintf("%s-%s-%s-%03d", dateStr, customerCode, brandCode, seq)
			supplier := idx.SupplierForBrand(v.item.Brand)

			purchase, supply, margin, rate := lineAmounts(v.item.OrderQty, v.buyPrice, v.item.SupplyPrice)

			_, err = tx.Exec(ctx, `
				INSERT INTO ledger_lines (
					order_code, order_date, product_code, product_name, brand,
					supplier_name, buyer_name, order_qty, confirmed_qty,
					buy_price, supply_price, purchase_amount, supply_amount,
					margin_amount, margin_rate, transaction_state
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			`, orderCode, orderDate, v.item.Barcode, v.item.ProductName, v.item.Brand,
				supplier, customer, v.item.OrderQty, v.item.OrderQty,
				v.buyPrice, v.item.SupplyPrice, purchase, supply,
				margin, rate, string(StateConfirmedOpen))
			if err != nil {
				return nil, fmt.Errorf("failed to insert ledger line: %w", err)
			}

			result.SavedRows++
			result.OrderCodes = append(result.OrderCodes, orderCode)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func (s *ingestService) CheckDuplicateOrders(ctx context.Context, customer string, date time.Time) ([]DuplicateOrder, error) {
	query := `
		SELECT order_code,
		       string_agg(DISTINCT brand, ', '),
		       COUNT(*),
		       COALESCE(SUM(supply_amount), 0)
		FROM ledger_lines
		WHERE buyer_name = $1 AND order_date = $2
		GROUP BY order_code
		ORDER BY order_code
	`
	rows, err := s.pool.Query(ctx, query, customer, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate orders: %w", err)
	}
	defer rows.Close()

	var orders []DuplicateOrder
	for rows.Next() {
		var o DuplicateOrder
		if err := rows.Scan(&o.OrderCode, &o.Brands, &o.ItemCount, &o.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
