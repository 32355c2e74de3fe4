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

type CreateInvoiceRequest struct {
	SettlementID string          `json:"settlement_id,omitempty"`
	OrderNumbers []string        `json:"order_numbers,omitempty"`
	Type         SettlementType  `json:"type"`
	Company      string          `json:"company"`
	InvoiceDate  time.Time       `json:"invoice_date"`
	Amount       decimal.Decimal `json:"amount"`
	Notes        string          `json:"notes"`
	Actor        string          `json:"actor"`
}

type InvoiceFilter struct {
	Status  InvoiceStatus
	Company string
	Type    SettlementType
}

// invoiceTransitions lists the legal forward edges of the invoice state
// machine. Anything not listed is rejected.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:       {InvoiceIssued},
	InvoiceIssued:      {InvoicePaidPartial, InvoicePaid},
	InvoicePaidPartial: {InvoicePaid},
	InvoicePaid:        {},
}

func canTransitionInvoice(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type InvoiceService interface {
	// CreateInvoice bills either a settlement (SETTLEMENT track) or a set
	// of order codes directly (DIRECT track). A DIRECT invoice with no
	// amount sums the ledger's supply amounts over the order codes.
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (string, error)
	// CheckInvoiceExists reports every invoice already holding the order
	// code. Advisory: the caller warns before double-invoicing.
	CheckInvoiceExists(ctx context.Context, orderNumber string) ([]Invoice, error)
	// UpdateInvoiceStatus applies one forward transition and stamps the
	// matching audit fields. Backward transitions are rejected.
	UpdateInvoiceStatus(ctx context.Context, invoiceID string, status InvoiceStatus, actor string) error
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
}

type invoiceService struct {
	pool *pgxpool.Pool
}

func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (string, error) {
	hasSettlement := strings.TrimSpace(req.SettlementID) != ""
	if !hasSettlement && len(req.OrderNumbers) == 0 {
		return "", fmt.Errorf("either a settlement id or order numbers are required")
	}
	if req.Company == "" {
		return "", fmt.Errorf("company is required")
	}
	if req.Type != SettlementPurchase && req.Type != SettlementSales {
		return "", fmt.Errorf("unknown invoice type: %s", req.Type)
	}

	billingType := BillingDirect
	var settlementID *string
	if hasSettlement {
		billingType = BillingSettlement
		settlementID = &req.SettlementID
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	amount := req.Amount
	if billingType == BillingDirect && amount.IsZero() {
		err := tx.QueryRow(ctx,
			"SELECT COALESCE(SUM(supply_amount), 0) FROM ledger_lines WHERE order_code = ANY($1)",
			req.OrderNumbers,
		).Scan(&amount)
		if err != nil {
			return "", fmt.Errorf("failed to sum ledger amounts for direct invoice: %w", err)
		}
	}

	// Concurrency-safe per-day sequence for the invoice id.
	var seq int64
	day := invoiceDate.Truncate(24 * time.Hour)
	err = tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (invoice_date, last_number)
		VALUES ($1, 1)
		ON CONFLICT (invoice_date)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number
	`, day).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice sequence: %w", err)
	}
	invoiceID := fmt.Sprintf("INV-%s-%03d", invoiceDate.Format("20060102"), seq)

	orderNumbers := req.OrderNumbers
	if orderNumbers == nil {
		orderNumbers = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (
			invoice_id, billing_type, settlement_id, order_numbers, company,
			type, invoice_date, amount, paid_amount, remaining_amount,
			status, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $8, $9, $10, $11)
	`, invoiceID, string(billingType), settlementID, orderNumbers, req.Company,
		string(req.Type), invoiceDate, amount, string(InvoiceDraft), req.Notes, req.Actor)
	if err != nil {
		return "", fmt.Errorf("failed to insert invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return invoiceID, nil
}

const invoiceColumnsSQL = `
	invoice_id, billing_type, settlement_id, order_numbers, company,
	type, invoice_date, amount, paid_amount, remaining_amount,
	status, notes, created_at, created_by, issued_at, issued_by, paid_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.InvoiceID, &inv.BillingType, &inv.SettlementID, &inv.OrderNumbers, &inv.Company,
		&inv.Type, &inv.InvoiceDate, &inv.Amount, &inv.PaidAmount, &inv.RemainingAmount,
		&inv.Status, &inv.Notes, &inv.CreatedAt, &inv.CreatedBy, &inv.IssuedAt, &inv.IssuedBy, &inv.PaidAt,
	)
	return inv, err
}

func (s *invoiceService) CheckInvoiceExists(ctx context.Context, orderNumber string) ([]Invoice, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, fmt.Errorf("order number is required")
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+invoiceColumnsSQL+" FROM invoices WHERE order_numbers ? $1 ORDER BY created_at",
		orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check invoice existence: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, invoiceID string, status InvoiceStatus, actor string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM invoices WHERE invoice_id = $1 FOR UPDATE", invoiceID,
	).Scan(&current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("invoice not found: %s", invoiceID)
		}
		return fmt.Errorf("failed to read invoice: %w", err)
	}

	if !canTransitionInvoice(current, status) {
		return fmt.Errorf("invoice %s cannot move from %s to %s", invoiceID, current, status)
	}

	query := `
		UPDATE invoices SET
			status    = $1,
			issued_at = CASE WHEN $1 = 'ISSUED' THEN NOW() ELSE issued_at END,
			issued_by = CASE WHEN $1 = 'ISSUED' THEN $3 ELSE issued_by END,
			paid_at   = CASE WHEN $1 = 'PAID' THEN NOW() ELSE paid_at END
		WHERE invoice_id = $2
	`
	if _, err := tx.Exec(ctx, query, string(status), invoiceID, actor); err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumnsSQL + `
		FROM invoices
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR company = $2)
		  AND ($3 = '' OR type = $3)
		ORDER BY invoice_date DESC, invoice_id
	`
	rows, err := s.pool.Query(ctx, query,
		string(filter.Status), filter.Company, string(filter.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
