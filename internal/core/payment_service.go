package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type MatchResult struct {
	DepositCount      int            `json:"deposit_count"`
	Matches           []DepositMatch `json:"matches"`
	UnmatchedDeposits []Deposit      `json:"unmatched_deposits"`
	UpdatedInvoices   int            `json:"updated_invoices"`
}

type OutstandingAlert struct {
	InvoiceID       string          `json:"invoice_id"`
	Company         string          `json:"company"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	OverdueDays     int             `json:"overdue_days"`
	Severity        string          `json:"severity"` // HIGH | MEDIUM | LOW
}

type PaymentService interface {
	// UploadBankStatement parses raw bank CSV text, auto-matches the
	// deposits against unpaid invoices within the given tolerances and
	// applies each matched payment.
	UploadBankStatement(ctx context.Context, csvText string, tol MatchTolerance) (*MatchResult, error)
	// RecordManualPayment applies one payment to one invoice by hand.
	RecordManualPayment(ctx context.Context, invoiceID string, amount decimal.Decimal, paidDate time.Time) error
	// OutstandingAlerts lists unpaid invoices older than the given number
	// of days, most overdue first.
	OutstandingAlerts(ctx context.Context, days int) ([]OutstandingAlert, error)
}

type paymentService struct {
	pool *pgxpool.Pool
}

func NewPaymentService(pool *pgxpool.Pool) PaymentService {
	return &paymentService{pool: pool}
}

// unpaidInvoices loads invoices still owed money: status ISSUED or
// PAID_PARTIAL with a positive remaining amount.
func (s *paymentService) unpaidInvoices(ctx context.Context) ([]OpenInvoice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT invoice_id, company, to_char(invoice_date, 'YYYY-MM-DD'), remaining_amount
		FROM invoices
		WHERE status IN ($1, $2) AND remaining_amount > 0
		ORDER BY invoice_date, invoice_id
	`, string(InvoiceIssued), string(InvoicePaidPartial))
	if err != nil {
		return nil, fmt.Errorf("failed to load unpaid invoices: %w", err)
	}
	defer rows.Close()

	var open []OpenInvoice
	for rows.Next() {
		var inv OpenInvoice
		if err := rows.Scan(&inv.InvoiceID, &inv.Company, &inv.InvoiceDate, &inv.RemainingAmount); err != nil {
			return nil, fmt.Errorf("failed to scan unpaid invoice: %w", err)
		}
		open = append(open, inv)
	}
	return open, rows.Err()
}

func (s *paymentService) UploadBankStatement(ctx context.Context, csvText string, tol MatchTolerance) (*MatchResult, error) {
	if csvText == "" {
		return nil, fmt.Errorf("bank statement text is empty")
	}

	deposits := ParseBankCSV(csvText)
	open, err := s.unpaidInvoices(ctx)
	if err != nil {
		return nil, err
	}

	matches, unmatched := MatchDeposits(deposits, open, tol)

	result := &MatchResult{
		DepositCount:      len(deposits),
		Matches:           matches,
		UnmatchedDeposits: unmatched,
	}

	for _, m := range matches {
		paidDate, _ := parseDay(m.Deposit.Date)
		if err := s.applyPayment(ctx, m.InvoiceID, m.Deposit.Amount, paidDate); err != nil {
			return nil, err
		}
		result.UpdatedInvoices++
	}
	return result, nil
}

func (s *paymentService) RecordManualPayment(ctx context.Context, invoiceID string, amount decimal.Decimal, paidDate time.Time) error {
	if invoiceID == "" {
		return fmt.Errorf("invoice id is required")
	}
	if !amount.IsPositive() {
		return fmt.Errorf("payment amount must be positive")
	}
	if paidDate.IsZero() {
		paidDate = time.Now()
	}
	return s.applyPayment(ctx, invoiceID, amount, paidDate)
}

// applyPayment adds one payment to an invoice and derives the new status.
// Overpayment clamps: paid never exceeds the invoice total, remaining
// never goes below zero.
func (s *paymentService) applyPayment(ctx context.Context, invoiceID string, amount decimal.Decimal, paidDate time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total, paid decimal.Decimal
	var status InvoiceStatus
	err = tx.QueryRow(ctx,
		"SELECT amount, paid_amount, status FROM invoices WHERE invoice_id = $1 FOR UPDATE", invoiceID,
	).Scan(&total, &paid, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("invoice not found: %s", invoiceID)
		}
		return fmt.Errorf("failed to lock invoice: %w", err)
	}
	if status != InvoiceIssued && status != InvoicePaidPartial {
		return fmt.Errorf("invoice %s cannot take a payment: status is %s (must be %s or %s)",
			invoiceID, status, InvoiceIssued, InvoicePaidPartial)
	}

	newPaid := paid.Add(amount)
	remaining := total.Sub(newPaid)
	newStatus := InvoicePaidPartial
	if !remaining.IsPositive() {
		newStatus = InvoicePaid
		remaining = decimal.Zero
		newPaid = total
	}

	_, err = tx.Exec(ctx, `
		UPDATE invoices SET
			paid_amount      = $1,
			remaining_amount = $2,
			status           = $3,
			paid_at          = CASE WHEN $3 = 'PAID' THEN $4 ELSE paid_at END
		WHERE invoice_id = $5
	`, newPaid, remaining, string(newStatus), paidDate, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to apply payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *paymentService) OutstandingAlerts(ctx context.Context, days int) ([]OutstandingAlert, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.pool.Query(ctx, `
		SELECT invoice_id, company, invoice_date, amount, remaining_amount,
		       (CURRENT_DATE - invoice_date)::int
		FROM invoices
		WHERE status IN ($1, $2)
		  AND remaining_amount > 0
		  AND invoice_date < CURRENT_DATE - $3::int
		ORDER BY invoice_date
	`, string(InvoiceIssued), string(InvoicePaidPartial), days)
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	defer rows.Close()

	var alerts []OutstandingAlert
	for rows.Next() {
		var a OutstandingAlert
		if err := rows.Scan(&a.InvoiceID, &a.Company, &a.InvoiceDate, &a.Amount, &a.RemainingAmount, &a.OverdueDays); err != nil {
			return nil, fmt.Errorf("failed to scan outstanding invoice: %w", err)
		}
		switch {
		case a.OverdueDays > 30:
			a.Severity = "HIGH"
		case a.OverdueDays > 14:
			a.Severity = "MEDIUM"
		default:
			a.Severity = "LOW"
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
