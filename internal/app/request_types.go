package app

import (
	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

// ParseOrdersRequest carries raw order-file rows: one header row plus
// data rows, exactly as the upstream file parser produced them.
type ParseOrdersRequest struct {
	Header []string
	Rows   [][]string
}

// CommitOrdersRequest is the input for writing a parsed order batch.
// Items should be the MATCHED output of ParseOrders with Customer set.
type CommitOrdersRequest struct {
	Items []core.ParsedOrderItem
	Actor string
}

// TransactionFilterRequest narrows a ledger listing. Dates are YYYY-MM-DD;
// empty fields mean "no filter".
type TransactionFilterRequest struct {
	Start     string
	End       string
	Supplier  string
	Buyer     string
	Brand     string
	State     string
	OrderCode string
	Limit     int
}

// UpdateQuantitiesRequest revises accepted quantities on ledger lines.
type UpdateQuantitiesRequest struct {
	Changes []core.ConfirmedQtyChange
}

// AggregateRequest selects one settlement side over a partner and period.
// Empty Partner means all partners. Dates are YYYY-MM-DD.
type AggregateRequest struct {
	Type    string // PURCHASE | SALES
	Partner string
	Start   string
	End     string
}

// SaveSettlementRequest persists one settlement. Items is the snapshot the
// caller reviewed, typically the output of Aggregate.
type SaveSettlementRequest struct {
	Type    string // PURCHASE | SALES
	Partner string
	Start   string // YYYY-MM-DD
	End     string // YYYY-MM-DD
	Status  string // DRAFT | CONFIRMED
	Notes   string
	Items   []core.AggregatedItem
	Actor   string
}

// SettlementFilterRequest narrows a settlement listing.
type SettlementFilterRequest struct {
	Type    string
	Partner string
	Status  string
	Month   string // YYYYMM
}

// CreateInvoiceRequest bills either a settlement or order codes directly.
// Amount zero on the direct track means "sum the ledger supply amounts".
type CreateInvoiceRequest struct {
	SettlementID string
	OrderNumbers []string
	Type         string // PURCHASE | SALES
	Company      string
	InvoiceDate  string // YYYY-MM-DD; empty means today
	Amount       decimal.Decimal
	Notes        string
	Actor        string
}

// UpdateInvoiceStatusRequest applies one status transition to an invoice.
type UpdateInvoiceStatusRequest struct {
	InvoiceID string
	Status    string
	Actor     string
}

// InvoiceFilterRequest narrows an invoice listing.
type InvoiceFilterRequest struct {
	Status  string
	Company string
	Type    string
}

// UploadBankStatementRequest carries raw bank CSV text and the match
// tolerances. Zero DateTolerance falls back to the 3-day default unless
// DateToleranceSet is true.
type UploadBankStatementRequest struct {
	CSVText          string
	AmountTolerance  decimal.Decimal
	DateTolerance    int
	DateToleranceSet bool
}

// ManualPaymentRequest records one hand-entered payment.
type ManualPaymentRequest struct {
	InvoiceID string
	Amount    decimal.Decimal
	PaidDate  string // YYYY-MM-DD; empty means today
}
