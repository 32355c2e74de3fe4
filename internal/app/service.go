package app

import (
	"context"
)

// ApplicationService is the single interface all adapters call. It
// decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// ListPartners returns active partners, optionally filtered by role
	// (SUPPLIER, BUYER, BOTH; empty means all).
	ListPartners(ctx context.Context, role string) (*PartnerListResult, error)

	// ListProducts returns all active products from the product master.
	ListProducts(ctx context.Context) (*ProductListResult, error)

	// ParseOrders normalizes raw order-file rows and matches them against
	// the product master without persisting anything.
	ParseOrders(ctx context.Context, req ParseOrdersRequest) (*ParseOrdersResult, error)

	// CommitOrders validates and writes a batch of parsed order items.
	// All-or-nothing: a single invalid item aborts the whole batch.
	CommitOrders(ctx context.Context, req CommitOrdersRequest) (*CommitOrdersResult, error)

	// CheckDuplicateOrders reports orders already on the ledger for the
	// buyer and date, so the caller can warn before re-committing.
	CheckDuplicateOrders(ctx context.Context, customer, date string) (*DuplicateOrdersResult, error)

	// ListTransactions returns ledger lines matching the filter.
	ListTransactions(ctx context.Context, req TransactionFilterRequest) (*TransactionListResult, error)

	// UpdateConfirmedQuantities revises accepted quantities; derived
	// amounts are recomputed in the same operation. Partial success:
	// failed lines are reported, successful ones stay updated.
	UpdateConfirmedQuantities(ctx context.Context, req UpdateQuantitiesRequest) (*UpdateQuantitiesResult, error)

	// Aggregate produces purchase- or sales-side totals over a partner and
	// period, recomputed fresh from the ledger. Read-only.
	Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error)

	// SaveSettlement upserts a settlement and its detail snapshot; saving
	// as CONFIRMED also transitions the covered ledger lines to SETTLED.
	// A step-two failure surfaces as Warning, not an error.
	SaveSettlement(ctx context.Context, req SaveSettlementRequest) (*SaveSettlementResult, error)

	// UnlockSettlement returns a CONFIRMED settlement to DRAFT and reopens
	// its ledger lines. LOCKED settlements are rejected.
	UnlockSettlement(ctx context.Context, settlementID, stype string) (*UnlockSettlementResult, error)

	// GetSettlementDetail returns one settlement and its snapshot lines.
	GetSettlementDetail(ctx context.Context, settlementID string) (*SettlementDetailResult, error)

	// ListSettlements returns settlements matching the filter.
	ListSettlements(ctx context.Context, req SettlementFilterRequest) (*SettlementListResult, error)

	// CreateInvoice bills a settlement or a set of order codes directly.
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error)

	// CheckInvoiceExists reports invoices already holding the order code.
	CheckInvoiceExists(ctx context.Context, orderNumber string) (*InvoiceExistsResult, error)

	// UpdateInvoiceStatus applies one forward status transition.
	UpdateInvoiceStatus(ctx context.Context, req UpdateInvoiceStatusRequest) error

	// ListInvoices returns invoices matching the filter.
	ListInvoices(ctx context.Context, req InvoiceFilterRequest) (*InvoiceListResult, error)

	// UploadBankStatement parses bank CSV text and auto-matches deposits
	// to unpaid invoices within the given tolerances.
	UploadBankStatement(ctx context.Context, req UploadBankStatementRequest) (*BankMatchResult, error)

	// RecordManualPayment applies one payment to one invoice by hand.
	RecordManualPayment(ctx context.Context, req ManualPaymentRequest) error

	// OutstandingAlerts lists unpaid invoices overdue past the given days.
	OutstandingAlerts(ctx context.Context, days int) (*OutstandingAlertsResult, error)

	// ExecuteClosing locks all CONFIRMED settlements in a YYYYMM month.
	ExecuteClosing(ctx context.Context, yearMonth, actor string) (*ClosingResult, error)

	// UnlockClosing reopens a closed month, returning every LOCKED
	// settlement in it to CONFIRMED.
	UnlockClosing(ctx context.Context, yearMonth, actor string) (*UnlockClosingResult, error)

	// ListClosings returns the monthly closing history, newest first.
	ListClosings(ctx context.Context) (*ClosingListResult, error)

	// DashboardStats summarizes the current month: ledger totals, open
	// settlement counts and outstanding invoice amounts.
	DashboardStats(ctx context.Context) (*DashboardStatsResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns a user by id.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
}
