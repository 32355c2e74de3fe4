package app

import (
	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

// PartnerListResult is returned by ListPartners.
type PartnerListResult struct {
	Partners []core.Partner
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product
}

// ParseOrdersResult is returned by ParseOrders.
type ParseOrdersResult struct {
	Parse *core.ParseResult
}

// CommitOrdersResult is returned by CommitOrders. Errors is non-empty when
// validation rejected the batch; nothing was written in that case.
type CommitOrdersResult struct {
	Commit *core.CommitResult
}

// DuplicateOrdersResult is returned by CheckDuplicateOrders.
type DuplicateOrdersResult struct {
	HasDuplicate bool
	Orders       []core.DuplicateOrder
}

// TransactionListResult is returned by ListTransactions.
type TransactionListResult struct {
	Lines []core.LedgerLine
}

// UpdateQuantitiesResult is returned by UpdateConfirmedQuantities.
type UpdateQuantitiesResult struct {
	UpdatedCount int
	Errors       []string
}

// AggregateResult is returned by Aggregate.
type AggregateResult struct {
	Aggregation *core.AggregationResult
}

// SaveSettlementResult is returned by SaveSettlement. Warning is non-empty
// when the settlement was saved but the ledger-state update failed.
type SaveSettlementResult struct {
	SettlementID string
	UpdatedLines int
	Warning      string
}

// UnlockSettlementResult is returned by UnlockSettlement.
type UnlockSettlementResult struct {
	UpdatedRows int
}

// SettlementDetailResult is returned by GetSettlementDetail.
type SettlementDetailResult struct {
	Settlement core.Settlement
	Items      []core.SettlementDetail
}

// SettlementListResult is returned by ListSettlements.
type SettlementListResult struct {
	Settlements []core.Settlement
}

// CreateInvoiceResult is returned by CreateInvoice.
type CreateInvoiceResult struct {
	InvoiceID string
}

// InvoiceExistsResult is returned by CheckInvoiceExists.
type InvoiceExistsResult struct {
	Exists   bool
	Invoices []core.Invoice
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice
}

// BankMatchResult is returned by UploadBankStatement.
type BankMatchResult struct {
	DepositCount      int
	Matches           []core.DepositMatch
	UnmatchedDeposits []core.Deposit
	UpdatedInvoices   int
}

// OutstandingAlertsResult is returned by OutstandingAlerts.
type OutstandingAlertsResult struct {
	AlertCount int
	Alerts     []core.OutstandingAlert
}

// ClosingResult is returned by ExecuteClosing.
type ClosingResult struct {
	ClosingID      string
	PurchaseCount  int
	PurchaseAmount decimal.Decimal
	SalesCount     int
	SalesAmount    decimal.Decimal
}

// UnlockClosingResult is returned by UnlockClosing.
type UnlockClosingResult struct {
	UnlockedSettlements int
}

// ClosingListResult is returned by ListClosings.
type ClosingListResult struct {
	Closings []core.MonthlyClosing
}

// DashboardStatsResult is returned by DashboardStats.
type DashboardStatsResult struct {
	Month             string
	LineCount         int
	PurchaseAmount    decimal.Decimal
	SupplyAmount      decimal.Decimal
	MarginAmount      decimal.Decimal
	OpenSettlements   int
	LockedSettlements int
	UnpaidInvoices    int
	OutstandingAmount decimal.Decimal
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	User *core.User
}
