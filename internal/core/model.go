package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionState string

const (
	StateConfirmedOpen TransactionState = "CONFIRMED_OPEN"
	StateSettled       TransactionState = "SETTLED"
)

type SettlementType string

const (
	SettlementPurchase SettlementType = "PURCHASE"
	SettlementSales    SettlementType = "SALES"
)

type SettlementStatus string

const (
	SettlementDraft     SettlementStatus = "DRAFT"
	SettlementConfirmed SettlementStatus = "CONFIRMED"
	SettlementLocked    SettlementStatus = "LOCKED"
)

type InvoiceStatus string

const (
	InvoiceDraft       InvoiceStatus = "DRAFT"
	InvoiceIssued      InvoiceStatus = "ISSUED"
	InvoicePaidPartial InvoiceStatus = "PAID_PARTIAL"
	InvoicePaid        InvoiceStatus = "PAID"
)

type BillingType string

const (
	BillingSettlement BillingType = "SETTLEMENT"
	BillingDirect     BillingType = "DIRECT"
)

type ClosingStatus string

const (
	ClosingOpen   ClosingStatus = "OPEN"
	ClosingClosed ClosingStatus = "CLOSED"
)

type PartnerRole string

const (
	RoleSupplier PartnerRole = "SUPPLIER"
	RoleBuyer    PartnerRole = "BUYER"
	RoleBoth     PartnerRole = "BOTH"
)

type Partner struct {
	ID        int         `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Brand     string      `json:"brand"`
	BrandCode string      `json:"brand_code"`
	Role      PartnerRole `json:"role"`
	IsActive  bool        `json:"is_active"`
}

type Product struct {
	ID       int             `json:"id"`
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	BuyPrice decimal.Decimal `json:"buy_price"`
	IsActive bool            `json:"is_active"`
}

// LedgerLine is one product line of one order. Amounts are derived from
// confirmed_qty and the two unit prices; UpdateConfirmedQuantities keeps
// them consistent.
type LedgerLine struct {
	ID                   int              `json:"id"`
	OrderCode            string           `json:"order_code"`
	OrderDate            time.Time        `json:"order_date"`
	ProductCode          string           `json:"product_code"`
	ProductName          string           `json:"product_name"`
	Brand                string           `json:"brand"`
	SupplierName         string           `json:"supplier_name"`
	BuyerName            string           `json:"buyer_name"`
	OrderQty             int              `json:"order_qty"`
	ConfirmedQty         int              `json:"confirmed_qty"`
	BuyPrice             decimal.Decimal  `json:"buy_price"`
	SupplyPrice          decimal.Decimal  `json:"supply_price"`
	PurchaseAmount       decimal.Decimal  `json:"purchase_amount"`
	SupplyAmount         decimal.Decimal  `json:"supply_amount"`
	MarginAmount         decimal.Decimal  `json:"margin_amount"`
	MarginRate           decimal.Decimal  `json:"margin_rate"`
	TransactionState     TransactionState `json:"transaction_state"`
	PurchaseSettlementID *string          `json:"purchase_settlement_id,omitempty"`
	SalesSettlementID    *string          `json:"sales_settlement_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type Settlement struct {
	SettlementID string           `json:"settlement_id"`
	Type         SettlementType   `json:"type"`
	Partner      string           `json:"partner"`
	PeriodStart  time.Time        `json:"period_start"`
	PeriodEnd    time.Time        `json:"period_end"`
	Status       SettlementStatus `json:"status"`
	ItemCount    int              `json:"item_count"`
	OrderQty     int              `json:"order_qty"`
	ConfirmedQty int              `json:"confirmed_qty"`
	Amount       decimal.Decimal  `json:"amount"`
	DiffQty      int              `json:"diff_qty"`
	Notes        string           `json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
	CreatedBy    string           `json:"created_by"`
	ConfirmedAt  *time.Time       `json:"confirmed_at,omitempty"`
	ConfirmedBy  *string          `json:"confirmed_by,omitempty"`
}

// SettlementDetail is a snapshot line captured when a settlement is saved.
// Counterparty is the supplier for purchase settlements, the buyer for sales.
type SettlementDetail struct {
	SettlementID string          `json:"settlement_id"`
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

type Invoice struct {
	InvoiceID       string          `json:"invoice_id"`
	BillingType     BillingType     `json:"billing_type"`
	SettlementID    *string         `json:"settlement_id,omitempty"`
	OrderNumbers    []string        `json:"order_numbers"`
	Company         string          `json:"company"`
	Type            SettlementType  `json:"type"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          InvoiceStatus   `json:"status"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	CreatedBy       string          `json:"created_by"`
	IssuedAt        *time.Time      `json:"issued_at,omitempty"`
	IssuedBy        *string         `json:"issued_by,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

type MonthlyClosing struct {
	ClosingID      string          `json:"closing_id"`
	YearMonth      string          `json:"year_month"`
	Status         ClosingStatus   `json:"status"`
	PurchaseCount  int             `json:"purchase_count"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	SalesCount     int             `json:"sales_count"`
	SalesAmount    decimal.Decimal `json:"sales_amount"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	ClosedBy       *string         `json:"closed_by,omitempty"`
	UnlockedAt     *time.Time      `json:"unlocked_at,omitempty"`
	UnlockedBy     *string         `json:"unlocked_by,omitempty"`
}

// Deposit is one row of a parsed bank statement.
type Deposit struct {
	Date      string          `json:"date"` // YYYY-MM-DD
	Depositor string          `json:"depositor"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
}

// OpenInvoice is the slice of an invoice the matcher needs: identity,
// counterparty and how much is still owed.
type OpenInvoice struct {
	InvoiceID       string          `json:"invoice_id"`
	Company         string          `json:"company"`
	InvoiceDate     string          `json:"invoice_date"` // YYYY-MM-DD
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

type DepositMatch struct {
	Deposit    Deposit         `json:"deposit"`
	InvoiceID  string          `json:"invoice_id"`
	Company    string          `json:"company"`
	AmountDiff decimal.Decimal `json:"amount_diff"`
	DateDiff   int             `json:"date_diff"`
	Score      float64         `json:"score"`
}

// MatchTolerance bounds how far a deposit may drift from an invoice and
// still auto-match. AmountTolerance is an absolute currency amount,
// DateTolerance a whole number of days.
type MatchTolerance struct {
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`
	DateTolerance   int             `json:"date_tolerance"`
}

func DefaultMatchTolerance() MatchTolerance {
	return MatchTolerance{AmountTolerance: decimal.Zero, DateTolerance: 3}
}
