package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tradeledger/internal/core"
)

type appService struct {
	pool        *pgxpool.Pool
	master      core.MasterService
	ingest      core.IngestService
	ledger      core.LedgerService
	aggregation core.AggregationService
	settlement  core.SettlementService
	invoice     core.InvoiceService
	payment     core.PaymentService
	closing     core.ClosingService
	users       core.UserService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	master core.MasterService,
	ingest core.IngestService,
	ledger core.LedgerService,
	aggregation core.AggregationService,
	settlement core.SettlementService,
	invoice core.InvoiceService,
	payment core.PaymentService,
	closing core.ClosingService,
	users core.UserService,
) ApplicationService {
	return &appService{
		pool:        pool,
		master:      master,
		ingest:      ingest,
		ledger:      ledger,
		aggregation: aggregation,
		settlement:  settlement,
		invoice:     invoice,
		payment:     payment,
		closing:     closing,
		users:       users,
	}
}

// parseDate parses a YYYY-MM-DD request field. Empty input is allowed and
// returns the zero time when required is false.
func parseDate(s string, required bool) (time.Time, error) {
	if s == "" {
		if required {
			return time.Time{}, fmt.Errorf("date is required")
		}
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseSettlementType(s string) (core.SettlementType, error) {
	switch core.SettlementType(s) {
	case core.SettlementPurchase, core.SettlementSales:
		return core.SettlementType(s), nil
	default:
		return "", fmt.Errorf("type must be %s or %s, got %q", core.SettlementPurchase, core.SettlementSales, s)
	}
}

func (s *appService) ListPartners(ctx context.Context, role string) (*PartnerListResult, error) {
	partners, err := s.master.GetPartners(ctx, core.PartnerRole(role))
	if err != nil {
		return nil, err
	}
	return &PartnerListResult{Partners: partners}, nil
}

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.master.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) ParseOrders(ctx context.Context, req ParseOrdersRequest) (*ParseOrdersResult, error) {
	parse, err := s.ingest.ParseOrders(ctx, req.Header, req.Rows)
	if err != nil {
		return nil, err
	}
	return &ParseOrdersResult{Parse: parse}, nil
}

func (s *appService) CommitOrders(ctx context.Context, req CommitOrdersRequest) (*CommitOrdersResult, error) {
	commit, err := s.ingest.CommitOrderItems(ctx, req.Items, req.Actor)
	if err != nil {
		return nil, err
	}
	return &CommitOrdersResult{Commit: commit}, nil
}

func (s *appService) CheckDuplicateOrders(ctx context.Context, customer, date string) (*DuplicateOrdersResult, error) {
	if customer == "" {
		return nil, fmt.Errorf("customer is required")
	}
	day, err := parseDate(date, false)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = time.Now().Truncate(24 * time.Hour)
	}
	orders, err := s.ingest.CheckDuplicateOrders(ctx, customer, day)
	if err != nil {
		return nil, err
	}
	return &DuplicateOrdersResult{HasDuplicate: len(orders) > 0, Orders: orders}, nil
}

func (s *appService) ListTransactions(ctx context.Context, req TransactionFilterRequest) (*TransactionListResult, error) {
	start, err := parseDate(req.Start, false)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.End, false)
	if err != nil {
		return nil, err
	}
	lines, err := s.ledger.GetTransactions(ctx, core.LedgerFilter{
		Start:     start,
		End:       end,
		Supplier:  req.Supplier,
		Buyer:     req.Buyer,
		Brand:     req.Brand,
		State:     core.TransactionState(req.State),
		OrderCode: req.OrderCode,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionListResult{Lines: lines}, nil
}

func (s *appService) UpdateConfirmedQuantities(ctx context.Context, req UpdateQuantitiesRequest) (*UpdateQuantitiesResult, error) {
	result, err := s.ledger.UpdateConfirmedQuantities(ctx, req.Changes)
	if err != nil {
		return nil, err
	}
	return &UpdateQuantitiesResult{UpdatedCount: result.UpdatedCount, Errors: result.Errors}, nil
}

func (s *appService) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error) {
	stype, err := parseSettlementType(req.Type)
	if err != nil {
		return nil, err
	}
	start, err := parseDate(req.Start, true)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.End, true)
	if err != nil {
		return nil, err
	}
	agg, err := s.aggregation.Aggregate(ctx, stype, req.Partner, start, end)
	if err != nil {
		return nil, err
	}
	return &AggregateResult{Aggregation: agg}, nil
}

func (s *appService) SaveSettlement(ctx context.Context, req SaveSettlementRequest) (*SaveSettlementResult, error) {
	stype, err := parseSettlementType(req.Type)
	if err != nil {
		return nil, err
	}
	start, err := parseDate(req.Start, true)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.End, true)
	if err != nil {
		return nil, err
	}
	result, err := s.settlement.SaveSettlement(ctx, core.SaveSettlementRequest{
		Type:    stype,
		Partner: req.Partner,
		Start:   start,
		End:     end,
		Status:  core.SettlementStatus(req.Status),
		Notes:   req.Notes,
		Items:   req.Items,
		Actor:   req.Actor,
	})
	if err != nil {
		return nil, err
	}
	out := &SaveSettlementResult{
		SettlementID: result.SettlementID,
		UpdatedLines: result.UpdatedLines,
	}
	if result.Warning != nil {
		out.Warning = result.Warning.Message()
	}
	return out, nil
}

func (s *appService) UnlockSettlement(ctx context.Context, settlementID, stype string) (*UnlockSettlementResult, error) {
	t, err := parseSettlementType(stype)
	if err != nil {
		return nil, err
	}
	updated, err := s.settlement.UnlockSettlement(ctx, settlementID, t)
	if err != nil {
		return nil, err
	}
	return &UnlockSettlementResult{UpdatedRows: updated}, nil
}

func (s *appService) GetSettlementDetail(ctx context.Context, settlementID string) (*SettlementDetailResult, error) {
	detail, err := s.settlement.GetSettlementDetail(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	return &SettlementDetailResult{Settlement: detail.Settlement, Items: detail.Items}, nil
}

func (s *appService) ListSettlements(ctx context.Context, req SettlementFilterRequest) (*SettlementListResult, error) {
	settlements, err := s.settlement.ListSettlements(ctx, core.SettlementFilter{
		Type:    core.SettlementType(req.Type),
		Partner: req.Partner,
		Status:  core.SettlementStatus(req.Status),
		Month:   req.Month,
	})
	if err != nil {
		return nil, err
	}
	return &SettlementListResult{Settlements: settlements}, nil
}

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	stype, err := parseSettlementType(req.Type)
	if err != nil {
		return nil, err
	}
	invoiceDate, err := parseDate(req.InvoiceDate, false)
	if err != nil {
		return nil, err
	}
	id, err := s.invoice.CreateInvoice(ctx, core.CreateInvoiceRequest{
		SettlementID: req.SettlementID,
		OrderNumbers: req.OrderNumbers,
		Type:         stype,
		Company:      req.Company,
		InvoiceDate:  invoiceDate,
		Amount:       req.Amount,
		Notes:        req.Notes,
		Actor:        req.Actor,
	})
	if err != nil {
		return nil, err
	}
	return &CreateInvoiceResult{InvoiceID: id}, nil
}

func (s *appService) CheckInvoiceExists(ctx context.Context, orderNumber string) (*InvoiceExistsResult, error) {
	invoices, err := s.invoice.CheckInvoiceExists(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return &InvoiceExistsResult{Exists: len(invoices) > 0, Invoices: invoices}, nil
}

func (s *appService) UpdateInvoiceStatus(ctx context.Context, req UpdateInvoiceStatusRequest) error {
	return s.invoice.UpdateInvoiceStatus(ctx, req.InvoiceID, core.InvoiceStatus(req.Status), req.Actor)
}

func (s *appService) ListInvoices(ctx context.Context, req InvoiceFilterRequest) (*InvoiceListResult, error) {
	invoices, err := s.invoice.ListInvoices(ctx, core.InvoiceFilter{
		Status:  core.InvoiceStatus(req.Status),
		Company: req.Company,
		Type:    core.SettlementType(req.Type),
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) UploadBankStatement(ctx context.Context, req UploadBankStatementRequest) (*BankMatchResult, error) {
	tol := core.MatchTolerance{
		AmountTolerance: req.AmountTolerance,
		DateTolerance:   req.DateTolerance,
	}
	if !req.DateToleranceSet && req.DateTolerance == 0 {
		tol.DateTolerance = core.DefaultMatchTolerance().DateTolerance
	}
	result, err := s.payment.UploadBankStatement(ctx, req.CSVText, tol)
	if err != nil {
		return nil, err
	}
	return &BankMatchResult{
		DepositCount:      result.DepositCount,
		Matches:           result.Matches,
		UnmatchedDeposits: result.UnmatchedDeposits,
		UpdatedInvoices:   result.UpdatedInvoices,
	}, nil
}

func (s *appService) RecordManualPayment(ctx context.Context, req ManualPaymentRequest) error {
	paidDate, err := parseDate(req.PaidDate, false)
	if err != nil {
		return err
	}
	return s.payment.RecordManualPayment(ctx, req.InvoiceID, req.Amount, paidDate)
}

func (s *appService) OutstandingAlerts(ctx context.Context, days int) (*OutstandingAlertsResult, error) {
	alerts, err := s.payment.OutstandingAlerts(ctx, days)
	if err != nil {
		return nil, err
	}
	return &OutstandingAlertsResult{AlertCount: len(alerts), Alerts: alerts}, nil
}

func (s *appService) ExecuteClosing(ctx context.Context, yearMonth, actor string) (*ClosingResult, error) {
	result, err := s.closing.ExecuteClosing(ctx, yearMonth, actor)
	if err != nil {
		return nil, err
	}
	return &ClosingResult{
		ClosingID:      result.ClosingID,
		PurchaseCount:  result.PurchaseCount,
		PurchaseAmount: result.PurchaseAmount,
		SalesCount:     result.SalesCount,
		SalesAmount:    result.SalesAmount,
	}, nil
}

func (s *appService) UnlockClosing(ctx context.Context, yearMonth, actor string) (*UnlockClosingResult, error) {
	unlocked, err := s.closing.UnlockClosing(ctx, yearMonth, actor)
	if err != nil {
		return nil, err
	}
	return &UnlockClosingResult{UnlockedSettlements: unlocked}, nil
}

func (s *appService) ListClosings(ctx context.Context) (*ClosingListResult, error) {
	closings, err := s.closing.ListClosings(ctx)
	if err != nil {
		return nil, err
	}
	return &ClosingListResult{Closings: closings}, nil
}

func (s *appService) DashboardStats(ctx context.Context) (*DashboardStatsResult, error) {
	month := time.Now().Format("200601")
	result := &DashboardStatsResult{
		Month:             month,
		PurchaseAmount:    decimal.Zero,
		SupplyAmount:      decimal.Zero,
		MarginAmount:      decimal.Zero,
		OutstandingAmount: decimal.Zero,
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(purchase_amount), 0),
		       COALESCE(SUM(supply_amount), 0),
		       COALESCE(SUM(margin_amount), 0)
		FROM ledger_lines
		WHERE to_char(order_date, 'YYYYMM') = $1
	`, month).Scan(&result.LineCount, &result.PurchaseAmount, &result.SupplyAmount, &result.MarginAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger stats: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status IN ($1, $2)),
		       COUNT(*) FILTER (WHERE status = $3)
		FROM settlements
		WHERE to_char(period_start, 'YYYYMM') = $4
	`, string(core.SettlementDraft), string(core.SettlementConfirmed),
		string(core.SettlementLocked), month).Scan(&result.OpenSettlements, &result.LockedSettlements)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement stats: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(remaining_amount), 0)
		FROM invoices
		WHERE status IN ($1, $2) AND remaining_amount > 0
	`, string(core.InvoiceIssued), string(core.InvoicePaidPartial)).
		Scan(&result.UnpaidInvoices, &result.OutstandingAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice stats: %w", err)
	}

	return result, nil
}

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return &UserSession{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{User: user}, nil
}
