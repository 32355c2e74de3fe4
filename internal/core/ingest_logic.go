package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ColumnMap holds the resolved position of each order-file column,
// -1 when the column is absent.
type ColumnMap struct {
	Brand         int
	ProductName   int
	Barcode       int
	PackQty       int
	ConsumerPrice int
	SupplyPrice   int
	OrderQty      int
	OrderAmount   int
	InboundPlace  int
}

// Order files come from many senders that each label columns differently.
// Aliases are tried in priority order; the first header that matches wins.
var orderColumnAliases = map[string][]string{
	"brand":         {"brand", "brand name"},
	"productName":   {"product name", "item name", "product"},
	"barcode":       {"barcode", "item code", "product code"},
	"packQty":       {"pack qty", "units per pack"},
	"consumerPrice": {"consumer price", "retail price"},
	"supplyPrice":   {"supply price (vat incl)", "supply price", "unit price"},
	"orderQty":      {"order qty", "qty", "quantity", "order quantity"},
	"orderAmount":   {"order amount", "total", "supply total", "amount"},
	"inboundPlace":  {"inbound place", "delivery place", "destination"},
}

// DetectOrderColumns resolves a header row into a ColumnMap. Header cells
// are normalized (newlines stripped, trimmed, lowercased) before matching.
func DetectOrderColumns(header []string) ColumnMap {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(normalizeCell(h))
	}

	find := func(key string) int {
		for _, alias := range orderColumnAliases[key] {
			for i, h := range normalized {
				if h == alias {
					return i
				}
			}
		}
		return -1
	}

	return ColumnMap{
		Brand:         find("brand"),
		ProductName:   find("productName"),
		Barcode:       find("barcode"),
		PackQty:       find("packQty"),
		ConsumerPrice: find("consumerPrice"),
		SupplyPrice:   find("supplyPrice"),
		OrderQty:      find("orderQty"),
		OrderAmount:   find("orderAmount"),
		InboundPlace:  find("inboundPlace"),
	}
}

// normalizeCell strips newlines and surrounding whitespace.
func normalizeCell(v string) string {
	v = strings.ReplaceAll(v, "\r", "")
	v = strings.ReplaceAll(v, "\n", "")
	return strings.TrimSpace(v)
}

// parseNumber coerces a cell into a decimal, tolerating thousands
// separators. Unparseable cells coerce to zero, matching how hand-edited
// order files are treated: junk is skipped, not fatal.
func parseNumber(v string) decimal.Decimal {
	s := strings.ReplaceAll(normalizeCell(v), ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseInt coerces a cell into an int, truncating any fraction.
func parseInt(v string) int {
	d := parseNumber(v)
	n, _ := strconv.Atoi(d.Truncate(0).String())
	return n
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

type MatchStatus string

const (
	Matched   MatchStatus = "MATCHED"
	Unmatched MatchStatus = "UNMATCHED"
)

// ParsedOrderItem is one data row of an order file after normalization
// and master matching. Seq is the 1-based position in the input.
type ParsedOrderItem struct {
	Seq           int             `json:"seq"`
	Brand         string          `json:"brand"`
	ProductName   string          `json:"product_name"`
	Barcode       string          `json:"barcode"`
	OrderQty      int             `json:"order_qty"`
	PackQty       int             `json:"pack_qty"`
	ConsumerPrice decimal.Decimal `json:"consumer_price"`
	SupplyPrice   decimal.Decimal `json:"supply_price"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	InboundPlace  string          `json:"inbound_place"`
	Customer      string          `json:"customer"`
	MatchStatus   MatchStatus     `json:"match_status"`
	MasterBrand   string          `json:"master_brand"`
	MasterName    string          `json:"master_name"`
}

type ParseResult struct {
	TotalRows      int               `json:"total_rows"`
	DataRows       int               `json:"data_rows"`
	ParsedItems    int               `json:"parsed_items"`
	MatchedCount   int               `json:"matched_count"`
	UnmatchedCount int               `json:"unmatched_count"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Items          []ParsedOrderItem `json:"items"`
}

// ParseOrderRows turns a header row plus data rows into normalized order
// items matched against the product index. Rows without a positive
// quantity are skipped entirely; unmatched rows are kept and flagged so
// the caller can decide what to commit.
func ParseOrderRows(header []string, rows [][]string, idx *ProductIndex) *ParseResult {
	colMap := DetectOrderColumns(header)

	result := &ParseResult{
		TotalRows:   len(rows) + 1,
		DataRows:    len(rows),
		TotalAmount: decimal.Zero,
	}

	for i, row := range rows {
		brand := normalizeCell(cellAt(row, colMap.Brand))
		name := normalizeCell(cellAt(row, colMap.ProductName))
		barcode := normalizeCell(cellAt(row, colMap.Barcode))
		qty := parseInt(cellAt(row, colMap.OrderQty))

		if brand == "" && name == "" && barcode == "" && qty == 0 {
			continue
		}
		if qty <= 0 {
			continue
		}

		supplyPrice := parseNumber(cellAt(row, colMap.SupplyPrice))
		amount := parseNumber(cellAt(row, colMap.OrderAmount))
		if amount.IsZero() && supplyPrice.IsPositive() {
			amount = supplyPrice.Mul(decimal.NewFromInt(int64(qty)))
		}
		result.TotalAmount = result.TotalAmount.Add(amount)

		item := ParsedOrderItem{
			Seq:           i + 1,
			Brand:         brand,
			ProductName:   name,
			Barcode:       barcode,
			OrderQty:      qty,
			PackQty:       parseInt(cellAt(row, colMap.PackQty)),
			ConsumerPrice: parseNumber(cellAt(row, colMap.ConsumerPrice)),
			SupplyPrice:   supplyPrice,
			OrderAmount:   amount,
			InboundPlace:  normalizeCell(cellAt(row, colMap.InboundPlace)),
			MatchStatus:   Unmatched,
		}

		if barcode != "" {
			if p, ok := idx.Lookup(barcode); ok {
				item.MatchStatus = Matched
				item.MasterBrand = p.Brand
				item.MasterName = p.Name
			}
		}
		if item.MatchStatus == Matched {
			result.MatchedCount++
		} else {
			result.UnmatchedCount++
		}
		result.Items = append(result.Items, item)
	}
	result.ParsedItems = len(result.Items)
	return result
}

// lineAmounts derives the four amount fields from a confirmed quantity and
// unit prices. Margin rate is the margin as a fraction of the purchase
// amount, zero when there is no purchase amount to divide by.
func lineAmounts(confirmedQty int, buyPrice, supplyPrice decimal.Decimal) (purchase, supply, margin, rate decimal.Decimal) {
	qty := decimal.NewFromInt(int64(confirmedQty))
	purchase = buyPrice.Mul(qty)
	supply = supplyPrice.Mul(qty)
	margin = supply.Sub(purchase)
	if purchase.IsPositive() {
		rate = margin.Div(purchase).Round(4)
	} else {
		rate = decimal.Zero
	}
	return purchase, supply, margin, rate
}
