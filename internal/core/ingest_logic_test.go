package core_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"tradeledger/internal/core"
)

func testProductIndex() *core.ProductIndex {
	products := []core.Product{
		{ID: 1, Barcode: "8800001", Name: "Hydra Cream 50ml", Brand: "Aquelle", BuyPrice: decimal.NewFromInt(4200), IsActive: true},
		{ID: 2, Barcode: "8800002", Name: "Mist Toner 120ml", Brand: "Aquelle", BuyPrice: decimal.NewFromInt(3100), IsActive: true},
		{ID: 3, Barcode: "8800003", Name: "Clay Mask 80g", Brand: "Terraform", BuyPrice: decimal.NewFromInt(5600), IsActive: true},
	}
	partners := []core.Partner{
		{ID: 1, Code: "AQL", Name: "Aquelle Labs", Brand: "Aquelle", BrandCode: "AQL", Role: core.RoleSupplier, IsActive: true},
		{ID: 2, Code: "TFM", Name: "Terraform Co", Brand: "Terraform", BrandCode: "TFM", Role: core.RoleBoth, IsActive: true},
		{ID: 3, Code: "RMART", Name: "Retail Mart", Role: core.RoleBuyer, IsActive: true},
	}
	return core.NewProductIndex(products, partners)
}

func TestDetectOrderColumns_AliasPriority(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		check  func(t *testing.T, m core.ColumnMap)
	}{
		{
			name:   "canonical headers",
			header: []string{"Brand", "Product Name", "Barcode", "Order Qty", "Supply Price", "Order Amount"},
			check: func(t *testing.T, m core.ColumnMap) {
				if m.Brand != 0 || m.ProductName != 1 || m.Barcode != 2 || m.OrderQty != 3 || m.SupplyPrice != 4 || m.OrderAmount != 5 {
					t.Errorf("unexpected column map: %+v", m)
				}
			},
		},
		{
			name:   "alias headers with wrapping and case",
			header: []string{"ITEM NAME", "item code", "Quantity", "Supply Price (VAT incl)\r\n", "Total"},
			check: func(t *testing.T, m core.ColumnMap) {
				if m.ProductName != 0 {
					t.Errorf("ProductName = %d, want 0", m.ProductName)
				}
				if m.Barcode != 1 {
					t.Errorf("Barcode = %d, want 1", m.Barcode)
				}
				if m.OrderQty != 2 {
					t.Errorf("OrderQty = %d, want 2", m.OrderQty)
				}
				if m.SupplyPrice != 3 {
					t.Errorf("SupplyPrice = %d, want 3", m.SupplyPrice)
				}
				if m.OrderAmount != 4 {
					t.Errorf("OrderAmount = %d, want 4", m.OrderAmount)
				}
			},
		},
		{
			name: "higher priority alias wins over lower one",
			// "supply price" must beat "unit price" even though
			// "unit price" appears first in the row.
			header: []string{"Unit Price", "Supply Price"},
			check: func(t *testing.T, m core.ColumnMap) {
				if m.SupplyPrice != 1 {
					t.Errorf("SupplyPrice = %d, want 1", m.SupplyPrice)
				}
			},
		},
		{
			name:   "absent columns are -1",
			header: []string{"Brand", "Order Qty"},
			check: func(t *testing.T, m core.ColumnMap) {
				if m.Barcode != -1 || m.SupplyPrice != -1 || m.InboundPlace != -1 {
					t.Errorf("expected -1 for absent columns, got %+v", m)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, core.DetectOrderColumns(tt.header))
		})
	}
}

func TestParseOrderRows_SkipAndMatch(t *testing.T) {
	header := []string{"Brand", "Product Name", "Barcode", "Order Qty", "Supply Price", "Order Amount"}
	rows := [][]string{
		{"Aquelle", "Hydra Cream 50ml", "8800001", "10", "5,000", "50,000"},
		{"Aquelle", "Mist Toner 120ml", "8800002", "0", "4000", ""},      // zero qty: skipped
		{"", "", "", "", "", ""},                                         // blank row: skipped
		{"Terraform", "Clay Mask 80g", "8800003", "5", "7,000", ""},      // amount from price*qty
		{"Nimbus", "Cloud Serum 30ml", "9900001", "3", "8000", "24000"},  // not in master
	}

	result := core.ParseOrderRows(header, rows, testProductIndex())

	if result.DataRows != 5 {
		t.Errorf("DataRows = %d, want 5", result.DataRows)
	}
	if result.ParsedItems != 3 {
		t.Fatalf("ParsedItems = %d, want 3", result.ParsedItems)
	}
	if result.MatchedCount != 2 || result.UnmatchedCount != 1 {
		t.Errorf("matched/unmatched = %d/%d, want 2/1", result.MatchedCount, result.UnmatchedCount)
	}

	// Thousands separators stripped.
	first := result.Items[0]
	if !first.SupplyPrice.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("SupplyPrice = %s, want 5000", first.SupplyPrice)
	}
	if !first.OrderAmount.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("OrderAmount = %s, want 50000", first.OrderAmount)
	}
	if first.MatchStatus != core.Matched || first.MasterName != "Hydra Cream 50ml" {
		t.Errorf("first row should match the master, got %+v", first)
	}

	// Missing amount falls back to supply price * qty.
	mask := result.Items[1]
	if !mask.OrderAmount.Equal(decimal.NewFromInt(35000)) {
		t.Errorf("fallback OrderAmount = %s, want 35000", mask.OrderAmount)
	}

	serum := result.Items[2]
	if serum.MatchStatus != core.Unmatched {
		t.Errorf("unknown barcode should be UNMATCHED, got %s", serum.MatchStatus)
	}

	// 50000 + 35000 + 24000
	if !result.TotalAmount.Equal(decimal.NewFromInt(109000)) {
		t.Errorf("TotalAmount = %s, want 109000", result.TotalAmount)
	}
}

func TestParseOrderRows_ShortRows(t *testing.T) {
	header := []string{"Brand", "Product Name", "Barcode", "Order Qty", "Supply Price"}
	rows := [][]string{
		{"Aquelle", "Hydra Cream 50ml", "8800001", "2"}, // price column missing entirely
	}

	result := core.ParseOrderRows(header, rows, testProductIndex())
	if result.ParsedItems != 1 {
		t.Fatalf("ParsedItems = %d, want 1", result.ParsedItems)
	}
	if !result.Items[0].SupplyPrice.IsZero() {
		t.Errorf("SupplyPrice = %s, want 0 for truncated row", result.Items[0].SupplyPrice)
	}
}

func TestProductIndex_BrandCodeFallback(t *testing.T) {
	idx := testProductIndex()

	tests := []struct {
		brand string
		want  string
	}{
		{"Aquelle", "AQL"}, // mapped via partner master
		{"Nimbus", "NI"},   // fallback: first two letters
		{"I", "I"},         // shorter than two letters
		{"", "UNK"},        // nothing to derive from
	}
	for _, tt := range tests {
		if got := idx.BrandCode(tt.brand); got != tt.want {
			t.Errorf("BrandCode(%q) = %q, want %q", tt.brand, got, tt.want)
		}
	}
}

func TestProductIndex_SupplierForBrand(t *testing.T) {
	idx := testProductIndex()

	if got := idx.SupplierForBrand("Aquelle"); got != "Aquelle Labs" {
		t.Errorf("SupplierForBrand(Aquelle) = %q, want %q", got, "Aquelle Labs")
	}
	// BOTH-role partners supply their own brand too.
	if got := idx.SupplierForBrand("Terraform"); got != "Terraform Co" {
		t.Errorf("SupplierForBrand(Terraform) = %q, want %q", got, "Terraform Co")
	}
	if got := idx.SupplierForBrand("Nimbus"); got != "" {
		t.Errorf("SupplierForBrand(Nimbus) = %q, want empty", got)
	}
}
