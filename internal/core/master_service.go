package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MasterService interface {
	GetPartners(ctx context.Context, role PartnerRole) ([]Partner, error)
	GetProducts(ctx context.Context) ([]Product, error)
	// PartnerCode resolves a partner name to its short code. Unknown
	// partners return ""; callers pick their own fallback.
	PartnerCode(ctx context.Context, name string) (string, error)
	// BuildProductIndex loads active products and partner brand mappings
	// into an in-memory index for order parsing.
	BuildProductIndex(ctx context.Context) (*ProductIndex, error)
}

type masterService struct {
	pool *pgxpool.Pool
}

func NewMasterService(pool *pgxpool.Pool) MasterService {
	return &masterService{pool: pool}
}

func (s *masterService) GetPartners(ctx context.Context, role PartnerRole) ([]Partner, error) {
	query := `
		SELECT id, code, name, COALESCE(brand, ''), COALESCE(brand_code, ''), role, is_active
		FROM partners
		WHERE is_active = true AND ($1 = '' OR role = $1 OR role = 'BOTH')
		ORDER BY name
	`
	rows, err := s.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Brand, &p.BrandCode, &p.Role, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *masterService) GetProducts(ctx context.Context) ([]Product, error) {
	query := `
		SELECT id, barcode, name, COALESCE(brand, ''), buy_price, is_active
		FROM products
		WHERE is_active = true
		ORDER BY name
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.Brand, &p.BuyPrice, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *masterService) PartnerCode(ctx context.Context, name string) (string, error) {
	var code string
	err := s.pool.QueryRow(ctx,
		"SELECT code FROM partners WHERE name = $1 AND is_active = true", name,
	).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve partner code for %q: %w", name, err)
	}
	return code, nil
}

// ProductIndex is an in-memory view of the product and partner masters,
// keyed the way order files reference them.
type ProductIndex struct {
	byBarcode     map[string]Product
	brandSupplier map[string]string // brand -> supplier partner name
	brandCode     map[string]string // brand -> short brand code
}

func NewProductIndex(products []Product, partners []Partner) *ProductIndex {
	idx := &ProductIndex{
		byBarcode:     make(map[string]Product, len(products)),
		brandSupplier: make(map[string]string),
		brandCode:     make(map[string]string),
	}
	for _, p := range products {
		idx.byBarcode[strings.TrimSpace(p.Barcode)] = p
	}
	for _, p := range partners {
		if p.Brand == "" {
			continue
		}
		if p.Role == RoleSupplier || p.Role == RoleBoth {
			idx.brandSupplier[p.Brand] = p.Name
		}
		if p.BrandCode != "" {
			idx.brandCode[p.Brand] = p.BrandCode
		}
	}
	return idx
}

func (idx *ProductIndex) Lookup(barcode string) (Product, bool) {
	p, ok := idx.byBarcode[strings.TrimSpace(barcode)]
	return p, ok
}

// SupplierForBrand returns the supplier partner name mapped to a brand,
// or "" when the brand has no supplier in the partner master.
func (idx *ProductIndex) SupplierForBrand(brand string) string {
	return idx.brandSupplier[brand]
}

// BrandCode returns the short code for a brand. Unmapped brands fall back
// to the first two letters of the brand name, uppercased.
func (idx *ProductIndex) BrandCode(brand string) string {
	if code, ok := idx.brandCode[brand]; ok {
		return code
	}
	b := strings.TrimSpace(brand)
	if b == "" {
		return "UNK"
	}
	r := []rune(strings.ToUpper(b))
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

func (s *masterService) BuildProductIndex(ctx context.Context) (*ProductIndex, error) {
	products, err := s.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	partners, err := s.GetPartners(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewProductIndex(products, partners), nil
}
