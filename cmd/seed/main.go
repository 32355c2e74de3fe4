// seed is a one-shot tool to load demo master data and the initial admin user.
// Run it once against a freshly migrated database.
//
// Usage: ADMIN_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"tradeledger/internal/db"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding partners...")
	_, err = tx.Exec(ctx, `
		INSERT INTO partners (code, name, brand, brand_code, role)
		VALUES
		  ('AQL',   'Aquelle Korea',     'Aquelle',   'AQL', 'SUPPLIER'),
		  ('TFM',   'Terraform Trading', 'Terraform', 'TFM', 'BOTH'),
		  ('RMART', 'Retail Mart',       NULL,        NULL,  'BUYER')
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      brand = EXCLUDED.brand,
		      brand_code = EXCLUDED.brand_code,
		      role = EXCLUDED.role;
	`)
	if err != nil {
		log.Fatalf("Failed to seed partners: %v", err)
	}

	log.Println("Seeding products...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (barcode, name, brand, buy_price)
		VALUES
		  ('8800000000011', 'Aquelle Shampoo 500ml',    'Aquelle',   4200),
		  ('8800000000028', 'Aquelle Body Wash 1L',     'Aquelle',   6800),
		  ('8800000000035', 'Terraform Hand Soap 250ml','Terraform', 2100)
		ON CONFLICT (barcode) DO UPDATE
		  SET name = EXCLUDED.name,
		      brand = EXCLUDED.brand,
		      buy_price = EXCLUDED.buy_price;
	`)
	if err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatalf("ADMIN_PASSWORD must be set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	log.Printf("Seeding admin user %q...", username)
	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, password_hash, display_name, role)
		VALUES ($1, $2, 'Administrator', 'ADMIN')
		ON CONFLICT (username) DO UPDATE
		  SET password_hash = EXCLUDED.password_hash,
		      is_active = TRUE;
	`, username, string(hash))
	if err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data loaded successfully.")
}
