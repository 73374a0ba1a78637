package repo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Product is a sellable catalogue item.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand"`
	SKU        string    `json:"sku"`
	Rate       float64   `json:"rate"`
	Stock      int       `json:"stock"`
	TaxPercent float64   `json:"tax_percent"`
	ImageURL   string    `json:"image_url,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProductRepo persists catalogue products.
type ProductRepo struct {
	DB DB
}

// ListProductsParams filters and paginates catalogue listings.
type ListProductsParams struct {
	Brand  string
	Search string
	Limit  int
	Offset int
}

const productColumns = `id, name, brand, sku, rate, stock, tax_percent, coalesce(image_url, ''), active, created_at, updated_at`

// List returns active products matching the filters plus the total match count.
func (r ProductRepo) List(ctx context.Context, p ListProductsParams) ([]Product, int64, error) {
	where := []string{"active"}
	args := []any{}
	if brand := strings.TrimSpace(p.Brand); brand != "" {
		args = append(args, brand)
		where = append(where, fmt.Sprintf("brand = $%d", len(args)))
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countSQL := "SELECT count(*) FROM products WHERE " + clause
	if err := r.DB.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	args = append(args, p.Limit, p.Offset)
	listSQL := fmt.Sprintf(
		"SELECT %s FROM products WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d",
		productColumns, clause, len(args)-1, len(args),
	)
	rows, err := r.DB.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var prod Product
		if err := rows.Scan(&prod.ID, &prod.Name, &prod.Brand, &prod.SKU, &prod.Rate, &prod.Stock,
			&prod.TaxPercent, &prod.ImageURL, &prod.Active, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
			return nil, 0, mapError(err)
		}
		products = append(products, prod)
	}
	return products, total, mapError(rows.Err())
}

// Get fetches a single product by id.
func (r ProductRepo) Get(ctx context.Context, id string) (Product, error) {
	var prod Product
	err := r.DB.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id,
	).Scan(&prod.ID, &prod.Name, &prod.Brand, &prod.SKU, &prod.Rate, &prod.Stock,
		&prod.TaxPercent, &prod.ImageURL, &prod.Active, &prod.CreatedAt, &prod.UpdatedAt)
	return prod, mapError(err)
}

// GetMany fetches products by id, preserving no particular order.
func (r ProductRepo) GetMany(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var prod Product
		if err := rows.Scan(&prod.ID, &prod.Name, &prod.Brand, &prod.SKU, &prod.Rate, &prod.Stock,
			&prod.TaxPercent, &prod.ImageURL, &prod.Active, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		products = append(products, prod)
	}
	return products, mapError(rows.Err())
}

// Brands returns the distinct brand names carried by active products.
func (r ProductRepo) Brands(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx,
		"SELECT DISTINCT brand FROM products WHERE active AND brand <> '' ORDER BY brand")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var brand string
		if err := rows.Scan(&brand); err != nil {
			return nil, mapError(err)
		}
		brands = append(brands, brand)
	}
	return brands, mapError(rows.Err())
}
