package repo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Customer is a wholesale buyer. DefaultMargin and GSTTreatment are stored in
// their wire form ("40%", "inclusive"/"exclusive") and interpreted by the
// pricing package.
type Customer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactName   string    `json:"contact_name,omitempty"`
	GSTTreatment  string    `json:"gst_treatment"`
	DefaultMargin string    `json:"default_margin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SpecialMargin overrides a customer's default margin for one product.
type SpecialMargin struct {
	CustomerID  string `json:"customer_id"`
	ProductID   string `json:"product_id"`
	Margin      string `json:"margin"`
	ProductName string `json:"name"`
}

// CustomerRepo persists customers and their per-product special margins.
type CustomerRepo struct {
	DB DB
}

const customerColumns = `id, name, coalesce(contact_name, ''), gst_treatment, default_margin, created_at, updated_at`

// Get fetches a customer by id.
func (r CustomerRepo) Get(ctx context.Context, id string) (Customer, error) {
	var c Customer
	err := r.DB.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1", id,
	).Scan(&c.ID, &c.Name, &c.ContactName, &c.GSTTreatment, &c.DefaultMargin, &c.CreatedAt, &c.UpdatedAt)
	return c, mapError(err)
}

// List returns customers matching the optional name search, newest first.
func (r CustomerRepo) List(ctx context.Context, search string, limit, offset int) ([]Customer, int64, error) {
	where := "TRUE"
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%")
		where = fmt.Sprintf("name ILIKE $%d", len(args))
	}

	var total int64
	if err := r.DB.QueryRow(ctx, "SELECT count(*) FROM customers WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	args = append(args, limit, offset)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM customers WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		customerColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactName, &c.GSTTreatment, &c.DefaultMargin, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, mapError(err)
		}
		customers = append(customers, c)
	}
	return customers, total, mapError(rows.Err())
}

// SpecialMargins returns the customer's per-product overrides joined with product names.
func (r CustomerRepo) SpecialMargins(ctx context.Context, customerID string) ([]SpecialMargin, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT sm.customer_id, sm.product_id, sm.margin, coalesce(p.name, '')
		FROM special_margins sm
		LEFT JOIN products p ON p.id = sm.product_id
		WHERE sm.customer_id = $1
		ORDER BY p.name, sm.product_id`, customerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var margins []SpecialMargin
	for rows.Next() {
		var m SpecialMargin
		if err := rows.Scan(&m.CustomerID, &m.ProductID, &m.Margin, &m.ProductName); err != nil {
			return nil, mapError(err)
		}
		margins = append(margins, m)
	}
	return margins, mapError(rows.Err())
}

// UpsertSpecialMargin creates or replaces a customer/product margin override.
func (r CustomerRepo) UpsertSpecialMargin(ctx context.Context, customerID, productID, margin string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO special_margins (customer_id, product_id, margin)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id) DO UPDATE SET margin = EXCLUDED.margin`,
		customerID, productID, margin)
	return mapError(err)
}

// DeleteSpecialMargin removes an override. Missing rows are not an error.
func (r CustomerRepo) DeleteSpecialMargin(ctx context.Context, customerID, productID string) error {
	_, err := r.DB.Exec(ctx,
		"DELETE FROM special_margins WHERE customer_id = $1 AND product_id = $2",
		customerID, productID)
	return mapError(err)
}
