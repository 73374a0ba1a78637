package repo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Order kinds.
const (
	OrderKindSale   = "sale"
	OrderKindReturn = "return"
)

// Order statuses.
const (
	OrderStatusDraft     = "draft"
	OrderStatusInvoiced  = "invoiced"
	OrderStatusAccepted  = "accepted"
	OrderStatusDeclined  = "declined"
	OrderStatusDelivered = "delivered"
)

// OrderLine is one priced product row on an order, stored as JSONB.
type OrderLine struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Brand        string  `json:"brand,omitempty"`
	Rate         float64 `json:"rate"`
	TaxPercent   float64 `json:"tax_percent"`
	Margin       string  `json:"margin"`
	SellingPrice float64 `json:"selling_price"`
	Quantity     int     `json:"quantity"`
	GST          float64 `json:"gst"`
	Total        float64 `json:"total"`
}

// Order is a sale or return order. Pricing context (treatment, default margin,
// special margins) is snapshotted at creation so later customer edits do not
// reprice an existing order.
type Order struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id"`
	Kind           string            `json:"kind"`
	RefOrderID     *string           `json:"ref_order_id,omitempty"`
	Status         string            `json:"status"`
	GSTTreatment   string            `json:"gst_treatment"`
	DefaultMargin  string            `json:"default_margin"`
	SpecialMargins map[string]string `json:"special_margins,omitempty"`
	Lines          []OrderLine       `json:"lines"`
	TotalGST       float64           `json:"total_gst"`
	TotalAmount    float64           `json:"total_amount"`
	CreatedBy      string            `json:"created_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// OrderRepo persists orders.
type OrderRepo struct {
	DB DB
}

const orderColumns = `id, customer_id, kind, ref_order_id, status, gst_treatment, default_margin,
	special_margins, lines, total_gst, total_amount, coalesce(created_by, ''), created_at, updated_at`

// Create inserts a new order.
func (r OrderRepo) Create(ctx context.Context, o Order) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders (id, customer_id, kind, ref_order_id, status, gst_treatment,
			default_margin, special_margins, lines, total_gst, total_amount, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CustomerID, o.Kind, o.RefOrderID, o.Status, o.GSTTreatment,
		o.DefaultMargin, o.SpecialMargins, o.Lines, o.TotalGST, o.TotalAmount, nullIfEmpty(o.CreatedBy))
	return mapError(err)
}

// Get fetches an order by id.
func (r OrderRepo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id,
	).Scan(&o.ID, &o.CustomerID, &o.Kind, &o.RefOrderID, &o.Status, &o.GSTTreatment,
		&o.DefaultMargin, &o.SpecialMargins, &o.Lines, &o.TotalGST, &o.TotalAmount,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, mapError(err)
}

// ReplaceLines stores a new complete line set with its recomputed totals.
func (r OrderRepo) ReplaceLines(ctx context.Context, id string, lines []OrderLine, totalGST, totalAmount float64) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders SET lines = $2, total_gst = $3, total_amount = $4, updated_at = now()
		WHERE id = $1`,
		id, lines, totalGST, totalAmount)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves an order to a new lifecycle status.
func (r OrderRepo) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.DB.Exec(ctx,
		"UPDATE orders SET status = $2, updated_at = now() WHERE id = $1", id, status)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrdersParams filters and paginates order listings.
type ListOrdersParams struct {
	CustomerID string
	Status     string
	Kind       string
	Limit      int
	Offset     int
}

// List returns orders matching the filters, newest first, plus the match count.
func (r OrderRepo) List(ctx context.Context, p ListOrdersParams) ([]Order, int64, error) {
	where := []string{"TRUE"}
	args := []any{}
	if id := strings.TrimSpace(p.CustomerID); id != "" {
		args = append(args, id)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(p.Status); status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if kind := strings.TrimSpace(p.Kind); kind != "" {
		args = append(args, kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.DB.QueryRow(ctx, "SELECT count(*) FROM orders WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	args = append(args, p.Limit, p.Offset)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM orders WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		orderColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Kind, &o.RefOrderID, &o.Status, &o.GSTTreatment,
			&o.DefaultMargin, &o.SpecialMargins, &o.Lines, &o.TotalGST, &o.TotalAmount,
			&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, mapError(err)
		}
		orders = append(orders, o)
	}
	return orders, total, mapError(rows.Err())
}

// StatusBucket aggregates orders sharing a status.
type StatusBucket struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
	GST    float64 `json:"gst"`
}

// SummarizeByStatus aggregates sale orders created since the cutoff.
func (r OrderRepo) SummarizeByStatus(ctx context.Context, since time.Time) ([]StatusBucket, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT status, count(*), coalesce(sum(total_amount), 0), coalesce(sum(total_gst), 0)
		FROM orders
		WHERE kind = $1 AND created_at >= $2
		GROUP BY status
		ORDER BY status`, OrderKindSale, since)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var buckets []StatusBucket
	for rows.Next() {
		var b StatusBucket
		if err := rows.Scan(&b.Status, &b.Count, &b.Amount, &b.GST); err != nil {
			return nil, mapError(err)
		}
		buckets = append(buckets, b)
	}
	return buckets, mapError(rows.Err())
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
