package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/orderhub/backend-oms/internal/common"
	"github.com/orderhub/backend-oms/internal/pricing"
	"github.com/orderhub/backend-oms/internal/repo"
)

type customerProvider interface {
	Get(ctx context.Context, id string) (repo.Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]repo.Customer, int64, error)
	SpecialMargins(ctx context.Context, customerID string) ([]repo.SpecialMargin, error)
	UpsertSpecialMargin(ctx context.Context, customerID, productID, margin string) error
	DeleteSpecialMargin(ctx context.Context, customerID, productID string) error
}

// Service orchestrates customer lookups and special margin management.
type Service struct {
	customers customerProvider
}

// NewService constructs a Service instance.
func NewService(customers customerProvider) (*Service, error) {
	if customers == nil {
		return nil, errors.New("customer: customer provider is required")
	}
	return &Service{customers: customers}, nil
}

// Customer is the wire representation of a buyer.
type Customer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactName   string `json:"contact_name,omitempty"`
	GSTTreatment  string `json:"gst_treatment"`
	DefaultMargin string `json:"default_margin"`
}

// SpecialMarginEntry is one per-product margin override as served to clients.
// Margin is always emitted with the trailing percent sign.
type SpecialMarginEntry struct {
	ProductID string `json:"product_id"`
	Margin    string `json:"margin"`
	Name      string `json:"name,omitempty"`
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	row, err := s.customers.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Customer{}, common.NotFound("customer not found", err)
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return toWire(row), nil
}

// List returns customers matching the optional search term.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, int64, error) {
	rows, total, err := s.customers.List(ctx, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	customers := make([]Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, toWire(row))
	}
	return customers, total, nil
}

// SpecialMargins returns the customer's overrides, margins re-emitted in wire form.
func (s *Service) SpecialMargins(ctx context.Context, customerID string) ([]SpecialMarginEntry, error) {
	if _, err := s.Get(ctx, customerID); err != nil {
		return nil, err
	}
	rows, err := s.customers.SpecialMargins(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list special margins: %w", err)
	}
	entries := make([]SpecialMarginEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, SpecialMarginEntry{
			ProductID: row.ProductID,
			Margin:    normalizeMargin(row.Margin),
			Name:      row.ProductName,
		})
	}
	return entries, nil
}

// SetSpecialMargin creates or replaces a per-product override. The margin is
// validated and stored percent-suffixed so reads round-trip unchanged.
func (s *Service) SetSpecialMargin(ctx context.Context, customerID, productID, margin string) (SpecialMarginEntry, error) {
	if _, err := s.Get(ctx, customerID); err != nil {
		return SpecialMarginEntry{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return SpecialMarginEntry{}, common.BadRequest("product_id", "product_id is required", nil)
	}
	percent, ok := pricing.ParseMargin(margin)
	if !ok {
		return SpecialMarginEntry{}, common.BadRequest("margin", "margin must be a number, optionally percent-suffixed", nil)
	}
	stored := pricing.FormatMargin(percent)
	if err := s.customers.UpsertSpecialMargin(ctx, customerID, productID, stored); err != nil {
		return SpecialMarginEntry{}, fmt.Errorf("set special margin: %w", err)
	}
	return SpecialMarginEntry{ProductID: productID, Margin: stored}, nil
}

// DeleteSpecialMargin removes an override. Deleting a missing row succeeds.
func (s *Service) DeleteSpecialMargin(ctx context.Context, customerID, productID string) error {
	if _, err := s.Get(ctx, customerID); err != nil {
		return err
	}
	if err := s.customers.DeleteSpecialMargin(ctx, customerID, strings.TrimSpace(productID)); err != nil {
		return fmt.Errorf("delete special margin: %w", err)
	}
	return nil
}

// MarginSnapshot captures the customer's pricing context at a point in time.
// Orders hold the snapshot so later customer edits do not reprice them.
func (s *Service) MarginSnapshot(ctx context.Context, customerID string) (pricing.Config, error) {
	row, err := s.customers.Get(ctx, strings.TrimSpace(customerID))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return pricing.Config{}, common.NotFound("customer not found", err)
		}
		return pricing.Config{}, fmt.Errorf("get customer: %w", err)
	}
	specials, err := s.customers.SpecialMargins(ctx, customerID)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("list special margins: %w", err)
	}
	overrides := make(map[string]string, len(specials))
	for _, sp := range specials {
		overrides[sp.ProductID] = sp.Margin
	}
	return pricing.Config{
		DefaultMargin:  row.DefaultMargin,
		Treatment:      pricing.ParseTaxTreatment(row.GSTTreatment),
		SpecialMargins: overrides,
	}, nil
}

func toWire(row repo.Customer) Customer {
	return Customer{
		ID:            row.ID,
		Name:          row.Name,
		ContactName:   row.ContactName,
		GSTTreatment:  row.GSTTreatment,
		DefaultMargin: normalizeMargin(row.DefaultMargin),
	}
}

func normalizeMargin(stored string) string {
	if percent, ok := pricing.ParseMargin(stored); ok {
		return pricing.FormatMargin(percent)
	}
	return pricing.FormatMargin(pricing.DefaultMarginPercent)
}
