package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orderhub/backend-oms/internal/cart"
	"github.com/orderhub/backend-oms/internal/common"
	"github.com/orderhub/backend-oms/internal/events"
	"github.com/orderhub/backend-oms/internal/obs"
	"github.com/orderhub/backend-oms/internal/pricing"
	"github.com/orderhub/backend-oms/internal/repo"
)

type orderStore interface {
	Create(ctx context.Context, o repo.Order) error
	Get(ctx context.Context, id string) (repo.Order, error)
	ReplaceLines(ctx context.Context, id string, lines []repo.OrderLine, totalGST, totalAmount float64) error
	UpdateStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, p repo.ListOrdersParams) ([]repo.Order, int64, error)
}

type productProvider interface {
	GetMany(ctx context.Context, ids []string) ([]repo.Product, error)
	Get(ctx context.Context, id string) (repo.Product, error)
}

type snapshotter interface {
	MarginSnapshot(ctx context.Context, customerID string) (pricing.Config, error)
}

// Service owns the order lifecycle. Every mutation follows the same cycle:
// load the persisted lines into a cart seeded with the order's pricing
// snapshot, apply the change, and store the recomputed full fold. Persisted
// totals therefore always equal a recompute over the persisted line set.
type Service struct {
	orders    orderStore
	products  productProvider
	customers snapshotter
	bus       *events.Bus
	log       zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Orders    orderStore
	Products  productProvider
	Customers snapshotter
	Bus       *events.Bus
	Logger    zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Orders == nil {
		return nil, errors.New("order: order store is required")
	}
	if cfg.Products == nil {
		return nil, errors.New("order: product provider is required")
	}
	if cfg.Customers == nil {
		return nil, errors.New("order: customer snapshotter is required")
	}
	return &Service{
		orders:    cfg.Orders,
		products:  cfg.Products,
		customers: cfg.Customers,
		bus:       cfg.Bus,
		log:       cfg.Logger,
	}, nil
}

// ItemInput is one requested product/quantity pair.
type ItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// CreateInput carries a draft order request.
type CreateInput struct {
	CustomerID string      `json:"customer_id" validate:"required"`
	Items      []ItemInput `json:"items"`
	CreatedBy  string      `json:"-"`
}

// Result pairs a persisted order with the notices produced while applying the
// requested mutations (duplicate adds, quantity clamps).
type Result struct {
	Order   repo.Order `json:"order"`
	Notices []string   `json:"notices,omitempty"`
}

// Create prices the requested items against a fresh margin snapshot for the
// customer and persists a draft order.
func (s *Service) Create(ctx context.Context, in CreateInput) (Result, error) {
	customerID := strings.TrimSpace(in.CustomerID)
	if customerID == "" {
		return Result{}, common.BadRequest("customer_id", "customer_id is required", nil)
	}
	cfg, err := s.customers.MarginSnapshot(ctx, customerID)
	if err != nil {
		return Result{}, err
	}

	c := cart.New(cfg)
	notices, err := s.fillCart(ctx, c, in.Items)
	if err != nil {
		return Result{}, err
	}

	lines, totals := priceCart(c, cfg)
	o := repo.Order{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		Kind:           repo.OrderKindSale,
		Status:         repo.OrderStatusDraft,
		GSTTreatment:   string(cfg.Treatment),
		DefaultMargin:  cfg.DefaultMargin,
		SpecialMargins: cfg.SpecialMargins,
		Lines:          lines,
		TotalGST:       totals.GST,
		TotalAmount:    totals.Amount,
		CreatedBy:      in.CreatedBy,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if obs.OrdersCreatedTotal != nil {
			obs.OrdersCreatedTotal.WithLabelValues("error").Inc()
		}
		return Result{}, fmt.Errorf("create order: %w", err)
	}
	if obs.OrdersCreatedTotal != nil {
		obs.OrdersCreatedTotal.WithLabelValues("ok").Inc()
	}
	s.emit(ctx, events.TopicOrderCreated, o)

	stored, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		// insert succeeded; fall back to the in-memory copy
		stored = o
	}
	return Result{Order: stored, Notices: notices}, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (repo.Order, error) {
	o, err := s.orders.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.Order{}, common.NotFound("order not found", err)
		}
		return repo.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns orders matching the filters plus the total match count.
func (s *Service) List(ctx context.Context, p repo.ListOrdersParams) ([]repo.Order, int64, error) {
	orders, total, err := s.orders.List(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// ReplaceProducts swaps the complete line set of an order. Totals are always
// recomputed server-side from the full replacement list; any totals the
// client may have computed are ignored.
func (s *Service) ReplaceProducts(ctx context.Context, orderID string, items []ItemInput) (Result, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	cfg := snapshotConfig(o)

	c := cart.New(cfg)
	notices, err := s.fillCart(ctx, c, items)
	if err != nil {
		return Result{}, err
	}

	lines, totals := priceCart(c, cfg)
	if err := s.orders.ReplaceLines(ctx, o.ID, lines, totals.GST, totals.Amount); err != nil {
		return Result{}, fmt.Errorf("replace order lines: %w", err)
	}
	o.Lines = lines
	o.TotalGST = totals.GST
	o.TotalAmount = totals.Amount
	s.emit(ctx, events.TopicOrderUpdated, o)
	return Result{Order: o, Notices: notices}, nil
}

// AddLine appends one product to the order. Adding a product already on the
// order leaves the order untouched and reports a notice.
func (s *Service) AddLine(ctx context.Context, orderID, productID string, qty int) (Result, error) {
	return s.mutateLines(ctx, orderID, func(c *cart.Cart, cfg pricing.Config) ([]string, error) {
		prod, err := s.lookupProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := c.Add(prod, qty); err != nil {
			if errors.Is(err, cart.ErrDuplicate) {
				return []string{fmt.Sprintf("product %s is already in the order", productID)}, nil
			}
			return nil, err
		}
		return nil, nil
	})
}

// SetQuantity updates one line's quantity, clamped to [1, stock]. Unknown
// product ids are a no-op.
func (s *Service) SetQuantity(ctx context.Context, orderID, productID string, qty int) (Result, error) {
	return s.mutateLines(ctx, orderID, func(c *cart.Cart, cfg pricing.Config) ([]string, error) {
		if !c.SetQuantity(productID, qty) {
			return []string{fmt.Sprintf("product %s is not in the order", productID)}, nil
		}
		return nil, nil
	})
}

// RemoveLine drops one product from the order. Absent products are a no-op.
func (s *Service) RemoveLine(ctx context.Context, orderID, productID string) (Result, error) {
	return s.mutateLines(ctx, orderID, func(c *cart.Cart, cfg pricing.Config) ([]string, error) {
		c.Remove(productID)
		return nil, nil
	})
}

// Clear empties the order. Totals collapse to zero.
func (s *Service) Clear(ctx context.Context, orderID string) (Result, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if err := s.orders.ReplaceLines(ctx, o.ID, []repo.OrderLine{}, 0, 0); err != nil {
		return Result{}, fmt.Errorf("clear order: %w", err)
	}
	o.Lines = []repo.OrderLine{}
	o.TotalGST = 0
	o.TotalAmount = 0
	s.emit(ctx, events.TopicOrderCleared, o)
	return Result{Order: o}, nil
}

var validTransitions = map[string][]string{
	repo.OrderStatusDraft:    {repo.OrderStatusInvoiced, repo.OrderStatusDeclined},
	repo.OrderStatusInvoiced: {repo.OrderStatusAccepted, repo.OrderStatusDeclined},
	repo.OrderStatusAccepted: {repo.OrderStatusDelivered},
}

// UpdateStatus moves an order through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (repo.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return repo.Order{}, err
	}
	if !transitionAllowed(o.Status, status) {
		return repo.Order{}, common.Conflict(
			fmt.Sprintf("cannot move order from %s to %s", o.Status, status), nil)
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, status); err != nil {
		return repo.Order{}, fmt.Errorf("update order status: %w", err)
	}
	o.Status = status
	if obs.OrderStatusTransitions != nil {
		obs.OrderStatusTransitions.WithLabelValues(status).Inc()
	}
	s.emit(ctx, events.TopicOrderStatusChanged, o)
	return o, nil
}

// CreateReturn creates a return order against an existing order. Returned
// quantities are clamped to the quantities originally ordered, and lines are
// repriced with the original order's snapshot so credit matches the sale.
func (s *Service) CreateReturn(ctx context.Context, orderID string, items []ItemInput, createdBy string) (Result, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	cfg := snapshotConfig(o)

	ordered := make(map[string]repo.OrderLine, len(o.Lines))
	for _, line := range o.Lines {
		ordered[line.ProductID] = line
	}

	c := cart.New(cfg)
	var notices []string
	for _, item := range items {
		line, ok := ordered[item.ProductID]
		if !ok {
			notices = append(notices, fmt.Sprintf("product %s was not on the order", item.ProductID))
			continue
		}
		qty := item.Quantity
		if qty > line.Quantity {
			notices = append(notices, fmt.Sprintf("return quantity for %s clamped to %d", item.ProductID, line.Quantity))
			qty = line.Quantity
		}
		// stock bound is the ordered quantity for returns
		err := c.Add(cart.Product{
			ID:         line.ProductID,
			Name:       line.Name,
			Brand:      line.Brand,
			Rate:       line.Rate,
			TaxPercent: line.TaxPercent,
			Stock:      line.Quantity,
		}, qty)
		if errors.Is(err, cart.ErrDuplicate) {
			notices = append(notices, fmt.Sprintf("product %s listed twice; first entry kept", item.ProductID))
		}
	}
	if c.Len() == 0 {
		return Result{}, common.BadRequest("items", "no returnable items in request", nil)
	}

	lines, totals := priceCart(c, cfg)
	ref := o.ID
	ret := repo.Order{
		ID:             uuid.NewString(),
		CustomerID:     o.CustomerID,
		Kind:           repo.OrderKindReturn,
		RefOrderID:     &ref,
		Status:         repo.OrderStatusDraft,
		GSTTreatment:   o.GSTTreatment,
		DefaultMargin:  o.DefaultMargin,
		SpecialMargins: o.SpecialMargins,
		Lines:          lines,
		TotalGST:       totals.GST,
		TotalAmount:    totals.Amount,
		CreatedBy:      createdBy,
	}
	if err := s.orders.Create(ctx, ret); err != nil {
		return Result{}, fmt.Errorf("create return order: %w", err)
	}
	s.emit(ctx, events.TopicReturnCreated, ret)
	return Result{Order: ret, Notices: notices}, nil
}

func (s *Service) mutateLines(ctx context.Context, orderID string, mutate func(*cart.Cart, pricing.Config) ([]string, error)) (Result, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	cfg := snapshotConfig(o)
	c := cart.Load(cfg, cartLines(ctx, s.products, o.Lines))

	notices, err := mutate(c, cfg)
	if err != nil {
		return Result{}, err
	}

	lines, totals := priceCart(c, cfg)
	if err := s.orders.ReplaceLines(ctx, o.ID, lines, totals.GST, totals.Amount); err != nil {
		return Result{}, fmt.Errorf("store order lines: %w", err)
	}
	o.Lines = lines
	o.TotalGST = totals.GST
	o.TotalAmount = totals.Amount
	s.emit(ctx, events.TopicOrderUpdated, o)
	return Result{Order: o, Notices: notices}, nil
}

// fillCart resolves the requested products and adds them to the cart,
// collecting notices for duplicates and unknown ids.
func (s *Service) fillCart(ctx context.Context, c *cart.Cart, items []ItemInput) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := strings.TrimSpace(item.ProductID); id != "" {
			ids = append(ids, id)
		}
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]repo.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var notices []string
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			continue
		}
		prod, ok := byID[id]
		if !ok {
			notices = append(notices, fmt.Sprintf("product %s does not exist", id))
			continue
		}
		err := c.Add(cart.Product{
			ID:         prod.ID,
			Name:       prod.Name,
			Brand:      prod.Brand,
			Rate:       prod.Rate,
			TaxPercent: prod.TaxPercent,
			Stock:      prod.Stock,
		}, item.Quantity)
		if errors.Is(err, cart.ErrDuplicate) {
			notices = append(notices, fmt.Sprintf("product %s is already in the order", id))
		}
	}
	return notices, nil
}

func (s *Service) lookupProduct(ctx context.Context, productID string) (cart.Product, error) {
	prod, err := s.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return cart.Product{}, common.NotFound("product not found", err)
		}
		return cart.Product{}, fmt.Errorf("load product: %w", err)
	}
	return cart.Product{
		ID:         prod.ID,
		Name:       prod.Name,
		Brand:      prod.Brand,
		Rate:       prod.Rate,
		TaxPercent: prod.TaxPercent,
		Stock:      prod.Stock,
	}, nil
}

// emit records a domain event. Failures are logged, never surfaced: the local
// write already committed and is not rolled back.
func (s *Service) emit(ctx context.Context, topic string, o repo.Order) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.Emit(ctx, topic, o); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Str("order_id", o.ID).Msg("event emit incomplete")
	}
}

// snapshotConfig rebuilds the pricing config frozen on the order at creation.
func snapshotConfig(o repo.Order) pricing.Config {
	return pricing.Config{
		DefaultMargin:  o.DefaultMargin,
		Treatment:      pricing.ParseTaxTreatment(o.GSTTreatment),
		SpecialMargins: o.SpecialMargins,
	}
}

// cartLines converts persisted lines back into cart lines, refreshing stock
// bounds from the catalogue where possible.
func cartLines(ctx context.Context, products productProvider, lines []repo.OrderLine) []cart.Line {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	stock := map[string]int{}
	if rows, err := products.GetMany(ctx, ids); err == nil {
		for _, row := range rows {
			stock[row.ID] = row.Stock
		}
	}
	out := make([]cart.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, cart.Line{
			Product: cart.Product{
				ID:         line.ProductID,
				Name:       line.Name,
				Brand:      line.Brand,
				Rate:       line.Rate,
				TaxPercent: line.TaxPercent,
				Stock:      stock[line.ProductID],
			},
			Quantity: line.Quantity,
		})
	}
	return out
}

// priceCart prices every cart line with the snapshot config and folds the
// totals over the complete set.
func priceCart(c *cart.Cart, cfg pricing.Config) ([]repo.OrderLine, pricing.Totals) {
	cartLines := c.Lines()
	lines := make([]repo.OrderLine, 0, len(cartLines))
	items := make([]pricing.Item, 0, len(cartLines))
	for _, line := range cartLines {
		margin := cfg.MarginFor(line.ID)
		lp := pricing.PriceLine(line.Rate, margin, line.TaxPercent, line.Quantity, cfg.Treatment)
		lines = append(lines, repo.OrderLine{
			ProductID:    line.ID,
			Name:         line.Name,
			Brand:        line.Brand,
			Rate:         line.Rate,
			TaxPercent:   line.TaxPercent,
			Margin:       pricing.FormatMargin(margin),
			SellingPrice: lp.SellingPrice,
			Quantity:     line.Quantity,
			GST:          pricing.Round2(lp.GST),
			Total:        pricing.Round2(lp.Total),
		})
		items = append(items, pricing.Item{
			ProductID:  line.ID,
			Rate:       line.Rate,
			TaxPercent: line.TaxPercent,
			Quantity:   line.Quantity,
		})
	}
	return lines, pricing.ComputeTotals(items, cfg)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
