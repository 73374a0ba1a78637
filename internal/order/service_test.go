package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/order"
	"github.com/orderhub/backend-oms/internal/pricing"
	"github.com/orderhub/backend-oms/internal/repo"
)

type fakeOrders struct {
	byID map[string]repo.Order
}

func newFakeOrders() *fakeOrders { return &fakeOrders{byID: map[string]repo.Order{}} }

func (f *fakeOrders) Create(_ context.Context, o repo.Order) error {
	f.byID[o.ID] = o
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (repo.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return repo.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) ReplaceLines(_ context.Context, id string, lines []repo.OrderLine, gst, amount float64) error {
	o, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.Lines = lines
	o.TotalGST = gst
	o.TotalAmount = amount
	f.byID[id] = o
	return nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id, status string) error {
	o, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	f.byID[id] = o
	return nil
}

func (f *fakeOrders) List(_ context.Context, _ repo.ListOrdersParams) ([]repo.Order, int64, error) {
	var out []repo.Order
	for _, o := range f.byID {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

type fakeProducts struct {
	byID map[string]repo.Product
}

func (f *fakeProducts) Get(_ context.Context, id string) (repo.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return repo.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) GetMany(_ context.Context, ids []string) ([]repo.Product, error) {
	var out []repo.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSnapshot struct {
	cfg pricing.Config
	err error
}

func (f *fakeSnapshot) MarginSnapshot(context.Context, string) (pricing.Config, error) {
	return f.cfg, f.err
}

func seededService(t *testing.T) (*order.Service, *fakeOrders) {
	t.Helper()
	orders := newFakeOrders()
	products := &fakeProducts{byID: map[string]repo.Product{
		"p1": {ID: "p1", Name: "Butter 500g", Brand: "Amul", Rate: 1000, TaxPercent: 18, Stock: 10},
		"p2": {ID: "p2", Name: "Cheese 1kg", Brand: "Amul", Rate: 480, TaxPercent: 12, Stock: 3},
	}}
	snapshot := &fakeSnapshot{cfg: pricing.Config{
		DefaultMargin: "40%",
		Treatment:     pricing.TaxExclusive,
	}}
	svc, err := order.NewService(order.ServiceConfig{
		Orders:    orders,
		Products:  products,
		Customers: snapshot,
	})
	require.NoError(t, err)
	return svc, orders
}

// recompute folds the persisted lines through the pricing engine so tests can
// assert stored totals always match a from-scratch computation.
func recompute(o repo.Order) pricing.Totals {
	cfg := pricing.Config{
		DefaultMargin:  o.DefaultMargin,
		Treatment:      pricing.ParseTaxTreatment(o.GSTTreatment),
		SpecialMargins: o.SpecialMargins,
	}
	items := make([]pricing.Item, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, pricing.Item{
			ProductID:  line.ProductID,
			Rate:       line.Rate,
			TaxPercent: line.TaxPercent,
			Quantity:   line.Quantity,
		})
	}
	return pricing.ComputeTotals(items, cfg)
}

func TestCreatePricesLines(t *testing.T) {
	svc, _ := seededService(t)

	res, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Empty(t, res.Notices)
	require.Len(t, res.Order.Lines, 1)

	line := res.Order.Lines[0]
	require.Equal(t, "40%", line.Margin)
	require.InDelta(t, 600, line.SellingPrice, 1e-9)
	require.InDelta(t, 216, line.GST, 1e-9)
	require.InDelta(t, 1416, line.Total, 1e-9)
	require.InDelta(t, 216, res.Order.TotalGST, 1e-9)
	require.InDelta(t, 1416, res.Order.TotalAmount, 1e-9)
}

func TestCreateDeduplicatesItems(t *testing.T) {
	svc, _ := seededService(t)

	res, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items: []order.ItemInput{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p1", Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Order.Lines, 1)
	require.Equal(t, 2, res.Order.Lines[0].Quantity)
	require.Len(t, res.Notices, 1)
}

func TestCreateUnknownProductNoticed(t *testing.T) {
	svc, _ := seededService(t)
	res, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "ghost", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Empty(t, res.Order.Lines)
	require.Len(t, res.Notices, 1)
}

func TestReplaceRecomputesTotals(t *testing.T) {
	svc, orders := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	res, err := svc.ReplaceProducts(context.Background(), created.Order.ID, []order.ItemInput{
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Order.Lines, 1)
	require.Equal(t, "p2", res.Order.Lines[0].ProductID)

	stored := orders.byID[created.Order.ID]
	totals := recompute(stored)
	require.InDelta(t, totals.GST, stored.TotalGST, 1e-9)
	require.InDelta(t, totals.Amount, stored.TotalAmount, 1e-9)
}

func TestSetQuantityClampsToStock(t *testing.T) {
	svc, orders := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p2", Quantity: 1}},
	})
	require.NoError(t, err)

	res, err := svc.SetQuantity(context.Background(), created.Order.ID, "p2", 99)
	require.NoError(t, err)
	require.Equal(t, 3, res.Order.Lines[0].Quantity)

	res, err = svc.SetQuantity(context.Background(), created.Order.ID, "p2", 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Order.Lines[0].Quantity)

	stored := orders.byID[created.Order.ID]
	totals := recompute(stored)
	require.InDelta(t, totals.Amount, stored.TotalAmount, 1e-9)
}

func TestSetQuantityAbsentProductIsNoop(t *testing.T) {
	svc, _ := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	res, err := svc.SetQuantity(context.Background(), created.Order.ID, "ghost", 5)
	require.NoError(t, err)
	require.Len(t, res.Notices, 1)
	require.Equal(t, created.Order.TotalAmount, res.Order.TotalAmount)
}

func TestClearZeroesTotals(t *testing.T) {
	svc, _ := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	res, err := svc.Clear(context.Background(), created.Order.ID)
	require.NoError(t, err)
	require.Empty(t, res.Order.Lines)
	require.Zero(t, res.Order.TotalGST)
	require.Zero(t, res.Order.TotalAmount)
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{CustomerID: "c1"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.Order.ID, "delivered")
	require.Error(t, err)

	o, err := svc.UpdateStatus(context.Background(), created.Order.ID, "invoiced")
	require.NoError(t, err)
	require.Equal(t, repo.OrderStatusInvoiced, o.Status)

	o, err = svc.UpdateStatus(context.Background(), created.Order.ID, "accepted")
	require.NoError(t, err)
	require.Equal(t, repo.OrderStatusAccepted, o.Status)
}

func TestCreateReturnClampsQuantities(t *testing.T) {
	svc, _ := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	res, err := svc.CreateReturn(context.Background(), created.Order.ID, []order.ItemInput{
		{ProductID: "p1", Quantity: 10},
		{ProductID: "ghost", Quantity: 1},
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, repo.OrderKindReturn, res.Order.Kind)
	require.NotNil(t, res.Order.RefOrderID)
	require.Equal(t, created.Order.ID, *res.Order.RefOrderID)
	require.Len(t, res.Order.Lines, 1)
	require.Equal(t, 2, res.Order.Lines[0].Quantity)
	require.Len(t, res.Notices, 2)

	// credit priced with the original snapshot
	require.InDelta(t, created.Order.TotalAmount, res.Order.TotalAmount, 1e-9)
}

func TestCreateReturnWithNoValidItems(t *testing.T) {
	svc, _ := seededService(t)
	created, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.CreateReturn(context.Background(), created.Order.ID, []order.ItemInput{
		{ProductID: "ghost", Quantity: 1},
	}, "")
	require.Error(t, err)
}

func TestSpecialMarginAppliedOnCreate(t *testing.T) {
	orders := newFakeOrders()
	products := &fakeProducts{byID: map[string]repo.Product{
		"p1": {ID: "p1", Name: "Butter 500g", Rate: 1000, TaxPercent: 18, Stock: 10},
	}}
	snapshot := &fakeSnapshot{cfg: pricing.Config{
		DefaultMargin:  "40%",
		Treatment:      pricing.TaxExclusive,
		SpecialMargins: map[string]string{"p1": "50%"},
	}}
	svc, err := order.NewService(order.ServiceConfig{Orders: orders, Products: products, Customers: snapshot})
	require.NoError(t, err)

	res, err := svc.Create(context.Background(), order.CreateInput{
		CustomerID: "c1",
		Items:      []order.ItemInput{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "50%", res.Order.Lines[0].Margin)
	require.InDelta(t, 500, res.Order.Lines[0].SellingPrice, 1e-9)
}
