package customer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/customer"
	"github.com/orderhub/backend-oms/internal/pricing"
	"github.com/orderhub/backend-oms/internal/repo"
)

type fakeCustomers struct {
	customers map[string]repo.Customer
	margins   map[string]map[string]string
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{
		customers: map[string]repo.Customer{
			"c1": {
				ID: "c1", Name: "Sharma Distributors", GSTTreatment: "inclusive",
				DefaultMargin: "35%", CreatedAt: time.Now(), UpdatedAt: time.Now(),
			},
		},
		margins: map[string]map[string]string{},
	}
}

func (f *fakeCustomers) Get(_ context.Context, id string) (repo.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return repo.Customer{}, repo.ErrNotFound
	}
	return c, nil
}

func (f *fakeCustomers) List(_ context.Context, search string, limit, offset int) ([]repo.Customer, int64, error) {
	var out []repo.Customer
	for _, c := range f.customers {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCustomers) SpecialMargins(_ context.Context, customerID string) ([]repo.SpecialMargin, error) {
	var out []repo.SpecialMargin
	for productID, margin := range f.margins[customerID] {
		out = append(out, repo.SpecialMargin{
			CustomerID: customerID, ProductID: productID, Margin: margin, ProductName: "Product " + productID,
		})
	}
	return out, nil
}

func (f *fakeCustomers) UpsertSpecialMargin(_ context.Context, customerID, productID, margin string) error {
	if f.margins[customerID] == nil {
		f.margins[customerID] = map[string]string{}
	}
	f.margins[customerID][productID] = margin
	return nil
}

func (f *fakeCustomers) DeleteSpecialMargin(_ context.Context, customerID, productID string) error {
	delete(f.margins[customerID], productID)
	return nil
}

func newHandler(t *testing.T, fake *fakeCustomers) *customer.Handler {
	t.Helper()
	svc, err := customer.NewService(fake)
	require.NoError(t, err)
	return customer.NewHandler(svc, nil)
}

func withParam(r *http.Request, pairs ...string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for i := 0; i+1 < len(pairs); i += 2 {
		routeCtx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func TestSpecialMarginRoundTrip(t *testing.T) {
	fake := newFakeCustomers()
	handler := newHandler(t, fake)

	body := strings.NewReader(`{"product_id":"p1","margin":"45"}`)
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/v1/admin/customer/special_margins/c1", body), "customerId", "c1")
	rec := httptest.NewRecorder()
	handler.CreateSpecialMargin(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = withParam(httptest.NewRequest(http.MethodGet, "/api/v1/admin/customer/special_margins/c1", nil), "customerId", "c1")
	rec = httptest.NewRecorder()
	handler.SpecialMargins(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []customer.SpecialMarginEntry `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	require.Equal(t, "p1", resp.Products[0].ProductID)
	require.Equal(t, "45%", resp.Products[0].Margin)
	require.Equal(t, "Product p1", resp.Products[0].Name)
}

func TestCreateSpecialMarginValidation(t *testing.T) {
	handler := newHandler(t, newFakeCustomers())

	body := strings.NewReader(`{"product_id":"p1","margin":"not-a-number"}`)
	req := withParam(httptest.NewRequest(http.MethodPost, "/api/v1/admin/customer/special_margins/c1", body), "customerId", "c1")
	rec := httptest.NewRecorder()
	handler.CreateSpecialMargin(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body = strings.NewReader(`{"margin":"45%"}`)
	req = withParam(httptest.NewRequest(http.MethodPost, "/api/v1/admin/customer/special_margins/c1", body), "customerId", "c1")
	rec = httptest.NewRecorder()
	handler.CreateSpecialMargin(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpecialMarginUnknownCustomer(t *testing.T) {
	handler := newHandler(t, newFakeCustomers())
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/admin/customer/special_margins/ghost", nil), "customerId", "ghost")
	rec := httptest.NewRecorder()
	handler.SpecialMargins(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSpecialMarginIsIdempotent(t *testing.T) {
	fake := newFakeCustomers()
	handler := newHandler(t, fake)
	for i := 0; i < 2; i++ {
		req := withParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/customer/special_margins/c1/p9", nil),
			"customerId", "c1", "productId", "p9")
		rec := httptest.NewRecorder()
		handler.DeleteSpecialMargin(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMarginSnapshot(t *testing.T) {
	fake := newFakeCustomers()
	fake.margins["c1"] = map[string]string{"p2": "50%"}
	svc, err := customer.NewService(fake)
	require.NoError(t, err)

	cfg, err := svc.MarginSnapshot(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, pricing.TaxInclusive, cfg.Treatment)
	require.InDelta(t, 35, cfg.MarginFor("p1"), 1e-9)
	require.InDelta(t, 50, cfg.MarginFor("p2"), 1e-9)
}
