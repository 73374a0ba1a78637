package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/orderhub/backend-oms/internal/common"
	"github.com/orderhub/backend-oms/internal/repo"
)

type productProvider interface {
	List(ctx context.Context, p repo.ListProductsParams) ([]repo.Product, int64, error)
	Brands(ctx context.Context) ([]string, error)
}

// Service orchestrates catalogue queries, DTO assembly, and caching.
type Service struct {
	products   productProvider
	cache      *Cache
	defaultPer int
	maxPer     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Products   productProvider
	Cache      *Cache
	DefaultPer int
	MaxPer     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Products == nil {
		return nil, errors.New("catalog: product provider is required")
	}
	defaultPer := cfg.DefaultPer
	if defaultPer < 1 {
		defaultPer = 25
	}
	maxPer := cfg.MaxPer
	if maxPer < 1 {
		maxPer = 100
	}
	if defaultPer > maxPer {
		defaultPer = maxPer
	}
	return &Service{products: cfg.Products, cache: cfg.Cache, defaultPer: defaultPer, maxPer: maxPer}, nil
}

// ListParams captures filters for product listing.
type ListParams struct {
	Brand   string
	Search  string
	Page    int
	PerPage int
}

// Product is the wire representation of a catalogue item. Rate and tax stay
// float64 to match the consumer's 2-decimal JSON contract.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	SKU        string  `json:"sku,omitempty"`
	Rate       float64 `json:"rate"`
	Stock      int     `json:"stock"`
	TaxPercent float64 `json:"tax_percent"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// ListResult contains list data and the total match count.
type ListResult struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
	Page     int       `json:"-"`
	PerPage  int       `json:"-"`
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Brand:   strings.TrimSpace(values.Get("brand")),
		Search:  strings.TrimSpace(values.Get("search")),
		Page:    1,
		PerPage: s.defaultPer,
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("per_page")); v != "" {
		per, err := strconv.Atoi(v)
		if err != nil || per < 1 {
			return params, badRequest("per_page", "per_page must be a positive integer", err)
		}
		params.PerPage = per
	}
	if params.PerPage > s.maxPer {
		params.PerPage = s.maxPer
	}
	return params, nil
}

// ListProducts returns filtered products plus the total match count. The
// unfiltered first page is served from Redis when available.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ListResult, error) {
	key, cacheable := s.listCacheKey(params)
	if cacheable {
		var cached ListResult
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			cached.Page = params.Page
			cached.PerPage = params.PerPage
			return cached, nil
		}
	}

	rows, total, err := s.products.List(ctx, repo.ListProductsParams{
		Brand:  params.Brand,
		Search: params.Search,
		Limit:  params.PerPage,
		Offset: (params.Page - 1) * params.PerPage,
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, Product{
			ID:         row.ID,
			Name:       row.Name,
			Brand:      row.Brand,
			SKU:        row.SKU,
			Rate:       row.Rate,
			Stock:      row.Stock,
			TaxPercent: row.TaxPercent,
			ImageURL:   row.ImageURL,
		})
	}
	result := ListResult{Products: products, Total: total, Page: params.Page, PerPage: params.PerPage}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, result)
	}
	return result, nil
}

// ListBrands returns the distinct brands carried by the catalogue.
func (s *Service) ListBrands(ctx context.Context) ([]string, error) {
	brands, err := s.products.Brands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	if brands == nil {
		brands = []string{}
	}
	return brands, nil
}

const firstPageCacheKey = "catalog:products:first_page"

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if params.Page != 1 || params.PerPage != s.defaultPer {
		return "", false
	}
	if params.Brand != "" || params.Search != "" {
		return "", false
	}
	return firstPageCacheKey, true
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}
