package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orderhub/backend-oms/internal/pricing"
	"github.com/orderhub/backend-oms/internal/repo"
)

// Querier defines the database access required for dashboard figures.
type Querier interface {
	SummarizeByStatus(ctx context.Context, since time.Time) ([]repo.StatusBucket, error)
}

// Overview aggregates order counts and amounts for the admin dashboard.
type Overview struct {
	Since       time.Time           `json:"since"`
	TotalOrders int64               `json:"total_orders"`
	TotalAmount float64             `json:"total_amount"`
	TotalGST    float64             `json:"total_gst"`
	ByStatus    []repo.StatusBucket `json:"by_status"`
}

// Service provides cached access to dashboard aggregates.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange time.Duration
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Range resolves the requested window, falling back to the configured default.
func (s *Service) Range(days int) time.Time {
	window := s.DefaultRange
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}
	return s.now().Add(-window)
}

// Overview returns order aggregates since the cutoff, served from Redis when fresh.
func (s *Service) Overview(ctx context.Context, since time.Time) (Overview, error) {
	if s == nil || s.Q == nil {
		return Overview{}, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "overview", since.Format("2006-01-02"))
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}
	buckets, err := s.Q.SummarizeByStatus(ctx, since)
	if err != nil {
		return Overview{}, err
	}
	overview := Overview{Since: since, ByStatus: buckets}
	for _, b := range buckets {
		overview.TotalOrders += b.Count
		overview.TotalAmount += b.Amount
		overview.TotalGST += b.GST
	}
	overview.TotalAmount = pricing.Round2(overview.TotalAmount)
	overview.TotalGST = pricing.Round2(overview.TotalGST)
	s.store(ctx, key, overview)
	return overview, nil
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

func (s *Service) fromCache(ctx context.Context, key string) (Overview, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Overview{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Overview{}, false
	}
	var cached Overview
	if err := json.Unmarshal(data, &cached); err != nil {
		return Overview{}, false
	}
	return cached, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
