package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/analytics"
	"github.com/orderhub/backend-oms/internal/repo"
)

type stubQueries struct {
	calls int
}

func (s *stubQueries) SummarizeByStatus(_ context.Context, _ time.Time) ([]repo.StatusBucket, error) {
	s.calls++
	return []repo.StatusBucket{
		{Status: repo.OrderStatusDraft, Count: 3, Amount: 4248, GST: 648},
		{Status: repo.OrderStatusInvoiced, Count: 2, Amount: 2832, GST: 432},
	}, nil
}

func TestOverviewAggregates(t *testing.T) {
	svc := &analytics.Service{Q: &stubQueries{}}
	overview, err := svc.Overview(context.Background(), time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	require.EqualValues(t, 5, overview.TotalOrders)
	require.InDelta(t, 7080, overview.TotalAmount, 1e-9)
	require.InDelta(t, 1080, overview.TotalGST, 1e-9)
	require.Len(t, overview.ByStatus, 2)
}

func TestOverviewCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	queries := &stubQueries{}
	svc := &analytics.Service{Q: queries, R: rdb, TTL: time.Minute, DefaultRange: 30 * 24 * time.Hour}
	since := svc.Range(0)
	for i := 0; i < 2; i++ {
		_, err := svc.Overview(context.Background(), since)
		require.NoError(t, err)
	}
	require.Equal(t, 1, queries.calls)
}
