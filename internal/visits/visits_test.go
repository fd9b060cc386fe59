package visits

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func openTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	tr, err := Open(":memory:", zap.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestHashIP(t *testing.T) {
	tr := openTracker(t)
	h := tr.HashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, tr.HashIP("203.0.113.7"))
	assert.NotEqual(t, h, tr.HashIP("203.0.113.8"))

	other := openTracker(t)
	assert.NotEqual(t, h, other.HashIP("203.0.113.7"), "salt differs per tracker")
}

func TestStatsAndCleanup(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_visits"})
	tr := openTracker(t, WithClock(clk.Now), WithCounter(counter))

	clk.Set(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, tr.Record(ctx, "10.0.0.1", "old", "/profile"))

	clk.Set(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))
	require.NoError(t, tr.Record(ctx, "10.0.0.1", "ua", "/publications"))

	clk.Set(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, tr.Record(ctx, "10.0.0.2", "ua", "/publications"))
	require.NoError(t, tr.Record(ctx, "10.0.0.1", "ua", "/profile"))
	require.NoError(t, tr.Record(ctx, "10.0.0.1", "ua", "/publications"))

	clk.Set(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	stats, err := tr.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.TotalVisits)
	assert.Equal(t, int64(2), stats.UniqueVisitors)
	assert.Equal(t, int64(3), stats.VisitsToday)
	assert.Equal(t, int64(4), stats.VisitsThisWeek)
	assert.Equal(t, []SectionCount{
		{Path: "/publications", Visits: 3},
		{Path: "/profile", Visits: 2},
	}, stats.Sections)
	assert.Equal(t, 5.0, testutil.ToFloat64(counter))

	removed, err := tr.Cleanup(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err = tr.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalVisits)
}

func TestEmptyStats(t *testing.T) {
	stats, err := openTracker(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVisits)
	assert.NotNil(t, stats.Sections)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tr := openTracker(t)

	r := gin.New()
	r.Use(tr.Middleware())
	r.GET("/education", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.POST("/contact", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, path string, dnt bool) {
		req := httptest.NewRequest(method, path, nil)
		if dnt {
			req.Header.Set("DNT", "1")
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	send(http.MethodGet, "/education?degree=PhD", false)
	send(http.MethodGet, "/education", true)
	send(http.MethodGet, "/api/stats", false)
	send(http.MethodGet, "/broken", false)
	send(http.MethodGet, "/missing", false)
	send(http.MethodPost, "/contact", false)
	tr.Wait()

	stats, err := tr.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVisits)
	assert.Equal(t, []SectionCount{{Path: "/education", Visits: 1}}, stats.Sections)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	tr := openTracker(t)
	require.NoError(t, tr.Record(ctx, "10.0.0.1", "ua", "/profile"))
	require.NoError(t, tr.Record(ctx, "10.0.0.1", "ua", "/research"))
	require.NoError(t, tr.Record(ctx, "10.0.0.2", "ua", "/profile"))

	n, err := tr.Forget(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = tr.Forget(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, n)

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVisits)
}
