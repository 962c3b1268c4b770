package hrs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"huette/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newHRSServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/huts/42/summaries", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2025-08-01", r.URL.Query().Get("from"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summaries":[
			{"id":1,"day":"2025-08-01","totalGuests":30,"categories":[
				{"categoryType":"ML","assignedGuests":20,"freePlaces":4},
				{"categoryType":"mbz","assignedGuests":10,"freePlaces":1}]},
			{"id":2,"day":"not-a-day","totalGuests":1}
		]}`))
	})
	mux.HandleFunc("/api/v1/huts/42/quotas", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotas":[
			{"id":9,"title":"Sommer","mode":"serviced","dateFrom":"2025-07-01","dateTo":"2025-08-31",
			 "categories":[{"categoryType":"ML","capacity":30},{"categoryType":"SK","capacity":2}]},
			{"id":10,"title":"Broken","mode":"SERVICED","dateFrom":"2025-09-01","dateTo":"2025-08-01"}
		]}`))
	})
	mux.HandleFunc("/api/v1/huts/42/reservations", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reservations":[
			{"id":501,"guestName":"Sektion Bayerland","arrival":"2025-08-01","departure":"2025-08-03","status":"CONFIRMED",
			 "categories":[{"categoryType":"ML","guests":6},{"categoryType":"2BZ","guests":2},{"categoryType":"XX","guests":9}]},
			{"id":502,"guestName":"Storno","arrival":"2025-08-02","departure":"2025-08-03","status":"CANCELLED",
			 "categories":[{"categoryType":"MBZ","guests":1}]}
		]}`))
	})
	mux.HandleFunc("/api/v1/huts/7/summaries", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Feeds(t *testing.T) {
	var calls int32
	srv := newHRSServer(t, &calls)
	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret"}, nil)
	ctx := context.Background()

	summaries, err := client.DailySummaries(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].HRSID)
	assert.Equal(t, "MBZ", summaries[0].Categories[1].TypeCode)

	quotas, err := client.Quotas(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)
	require.Len(t, quotas, 1)
	assert.Equal(t, models.QuotaServiced, quotas[0].Mode)
	assert.Equal(t, models.Beds{Lager: 30, Sonder: 2}, quotas[0].Allocation())

	reservations, err := client.Reservations(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)
	require.Len(t, reservations, 2)
	assert.Equal(t, models.Beds{Lager: 6, DZ: 2}, reservations[0].Beds)
	assert.Equal(t, models.SourceHRS, reservations[0].Source)
	assert.False(t, reservations[0].Cancelled)
	assert.True(t, reservations[1].Cancelled)
}

func TestClient_HTTPError(t *testing.T) {
	var calls int32
	srv := newHRSServer(t, &calls)
	client := NewClient(Options{BaseURL: srv.URL}, nil)

	_, err := client.DailySummaries(context.Background(), 7, day("2025-08-01"), day("2025-08-02"))
	assert.ErrorContains(t, err, "http 500")
}

func TestClient_RedisCache(t *testing.T) {
	var calls int32
	srv := newHRSServer(t, &calls)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret"}, nil)
	client.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	first, err := client.DailySummaries(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)
	second, err := client.DailySummaries(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("hrs:summaries:42:2025-08-01:2025-08-31"))

	mr.FastForward(2 * time.Minute)
	_, err = client.DailySummaries(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	var calls int32
	srv := newHRSServer(t, &calls)
	client := NewClient(Options{BaseURL: srv.URL, APIKey: "secret", RequestsPerSecond: 0.001}, nil)

	_, err := client.Quotas(context.Background(), 42, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Quotas(ctx, 42, day("2025-08-01"), day("2025-08-31"))
	assert.ErrorContains(t, err, "rate limiter")
}
