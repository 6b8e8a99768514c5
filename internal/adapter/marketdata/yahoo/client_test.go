package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithBaseURL(srv.URL), WithRateLimit(100)}, opts...)
	return NewClient(opts...)
}

const dailyChart = `{"chart":{"result":[{
	"meta":{"symbol":"AAPL","currency":"USD","exchangeTimezoneName":"America/New_York","regularMarketPrice":187.5},
	"timestamp":[1704205800,1704292200,1704378600],
	"indicators":{"quote":[{"close":[185.64,null,181.91]}]}
}],"error":null}}`

func TestClient_DailyBars(t *testing.T) {
	var gotPath, gotInterval string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprint(w, dailyChart)
	})

	bars, err := client.DailyBars(context.Background(), "AAPL", day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2)
	assert.Equal(t, day(2024, 1, 2), bars[0].Date)
	assert.True(t, bars[0].Close.Equal(decimal.RequireFromString("185.64")))
	assert.Equal(t, day(2024, 1, 4), bars[1].Date)
}

func TestClient_MonthlyBarsInterval(t *testing.T) {
	var gotInterval string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprint(w, dailyChart)
	})

	_, err := client.MonthlyBars(context.Background(), "AAPL", day(2023, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, "1mo", gotInterval)
}

func TestClient_SpotPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		fmt.Fprint(w, dailyChart)
	})

	price, err := client.SpotPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("187.5")))
}

func TestClient_ErrorsAreProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"chart error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"server error", http.StatusBadGateway, `bad gateway`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"no closes", http.StatusOK, `{"chart":{"result":[{"meta":{"symbol":"X"},"timestamp":[],"indicators":{"quote":[{"close":[]}]}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.payload)
			})

			_, err := client.DailyBars(context.Background(), "X", day(2024, 1, 1), day(2024, 1, 5))
			assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, dailyChart)
	}, WithTimeout(20*time.Millisecond))

	_, err := client.SpotPrice(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_FxRate(t *testing.T) {
	var calls int32
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/USDKRW=X"), r.URL.Path)
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"USDKRW=X","regularMarketPrice":1300.5}}]}}`)
	}, WithHomeCurrency("KRW"), WithFxTTL(time.Hour), WithClock(func() time.Time { return now }))

	ctx := context.Background()

	home, err := client.FxRate(ctx, "krw")
	require.NoError(t, err)
	assert.True(t, home.Equal(decimal.NewFromInt(1)))

	fx, err := client.FxRate(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, fx.Equal(decimal.RequireFromString("1300.5")))

	_, err = client.FxRate(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	now = now.Add(2 * time.Hour)
	_, err = client.FxRate(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
