package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/internal/domain"
	"salesbot/internal/query"
	"salesbot/internal/scheduler"
	"salesbot/internal/storage/memory"
)

// Wednesday.
var now = time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC)

var errMockStore = errors.New("store down")

// MockQueries implements Queries for testing.
type MockQueries struct {
	TotalFunc     func(ctx context.Context, period domain.Period, groupID *int64) (int64, error)
	ChartFunc     func(ctx context.Context, groupID *int64) ([]domain.DailyTotal, error)
	ForecastFunc  func(ctx context.Context) (domain.Forecast, error)
	SnapshotsFunc func(ctx context.Context, days int) ([]*domain.DailySnapshot, error)
	AnomaliesFunc func(ctx context.Context, limit int) ([]*domain.Anomaly, error)
}

func (m *MockQueries) Location() *time.Location { return time.UTC }

func (m *MockQueries) Total(ctx context.Context, period domain.Period, groupID *int64) (int64, error) {
	if m.TotalFunc != nil {
		return m.TotalFunc(ctx, period, groupID)
	}
	return 0, nil
}

func (m *MockQueries) Chart(ctx context.Context, groupID *int64) ([]domain.DailyTotal, error) {
	if m.ChartFunc != nil {
		return m.ChartFunc(ctx, groupID)
	}
	return nil, nil
}

func (m *MockQueries) Forecast(ctx context.Context) (domain.Forecast, error) {
	if m.ForecastFunc != nil {
		return m.ForecastFunc(ctx)
	}
	return domain.Forecast{}, query.ErrNoForecast
}

func (m *MockQueries) Snapshots(ctx context.Context, days int) ([]*domain.DailySnapshot, error) {
	if m.SnapshotsFunc != nil {
		return m.SnapshotsFunc(ctx, days)
	}
	return nil, nil
}

func (m *MockQueries) Anomalies(ctx context.Context, limit int) ([]*domain.Anomaly, error) {
	if m.AnomaliesFunc != nil {
		return m.AnomaliesFunc(ctx, limit)
	}
	return nil, nil
}

type echoCommands struct{}

func (echoCommands) Handle(_ context.Context, text string) string {
	return "echo: " + text
}

type fakeStatus struct{}

func (fakeStatus) Stats() scheduler.Stats {
	return scheduler.Stats{PollCycles: 3, SalesStored: 7}
}

func (fakeStatus) Groups() []int64 { return []int64{1, 2} }

func newTestServer(t *testing.T, q Queries) *Server {
	t.Helper()
	return NewServer(Options{
		Queries:   q,
		Commands:  echoCommands{},
		Status:    fakeStatus{},
		Hub:       NewHub(nil, log.New(io.Discard, "", 0)),
		Logger:    log.New(io.Discard, "", 0),
		LogWriter: io.Discard,
		Clock:     func() time.Time { return now },
	})
}

func seededQueries(t *testing.T) *query.Service {
	t.Helper()
	sales := memory.NewSaleStore()
	records := []*domain.SaleRecord{
		{IDHash: "today-1", GroupID: 1, Item: "Hat", Amount: 100, OccurredAt: now.Add(-time.Hour)},
		{IDHash: "today-2", GroupID: 2, Item: "Cape", Amount: 50, OccurredAt: now.Add(-2 * time.Hour)},
		{IDHash: "monday", GroupID: 1, Item: "Hat", Amount: 30, OccurredAt: time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)},
	}
	for _, r := range records {
		_, err := sales.InsertIfAbsent(context.Background(), r)
		require.NoError(t, err)
	}
	return query.NewService(query.Options{
		SaleStore:     sales,
		SnapshotStore: memory.NewSnapshotStore(),
		Clock:         func() time.Time { return now },
	})
}

func do(t *testing.T, s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &MockQueries{})
	w := do(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleTotals(t *testing.T) {
	s := newTestServer(t, seededQueries(t))

	tests := []struct {
		name   string
		target string
		want   TotalResponse
	}{
		{"default today", "/api/totals", TotalResponse{Period: "today", Total: 150}},
		{"week", "/api/totals?period=week", TotalResponse{Period: "week", Total: 180}},
		{"week for group", "/api/totals?period=WEEK&group=1", TotalResponse{Period: "week", GroupID: ptr(int64(1)), Total: 130}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var got TotalResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleTotals_BadParams(t *testing.T) {
	s := newTestServer(t, &MockQueries{})

	for _, target := range []string{
		"/api/totals?period=year",
		"/api/totals?group=abc",
		"/api/totals?group=-1",
	} {
		w := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHandleTotals_StoreErrorIsGeneric(t *testing.T) {
	var logs bytes.Buffer
	s := NewServer(Options{
		Queries: &MockQueries{
			TotalFunc: func(context.Context, domain.Period, *int64) (int64, error) {
				return 0, errMockStore
			},
		},
		Commands:  echoCommands{},
		Logger:    log.New(&logs, "", 0),
		LogWriter: io.Discard,
	})

	w := do(t, s, http.MethodGet, "/api/totals", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to load data"}`, w.Body.String())
	assert.Contains(t, logs.String(), "store down")
}

func TestHandleChart(t *testing.T) {
	s := newTestServer(t, seededQueries(t))
	w := do(t, s, http.MethodGet, "/api/chart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got ChartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Days, query.ChartDays)
	assert.Equal(t, "2024-05-09", got.Days[0].Date)
	assert.Equal(t, DailyTotalResponse{Date: "2024-05-13", Total: 30}, got.Days[4])
	assert.Equal(t, DailyTotalResponse{Date: "2024-05-15", Total: 150}, got.Days[6])
}

func TestHandleForecast(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		s := newTestServer(t, &MockQueries{})
		w := do(t, s, http.MethodGet, "/api/forecast", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("available", func(t *testing.T) {
		s := newTestServer(t, &MockQueries{
			ForecastFunc: func(context.Context) (domain.Forecast, error) {
				return domain.Forecast{
					PredictedNext:  70,
					Confidence:     domain.ConfidenceMedium,
					BasedOn:        time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC),
					MovingAverage7: 40,
					Trend:          0.75,
					Volatility:     20,
				}, nil
			},
		})
		w := do(t, s, http.MethodGet, "/api/forecast", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got ForecastResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, int64(70), got.PredictedNext)
		assert.Equal(t, "medium", got.Confidence)
		assert.Equal(t, "2024-05-14", got.BasedOn)
	})
}

func TestHandleSnapshots(t *testing.T) {
	var gotDays int
	s := newTestServer(t, &MockQueries{
		SnapshotsFunc: func(_ context.Context, days int) ([]*domain.DailySnapshot, error) {
			gotDays = days
			return []*domain.DailySnapshot{
				{Date: time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), Total: 70, MovingAverage7: 40},
			}, nil
		},
	})

	w := do(t, s, http.MethodGet, "/api/snapshots?days=10000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxSnapshotDays, gotDays)

	var got []SnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2024-05-14", got[0].Date)

	w = do(t, s, http.MethodGet, "/api/snapshots?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAnomalies(t *testing.T) {
	s := newTestServer(t, &MockQueries{
		AnomaliesFunc: func(_ context.Context, limit int) ([]*domain.Anomaly, error) {
			assert.Equal(t, defaultAnomalyLimit, limit)
			return []*domain.Anomaly{{ID: "a1", Date: now, Value: 500, Threshold: 120, Reason: "spike"}}, nil
		},
	})

	w := do(t, s, http.MethodGet, "/api/anomalies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []AnomalyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, int64(500), got[0].Value)
}

func TestHandleCommand(t *testing.T) {
	s := newTestServer(t, &MockQueries{})

	w := do(t, s, http.MethodPost, "/api/command", strings.NewReader(`{"text":"sales today"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":"echo: sales today"}`, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/command", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t, &MockQueries{})
	w := do(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, []int64{1, 2}, got.Groups)
	require.NotNil(t, got.Scheduler)
	assert.Equal(t, 3, got.Scheduler.PollCycles)
	assert.Equal(t, 7, got.Scheduler.SalesStored)
}

func TestHandleMetrics(t *testing.T) {
	s := newTestServer(t, &MockQueries{})
	w := do(t, s, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "salesbot_")
}

func TestHandleDashboard(t *testing.T) {
	s := newTestServer(t, seededQueries(t))
	w := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "<h1>Sales</h1>")
	assert.Contains(t, body, "2024-05-15")
	assert.Contains(t, body, "Not enough data for a forecast yet.")
}

func TestHandleDashboard_StoreError(t *testing.T) {
	s := newTestServer(t, &MockQueries{
		ChartFunc: func(context.Context, *int64) ([]domain.DailyTotal, error) {
			return nil, errMockStore
		},
	})
	w := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChartBars(t *testing.T) {
	bars := chartBars([]domain.DailyTotal{
		{Date: now, Total: 0},
		{Date: now, Total: 50},
		{Date: now, Total: 200},
	})
	assert.Equal(t, []int{0, 25, 100}, []int{bars[0].Width, bars[1].Width, bars[2].Width})
	assert.Empty(t, chartBars(nil))
}

func ptr[T any](v T) *T { return &v }
