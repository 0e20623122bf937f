package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/internal/idhash"
)

const samplePage = `{"data":[
	{"idHash":"bbb","created":"2024-05-01T12:00:00Z","agent":{"id":2,"name":"Bea"},"details":{"name":"Hat","type":"Asset"},"currency":{"amount":250}},
	{"idHash":"aaa","created":"2024-05-01T11:00:00Z","agent":{"id":1,"name":"Al"},"details":{"name":"Pass","type":"GamePass"},"currency":{"amount":40}}
]}`

func TestClient_RecentTransactions(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", Token: "secret"})
	txs, err := c.RecentTransactions(context.Background(), 42, 10)
	require.NoError(t, err)

	assert.Equal(t, "/v2/groups/42/transactions", gotPath)
	assert.Contains(t, gotQuery, "limit=10")
	assert.Contains(t, gotQuery, "sortOrder=Desc")
	assert.Contains(t, gotQuery, "transactionType=Sale")
	assert.Equal(t, "Bearer secret", gotAuth)

	require.Len(t, txs, 2)
	assert.Equal(t, "bbb", txs[0].IDHash)
	assert.True(t, txs[0].IsAsset())
	assert.False(t, txs[1].IsAsset())
	assert.Equal(t, int64(250), txs[0].Currency.Amount)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, err := c.RecentTransactions(context.Background(), 1, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, err := c.RecentTransactions(context.Background(), 1, 5)
	assert.Error(t, err)
}

func TestTransaction_ToSaleRecord(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tx := Transaction{
		IDHash:   "abc",
		Created:  created,
		Agent:    Agent{ID: 9, Name: "Cy"},
		Details:  Details{Name: "Cape", Type: "Asset"},
		Currency: Currency{Amount: 75},
	}

	r := tx.ToSaleRecord(3)
	assert.Equal(t, idhash.ComputeSaleID(3, "abc"), r.IDHash)
	assert.Equal(t, int64(3), r.GroupID)
	assert.Equal(t, "Cape", r.Item)
	assert.Equal(t, "Cy", r.BuyerName)
	assert.Equal(t, int64(75), r.Amount)
	assert.Equal(t, created, r.OccurredAt)

	tx.IDHash = ""
	r = tx.ToSaleRecord(3)
	assert.Equal(t, idhash.ComputeSaleIDFromContent(3, 9, "Cape", 75, created), r.IDHash)
}
