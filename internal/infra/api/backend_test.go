package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/bridge/internal/core/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "tok"})
}

func TestClient_AssociateAddress(t *testing.T) {
	var got AssociateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u-1/associate-address", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := client.AssociateAddress(context.Background(), "u-1", AssociateRequest{
		PublicAddress: "0xabc",
		SignedMessage: "0xsig",
		SignedOn:      "Sol",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.PublicAddress)
	assert.Equal(t, "Sol", got.SignedOn)
}

func TestClient_AssociateAddress_Conflict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.AssociateAddress(context.Background(), "u-1", AssociateRequest{
		PublicAddress: "0xabc", SignedOn: "Sol",
	})
	var conflict *domain.AssociationConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "0xabc", conflict.Address)
	assert.Equal(t, domain.ChainFamilyEVM, conflict.Family)
}

func TestClient_AssociateAddress_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.AssociateAddress(context.Background(), "u-1", AssociateRequest{SignedOn: "Eth"})
	var transport *domain.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, http.StatusBadGateway, transport.StatusCode)
}

func TestClient_BuildSolanaDeposit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deposits/solana", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"amount":2.5,"coin":"Sol"}`, string(body))
		_, _ = w.Write([]byte(`"AQID"`))
	})

	tx, err := client.BuildSolanaDeposit(context.Background(), domain.AssetSol, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, "AQID", tx)
}

func TestClient_BuildEthereumDeposit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deposits/ethereum", r.URL.Path)
		_, _ = w.Write([]byte(`{"to":"0x1111111111111111111111111111111111111111","value":"0","data":"0xdeadbeef"}`))
	})

	p, err := client.BuildEthereumDeposit(context.Background(), domain.AssetUsdc, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", p.To)
	assert.Equal(t, "0xdeadbeef", p.Data)
}

func TestClient_Quote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Sol", r.URL.Query().Get("coin"))
		assert.Equal(t, "2.5", r.URL.Query().Get("amount"))
		_, _ = w.Write([]byte(`1250.5`))
	})

	points, err := client.Quote(context.Background(), domain.AssetSol, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.True(t, points.Equal(decimal.RequireFromString("1250.5")))
}

func TestClient_ListDeposits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u-1/deposits", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"records":[{"amount":"1","asset":"Eth","points":"10","status":"confirmed","timestamp":"2024-05-01T10:00:00Z"}]}`))
	})

	entries, err := client.ListDeposits(context.Background(), "u-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AssetEth, entries[0].Asset)
	assert.Equal(t, "confirmed", entries[0].Status)
}

func TestClient_HealthTracksFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, err := client.Quote(context.Background(), domain.AssetEth, decimal.NewFromInt(1))
		require.Error(t, err)
	}
	h := client.Health()
	assert.False(t, h.Available)
	assert.Equal(t, 1.0, h.ErrorRate)
}
