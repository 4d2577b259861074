package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitofzero/balances-watcher/internal/balances"
	"github.com/limitofzero/balances-watcher/internal/chain"
	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/session"
	"github.com/limitofzero/balances-watcher/internal/tokenlist"
)

type fakeHTTPProvider struct {
	balance   int64
	callCount int
}

func (f *fakeHTTPProvider) CallContract(ctx context.Context, to gethcommon.Address, data []byte, block *big.Int) ([]byte, error) {
	buf := make([]byte, 32)
	b := big.NewInt(f.balance).Bytes()
	copy(buf[32-len(b):], b)

	results := make([]chain.CallResult, f.callCount)
	for i := range results {
		results[i] = chain.CallResult{Success: true, ReturnData: buf}
	}
	return chain.EncodeAggregate3Result(results)
}

type fakeDoer struct {
	body string
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString(d.body))}, nil
}

func newTestState(t *testing.T) *State {
	t.Helper()
	registry := chain.NewRegistry()
	registry.Register(domain.Ethereum.ChainID(), chain.NetworkEndpoints{
		HTTPProvider: &fakeHTTPProvider{balance: 100, callCount: 2},
		WrappedCoin:  gethcommon.HexToAddress("0x000000000000000000000000000000000000000e"),
	})

	doer := &fakeDoer{body: `{"tokens":[{"address":"0x000000000000000000000000000000000000000a","name":"T","decimals":18,"chainId":1}]}`}

	return &State{
		Manager:               session.NewManager(time.Minute, nil),
		Fetcher:               tokenlist.NewFetcher(nil, tokenlist.WithHTTPDoer(doer)),
		Chains:                registry,
		Reader:                balances.NewReader(nil),
		MulticallAddress:      domain.MustParseAddress("0x000000000000000000000000000000000000000b"),
		MaxWatchedTokensLimit: 10000,
		SnapshotInterval:      time.Minute,
	}
}

func newRequest(t *testing.T, method, path string, body any, pathValues map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

func TestCreateSessionRejectsEmptyTokenListURLs(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodPost, "/1/sessions/0xa", createSessionRequest{}, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.CreateSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSessionSucceedsAndRegistersSession(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodPost, "/1/sessions/0xa", createSessionRequest{
		TokensListsURLs: []string{"https://list.example"},
	}, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.CreateSession(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := s.Manager.Get(domain.SubscriptionKey{
		Network: domain.Ethereum,
		Owner:   domain.MustParseAddress("0x00000000000000000000000000000000000000aa"),
	})
	assert.True(t, ok)
}

func TestCreateSessionRejectsWhenTokenLimitExceeded(t *testing.T) {
	s := newTestState(t)
	s.MaxWatchedTokensLimit = 0
	req := newRequest(t, http.MethodPost, "/1/sessions/0xa", createSessionRequest{
		TokensListsURLs: []string{"https://list.example"},
	}, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.CreateSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSessionReturns404WhenNoSession(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodPut, "/1/sessions/0xa", updateSessionRequest{
		CustomTokens: []string{"0x000000000000000000000000000000000000000c"},
	}, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.UpdateSession(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSessionRejectsWhenBothArraysEmpty(t *testing.T) {
	s := newTestState(t)
	key := domain.SubscriptionKey{Network: domain.Ethereum, Owner: domain.MustParseAddress("0x00000000000000000000000000000000000000aa")}
	s.Manager.CreateOrUpdate(key, nil)

	req := newRequest(t, http.MethodPut, "/1/sessions/0xa", updateSessionRequest{}, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.UpdateSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSessionUnionExtendsWatchedSet(t *testing.T) {
	s := newTestState(t)
	key := domain.SubscriptionKey{Network: domain.Ethereum, Owner: domain.MustParseAddress("0x00000000000000000000000000000000000000aa")}
	sub := s.Manager.CreateOrUpdate(key, []domain.Address{domain.MustParseAddress("0x000000000000000000000000000000000000000c")})

	req := newRequest(t, http.MethodPut, "/1/sessions/0xa", updateSessionRequest{
		CustomTokens: []string{"0x000000000000000000000000000000000000000d"},
	}, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.UpdateSession(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, sub.Tokens(), 2)
}

func TestBalanceReturns404ForUnsupportedChain(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodGet, "/999/balance/0xa/0xb", nil, map[string]string{
		"chain_id": "999",
		"owner":    "0x00000000000000000000000000000000000000aa",
		"token":    "0x00000000000000000000000000000000000000bb",
	})
	rec := httptest.NewRecorder()

	s.Balance(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBalanceReturnsDecimalString(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodGet, "/1/balance/0xa/0xb", nil, map[string]string{
		"chain_id": "1",
		"owner":    "0x00000000000000000000000000000000000000aa",
		"token":    "0x00000000000000000000000000000000000000bb",
	})
	rec := httptest.NewRecorder()

	s.Balance(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "100", body.Balance)
}

func TestBalancesSSEReturns404WhenNoSession(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodGet, "/sse/1/balances/0xa", nil, map[string]string{
		"chain_id": "1", "owner": "0x00000000000000000000000000000000000000aa",
	})
	rec := httptest.NewRecorder()

	s.Balances(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTokensRequiresURLsParam(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodGet, "/1/tokens-list", nil, map[string]string{"chain_id": "1"})
	rec := httptest.NewRecorder()

	s.ListTokens(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTokensReturnsFilteredUnion(t *testing.T) {
	s := newTestState(t)
	req := newRequest(t, http.MethodGet, "/1/tokens-list?urls=https://list.example", nil, map[string]string{"chain_id": "1"})
	rec := httptest.NewRecorder()

	s.ListTokens(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tokens []string `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Tokens, 1)
}
