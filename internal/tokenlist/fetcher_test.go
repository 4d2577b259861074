package tokenlist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// fakeDoer answers with a scripted body per URL and counts requests per URL,
// so tests can assert coalescing/caching behavior.
type fakeDoer struct {
	bodies map[string]string
	status map[string]int
	calls  map[string]*int64
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{
		bodies: make(map[string]string),
		status: make(map[string]int),
		calls:  make(map[string]*int64),
	}
}

func (d *fakeDoer) set(url, body string) {
	d.bodies[url] = body
	d.status[url] = http.StatusOK
}

func (d *fakeDoer) callCount(url string) int64 {
	c, ok := d.calls[url]
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	if _, ok := d.calls[url]; !ok {
		var n int64
		d.calls[url] = &n
	}
	atomic.AddInt64(d.calls[url], 1)

	status, ok := d.status[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(d.bodies[url])),
	}, nil
}

func tokenJSON(chainID int64, addr string) string {
	return fmt.Sprintf(`{"tokens":[{"address":%q,"name":"T","decimals":18,"chainId":%d}]}`, addr, chainID)
}

func TestGetTokensFetchesAndUnionsAcrossURLs(t *testing.T) {
	doer := newFakeDoer()
	doer.set("https://a", tokenJSON(1, "0x000000000000000000000000000000000000000a"))
	doer.set("https://b", tokenJSON(1, "0x000000000000000000000000000000000000000b"))

	f := NewFetcher(nil, WithHTTPDoer(doer))
	tokens, err := f.GetTokens(context.Background(), []string{"https://a", "https://b"}, domain.Ethereum)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestGetTokensFiltersByChain(t *testing.T) {
	doer := newFakeDoer()
	doer.set("https://a", tokenJSON(42161, "0x000000000000000000000000000000000000000a"))

	f := NewFetcher(nil, WithHTTPDoer(doer))
	tokens, err := f.GetTokens(context.Background(), []string{"https://a"}, domain.Ethereum)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	tokens, err = f.GetTokens(context.Background(), []string{"https://a"}, domain.Arbitrum)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestGetTokensCachesWithinTTLAndDoesNotRefetch(t *testing.T) {
	doer := newFakeDoer()
	doer.set("https://a", tokenJSON(1, "0x000000000000000000000000000000000000000a"))

	f := NewFetcher(nil, WithHTTPDoer(doer), WithTTL(time.Hour))
	_, err := f.GetTokens(context.Background(), []string{"https://a"}, domain.Ethereum)
	require.NoError(t, err)
	_, err = f.GetTokens(context.Background(), []string{"https://a"}, domain.Ethereum)
	require.NoError(t, err)

	assert.Equal(t, int64(1), doer.callCount("https://a"))
}

func TestGetTokensRefetchesAfterTTLExpires(t *testing.T) {
	doer := newFakeDoer()
	doer.set("https://a", tokenJSON(1, "0x000000000000000000000000000000000000000a"))

	f := NewFetcher(nil, WithHTTPDoer(doer), WithTTL(time.Millisecond))
	_, err := f.GetTokens(context.Background(), []string{"https://a"}, domain.Ethereum)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = f.GetTokens(context.Background(), []string{"https://a"}, domain.Ethereum)
	require.NoError(t, err)

	assert.Equal(t, int64(2), doer.callCount("https://a"))
}

func TestGetTokensFailsWholeCallOnSingleURLFailure(t *testing.T) {
	doer := newFakeDoer()
	doer.set("https://a", tokenJSON(1, "0x000000000000000000000000000000000000000a"))
	doer.status["https://missing"] = http.StatusNotFound
	doer.bodies["https://missing"] = ""

	f := NewFetcher(nil, WithHTTPDoer(doer))
	_, err := f.GetTokens(context.Background(), []string{"https://a", "https://missing"}, domain.Ethereum)
	require.Error(t, err)

	var loadErr *UnableToLoadListError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "https://missing", loadErr.URL)
}
