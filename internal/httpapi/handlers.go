package httpapi

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/limitofzero/balances-watcher/internal/domain"
	"github.com/limitofzero/balances-watcher/internal/sse"
)

type createSessionRequest struct {
	TokensListsURLs []string `json:"tokensListsUrls"`
	CustomTokens    []string `json:"customTokens"`
}

// updateSessionRequest has both fields optional, but at least one must be
// non-empty.
type updateSessionRequest struct {
	TokensListsURLs []string `json:"tokensListsUrls"`
	CustomTokens    []string `json:"customTokens"`
}

func parseAddresses(raw []string) ([]domain.Address, *appError) {
	out := make([]domain.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := domain.ParseAddress(s)
		if err != nil {
			return nil, badRequest(err.Error())
		}
		out = append(out, addr)
	}
	return out, nil
}

func (s *State) pathKey(r *http.Request) (domain.SubscriptionKey, *appError) {
	network, err := domain.ParseNetwork(r.PathValue("chain_id"))
	if err != nil {
		return domain.SubscriptionKey{}, notFound(err.Error())
	}
	owner, err := domain.ParseAddress(r.PathValue("owner"))
	if err != nil {
		return domain.SubscriptionKey{}, badRequest(err.Error())
	}
	return domain.SubscriptionKey{Network: network, Owner: owner}, nil
}

// CreateSession handles `POST /{chain_id}/sessions/{owner}`.
func (s *State) CreateSession(w http.ResponseWriter, r *http.Request) {
	key, appErr := s.pathKey(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, badRequest("invalid request body: "+err.Error()))
		return
	}

	if len(body.TokensListsURLs) == 0 {
		writeError(w, badRequest("tokensListsUrls should not be empty"))
		return
	}

	fetched, err := s.getTokens(r.Context(), body.TokensListsURLs, key.Network)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	customTokens, appErr := parseAddresses(body.CustomTokens)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	combined := make(map[domain.Address]struct{}, len(fetched)+len(customTokens))
	for addr := range fetched {
		combined[addr] = struct{}{}
	}
	for _, addr := range customTokens {
		combined[addr] = struct{}{}
	}

	if len(combined) > s.MaxWatchedTokensLimit {
		writeError(w, badRequest("max watched tokens limit exceeded"))
		return
	}

	tokens := make([]domain.Address, 0, len(combined))
	for addr := range combined {
		tokens = append(tokens, addr)
	}

	s.Manager.CreateOrUpdate(key, tokens)

	if s.Logger != nil {
		s.Logger.Info("session created or updated",
			zap.Stringer("network", key.Network),
			zap.Stringer("owner", key.Owner),
			zap.Int("watched_tokens", len(tokens)),
		)
	}

	w.WriteHeader(http.StatusOK)
}

// UpdateSession handles `PUT /{chain_id}/sessions/{owner}`: union-extends
// the watched set, never shrinks it.
func (s *State) UpdateSession(w http.ResponseWriter, r *http.Request) {
	key, appErr := s.pathKey(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var body updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, badRequest("invalid request body: "+err.Error()))
		return
	}

	if len(body.TokensListsURLs) == 0 && len(body.CustomTokens) == 0 {
		writeError(w, badRequest("tokensListsUrls && customTokens are empty"))
		return
	}

	sub, ok := s.Manager.Get(key)
	if !ok {
		writeError(w, notFound(domain.ErrNoSession.Error()))
		return
	}

	var fetched map[domain.Address]struct{}
	if len(body.TokensListsURLs) > 0 {
		var err error
		fetched, err = s.getTokens(r.Context(), body.TokensListsURLs, key.Network)
		if err != nil {
			writeError(w, badRequest(err.Error()))
			return
		}
	}

	customTokens, appErr := parseAddresses(body.CustomTokens)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	newTokens := make(map[domain.Address]struct{}, len(fetched)+len(customTokens))
	for addr := range fetched {
		newTokens[addr] = struct{}{}
	}
	for _, addr := range customTokens {
		newTokens[addr] = struct{}{}
	}

	existing := make(map[domain.Address]struct{})
	for _, addr := range sub.Tokens() {
		existing[addr] = struct{}{}
	}

	newUnique := 0
	for addr := range newTokens {
		if _, present := existing[addr]; !present {
			newUnique++
		}
	}

	if len(existing)+newUnique > s.MaxWatchedTokensLimit {
		if s.Logger != nil {
			s.Logger.Error("max watched tokens limit exceeded",
				zap.Int("would_be_count", len(existing)+newUnique))
		}
		writeError(w, badRequest("max watched tokens limit exceeded"))
		return
	}

	tokens := make([]domain.Address, 0, len(newTokens))
	for addr := range newTokens {
		tokens = append(tokens, addr)
	}
	s.Manager.CreateOrUpdate(key, tokens)

	if s.Logger != nil {
		s.Logger.Info("watched token set updated",
			zap.Stringer("network", key.Network),
			zap.Stringer("owner", key.Owner),
			zap.Int("prev_count", len(existing)),
			zap.Int("new_count", len(existing)+newUnique),
		)
	}

	w.WriteHeader(http.StatusOK)
}

// Balances handles `GET /sse/{chain_id}/balances/{owner}`.
func (s *State) Balances(w http.ResponseWriter, r *http.Request) {
	network, err := domain.ParseNetwork(r.PathValue("chain_id"))
	if err != nil {
		writeError(w, notFound(err.Error()))
		return
	}
	owner, err := domain.ParseAddress(r.PathValue("owner"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	endpoints, ok := s.Chains.Get(network.ChainID())
	if !ok {
		writeError(w, notFound("no provider configured for network"))
		return
	}

	key := domain.SubscriptionKey{Network: network, Owner: owner}

	events, unsubscribe, isFirst, sub, subErr := s.Manager.Subscribe(key)
	if subErr != nil {
		writeError(w, classifySubscriptionError(subErr))
		return
	}

	if isFirst {
		s.spawnWatcher(key, sub, endpoints)
	} else if snapshot := sub.Snapshot(); len(snapshot) > 0 {
		// Prime the newly attached client with the current snapshot.
		// Broadcast, not unicast: every other attached receiver also sees
		// this redundant update, accepted as benign.
		sub.Bus.Publish(domain.BalanceUpdate{Balances: snapshot})
	}

	stream := sse.NewStream(events, unsubscribe)
	if err := stream.Serve(w, r); err != nil && s.Logger != nil {
		s.Logger.Debug("sse stream ended", zap.Error(err))
	}
}

// Balance handles `GET /{chain_id}/balance/{owner}/{token}`.
func (s *State) Balance(w http.ResponseWriter, r *http.Request) {
	network, err := domain.ParseNetwork(r.PathValue("chain_id"))
	if err != nil {
		writeError(w, notFound(err.Error()))
		return
	}
	owner, err := domain.ParseAddress(r.PathValue("owner"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	token, err := domain.ParseAddress(r.PathValue("token"))
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}

	endpoints, ok := s.Chains.Get(network.ChainID())
	if !ok {
		writeError(w, notFound("no provider configured for network"))
		return
	}

	result, err := s.Reader.GetBalances(
		r.Context(),
		endpoints.HTTPProvider,
		owner,
		s.MulticallAddress,
		network.NativeSentinel(),
		[]domain.Address{token},
		nil,
	)
	if err != nil {
		writeError(w, internalErr(err.Error()))
		return
	}

	balance, ok := result[token]
	if !ok {
		// The sub-call decoded to nothing usable; report zero rather than
		// failing the request.
		balance = domain.NewBalance(big.NewInt(0))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Balance string `json:"balance"`
	}{Balance: balance.String()})
}

// ListTokens handles `GET /{chain_id}/tokens-list?urls=a,b,c`: the filtered
// union of token addresses for a chain, without creating a watch session.
// `urls` is a comma-separated list since this is a GET with no body.
func (s *State) ListTokens(w http.ResponseWriter, r *http.Request) {
	network, err := domain.ParseNetwork(r.PathValue("chain_id"))
	if err != nil {
		writeError(w, notFound(err.Error()))
		return
	}

	raw := r.URL.Query().Get("urls")
	if raw == "" {
		writeError(w, badRequest("urls query parameter is required"))
		return
	}
	urls := strings.Split(raw, ",")

	tokens, fetchErr := s.getTokens(r.Context(), urls, network)
	if fetchErr != nil {
		writeError(w, badRequest(fetchErr.Error()))
		return
	}

	out := make([]string, 0, len(tokens))
	for addr := range tokens {
		out = append(out, addr.String())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Tokens []string `json:"tokens"`
	}{Tokens: out})
}
