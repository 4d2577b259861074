package httpapi

import (
	"net/http"

	"github.com/rs/cors"
)

// NewRouter builds the service's HTTP surface: a plain net/http.ServeMux
// using method+wildcard patterns, wrapped in rs/cors. An empty
// allowedOrigins list means "allow all".
func NewRouter(state *State, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{chain_id}/sessions/{owner}", state.CreateSession)
	mux.HandleFunc("PUT /{chain_id}/sessions/{owner}", state.UpdateSession)
	mux.HandleFunc("GET /sse/{chain_id}/balances/{owner}", state.Balances)
	mux.HandleFunc("GET /{chain_id}/balance/{owner}/{token}", state.Balance)
	mux.HandleFunc("GET /{chain_id}/tokens-list", state.ListTokens)

	corsOptions := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"*"},
	}
	if len(allowedOrigins) == 0 {
		corsOptions.AllowedOrigins = []string{"*"}
	} else {
		corsOptions.AllowedOrigins = allowedOrigins
	}

	return cors.New(corsOptions).Handler(mux)
}
