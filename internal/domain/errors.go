package domain

import "errors"

// Config/address/network parsing errors. These map to HTTP 400/404 in
// internal/httpapi.
var (
	ErrUnsupportedNetwork = errors.New("network is not supported")
	ErrInvalidNetworkID   = errors.New("network id must be a decimal integer")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidBalance     = errors.New("invalid balance")
)

// Subscription book-keeping errors. NoSession maps to 404; NoClients
// indicates a refcount underflow, which is a programmer error and maps
// to 500.
var (
	ErrNoSession      = errors.New("no session for key")
	ErrTooManyClients = errors.New("too many clients")
	ErrNoClients      = errors.New("no clients to unsubscribe")
)
