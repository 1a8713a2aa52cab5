// Package api defines the admin API wire types.
package api

import "encoding/json"

type CreateTokenRequest struct {
	Owner string `json:"owner"`
	// ExpiresIn is the requested lifetime in seconds; the server default
	// applies when omitted or non-positive.
	ExpiresIn int64 `json:"expires_in,omitempty"`
}

type CreateTokenResponse struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	Owner     string `json:"owner"`
	ExpiresAt string `json:"expires_at"`
}

type TokenInfo struct {
	Token      string `json:"token"`
	Owner      string `json:"owner"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
	Active     bool   `json:"active"`
	EventCount int    `json:"event_count"`
}

type ListTokensResponse struct {
	Tokens []TokenInfo `json:"tokens"`
}

type DeactivateTokenResponse struct {
	Token  string `json:"token"`
	Active bool   `json:"active"`
}

type EventInfo struct {
	ID               int64           `json:"id"`
	TokenID          int64           `json:"token_id"`
	ReceivedAt       string          `json:"received_at"`
	Method           string          `json:"method"`
	Path             string          `json:"path"`
	Query            string          `json:"query,omitempty"`
	Headers          json.RawMessage `json:"headers"`
	BodyPreview      string          `json:"body_preview,omitempty"`
	RemoteIP         string          `json:"remote_ip"`
	ResolvedHostname *string         `json:"resolved_hostname,omitempty"`
	Suspicious       bool            `json:"suspicious"`
	SuspicionReason  *string         `json:"suspicion_reason,omitempty"`
	TokenValid       bool            `json:"token_valid"`
}

type ListEventsResponse struct {
	Total  int         `json:"total"`
	Page   int         `json:"page"`
	Per    int         `json:"per"`
	Events []EventInfo `json:"events"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
