// Package server implements the canary listener and the admin API.
package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rsclarke/canaryd/internal/api"
	"github.com/rsclarke/canaryd/internal/db"
	"github.com/rsclarke/canaryd/internal/models"
)

// AdminServer handles token and event management. Authentication is left to
// the deployment (reverse proxy or network policy).
type AdminServer struct {
	DB       *sql.DB
	BaseURL  string
	TokenTTL time.Duration
	Logger   *zap.Logger
}

// Handler returns the HTTP handler for the admin server.
func (s *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tokens", s.handleCreateToken)
	mux.HandleFunc("GET /v1/tokens", s.handleListTokens)
	mux.HandleFunc("POST /v1/tokens/{token}/deactivate", s.handleDeactivateToken)
	mux.HandleFunc("GET /v1/tokens/{token}/events", s.handleListTokenEvents)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *AdminServer) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTokenRequest
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<16) // 64KB limit
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && err != io.EOF {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeJSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON"})
			return
		}
	}

	ttl := time.Duration(req.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = s.TokenTTL
	}

	tok, err := db.CreateToken(s.DB, req.Owner, ttl, time.Now())
	if err == db.ErrEmptyOwner {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "owner required"})
		return
	}
	if err != nil {
		s.Logger.Error("create token failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "database error"})
		return
	}

	writeJSON(w, http.StatusOK, api.CreateTokenResponse{
		Token:     tok.Token,
		URL:       s.BaseURL + "/c/" + tok.Token,
		Owner:     tok.Owner,
		ExpiresAt: formatTime(tok.ExpiresAt),
	})
}

func (s *AdminServer) handleListTokens(w http.ResponseWriter, r *http.Request) {
	page, per := pagination(r)

	tokens, err := db.ListTokens(s.DB, page, per)
	if err != nil {
		s.Logger.Error("list tokens failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "database error"})
		return
	}

	resp := api.ListTokensResponse{
		Tokens: make([]api.TokenInfo, 0, len(tokens)),
	}
	for _, t := range tokens {
		resp.Tokens = append(resp.Tokens, api.TokenInfo{
			Token:      t.Token.Token,
			Owner:      t.Owner,
			CreatedAt:  formatTime(t.CreatedAt),
			ExpiresAt:  formatTime(t.ExpiresAt),
			Active:     t.Active,
			EventCount: t.EventCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *AdminServer) handleDeactivateToken(w http.ResponseWriter, r *http.Request) {
	value := r.PathValue("token")
	if value == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "token required"})
		return
	}

	tok, err := db.DeactivateToken(s.DB, value)
	if err != nil {
		s.Logger.Error("deactivate token failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "database error"})
		return
	}
	if tok == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "token not found"})
		return
	}

	writeJSON(w, http.StatusOK, api.DeactivateTokenResponse{Token: tok.Token, Active: tok.Active})
}

func (s *AdminServer) handleListTokenEvents(w http.ResponseWriter, r *http.Request) {
	value := r.PathValue("token")

	tok, err := db.GetTokenByValue(s.DB, value)
	if err != nil {
		s.Logger.Error("lookup token failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "database error"})
		return
	}
	if tok == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "token not found"})
		return
	}

	s.listEvents(w, r, tok.ID)
}

func (s *AdminServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	s.listEvents(w, r, 0)
}

func (s *AdminServer) listEvents(w http.ResponseWriter, r *http.Request, tokenID int64) {
	page, per := pagination(r)

	events, err := db.ListEvents(s.DB, tokenID, page, per)
	if err != nil {
		s.Logger.Error("list events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "database error"})
		return
	}
	total, err := db.CountEvents(s.DB, tokenID)
	if err != nil {
		s.Logger.Error("count events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "database error"})
		return
	}

	resp := api.ListEventsResponse{
		Total:  total,
		Page:   page,
		Per:    per,
		Events: make([]api.EventInfo, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, eventInfo(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func eventInfo(e models.Event) api.EventInfo {
	headers := json.RawMessage(e.Headers)
	if !json.Valid(headers) {
		headers = json.RawMessage("[]")
	}
	return api.EventInfo{
		ID:               e.ID,
		TokenID:          e.TokenID,
		ReceivedAt:       formatTime(e.ReceivedAt),
		Method:           e.Method,
		Path:             e.Path,
		Query:            e.Query,
		Headers:          headers,
		BodyPreview:      e.BodyPreview,
		RemoteIP:         e.RemoteIP,
		ResolvedHostname: e.ResolvedHostname,
		Suspicious:       e.Suspicious,
		SuspicionReason:  e.SuspicionReason,
		TokenValid:       e.TokenValid,
	}
}

func pagination(r *http.Request) (page, per int) {
	page, per = 1, 50
	if v := r.URL.Query().Get("page"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			page = i
		}
	}
	if v := r.URL.Query().Get("per"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			per = i
		}
	}
	return page, per
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
