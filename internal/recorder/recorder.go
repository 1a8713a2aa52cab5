// Package recorder implements the event-ingestion pipeline: admission,
// classification, enrichment, persistence, and alert hand-off.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rsclarke/canaryd/internal/alert"
	"github.com/rsclarke/canaryd/internal/classify"
	"github.com/rsclarke/canaryd/internal/db"
	"github.com/rsclarke/canaryd/internal/logging"
	"github.com/rsclarke/canaryd/internal/metrics"
	"github.com/rsclarke/canaryd/internal/models"
	"github.com/rsclarke/canaryd/internal/ratelimit"
)

var (
	// ErrTokenNotFound means the callback named a token that does not exist.
	// The HTTP layer answers generically so enumeration learns nothing.
	ErrTokenNotFound = errors.New("token not found")

	// ErrRateLimited means admission was rejected; nothing was persisted
	// and no alert fires.
	ErrRateLimited = errors.New("rate limited")
)

// HostnameResolver annotates an address with its reverse-DNS name.
type HostnameResolver interface {
	Lookup(ctx context.Context, address string) *string
}

// AlertSink accepts alerts for background delivery.
type AlertSink interface {
	Enqueue(a *alert.Alert) bool
}

// Config carries the recorder's policy knobs.
type Config struct {
	BodyPreviewBytes int
	// TrustProxy prefers the first X-Forwarded-For entry over the peer
	// address. Only trustworthy behind a controlled proxy.
	TrustProxy bool
	// EnrichAsync defers the reverse-DNS lookup to a background goroutine
	// that writes the hostname exactly once after the event is persisted.
	EnrichAsync bool
}

// Callback is one inbound request to a canary URL.
type Callback struct {
	Token        string
	Method       string
	Path         string
	Query        string
	Headers      http.Header
	Body         []byte
	RemoteAddr   string // transport peer, host:port
	ForwardedFor string // raw X-Forwarded-For value, may be empty
}

// Recorder orchestrates the ingestion pipeline.
type Recorder struct {
	db       *sql.DB
	limiter  *ratelimit.Limiter
	resolver HostnameResolver
	alerts   AlertSink
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func New(d *sql.DB, limiter *ratelimit.Limiter, resolver HostnameResolver, alerts AlertSink, cfg Config, logger *zap.Logger) *Recorder {
	if cfg.BodyPreviewBytes <= 0 {
		cfg.BodyPreviewBytes = 2048
	}
	return &Recorder{
		db:       d,
		limiter:  limiter,
		resolver: resolver,
		alerts:   alerts,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordCallback runs one callback through the pipeline and returns the
// persisted event. Expired or deactivated tokens still record an event,
// flagged via TokenValid, so a hit on a dead canary remains visible.
func (r *Recorder) RecordCallback(ctx context.Context, cb *Callback) (*models.Event, error) {
	tok, err := db.GetTokenByValue(r.db, cb.Token)
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if tok == nil {
		return nil, ErrTokenNotFound
	}

	now := r.now()
	remoteIP := r.remoteIP(cb)

	if !r.limiter.Admit(ratelimit.Key(tok.Token, remoteIP)) {
		metrics.RateLimited.Inc()
		r.logger.Debug("callback rate limited",
			logging.Token(tok.Token), logging.RemoteIP(remoteIP))
		return nil, ErrRateLimited
	}

	verdict := classify.Classify(remoteIP)

	event := &models.Event{
		TokenID:     tok.ID,
		ReceivedAt:  now.Unix(),
		Method:      cb.Method,
		Path:        cb.Path,
		Query:       cb.Query,
		Headers:     encodeHeaders(cb.Headers),
		BodyPreview: truncate(cb.Body, r.cfg.BodyPreviewBytes),
		RemoteIP:    remoteIP,
		Suspicious:  verdict.Suspicious,
		TokenValid:  tok.Usable(now.Unix()),
	}
	if verdict.Reason != "" {
		reason := verdict.Reason
		event.SuspicionReason = &reason
	}

	if !r.cfg.EnrichAsync {
		event.ResolvedHostname = r.resolver.Lookup(ctx, remoteIP)
	}

	if err := db.CreateEvent(r.db, event); err != nil {
		r.logger.Error("persist event failed",
			logging.Token(tok.Token),
			logging.Method(cb.Method),
			logging.Path(cb.Path),
			logging.RemoteIP(remoteIP),
			zap.Bool("suspicious", event.Suspicious),
			zap.Error(err))
		return nil, fmt.Errorf("persist event: %w", err)
	}

	metrics.EventsRecorded.WithLabelValues(fmt.Sprintf("%t", event.Suspicious)).Inc()
	r.logger.Info("event recorded",
		logging.EventID(event.ID),
		logging.Token(tok.Token),
		logging.Method(cb.Method),
		logging.RemoteIP(remoteIP),
		zap.Bool("suspicious", event.Suspicious),
		zap.Bool("token_valid", event.TokenValid))

	if r.cfg.EnrichAsync {
		go r.enrichLater(event.ID, remoteIP)
	}

	if event.Suspicious {
		r.alerts.Enqueue(buildAlert(tok, event))
	}

	return event, nil
}

// enrichLater performs the deferred reverse-DNS lookup. The resolver bounds
// its own runtime, so a fresh background context is fine here.
func (r *Recorder) enrichLater(eventID int64, remoteIP string) {
	hostname := r.resolver.Lookup(context.Background(), remoteIP)
	if hostname == nil {
		return
	}
	if err := db.SetEventHostname(r.db, eventID, *hostname); err != nil {
		r.logger.Warn("store resolved hostname failed",
			logging.EventID(eventID), zap.Error(err))
	}
}

func (r *Recorder) remoteIP(cb *Callback) string {
	if r.cfg.TrustProxy && cb.ForwardedFor != "" {
		first := cb.ForwardedFor
		if idx := strings.Index(first, ","); idx != -1 {
			first = first[:idx]
		}
		if trimmed := strings.TrimSpace(first); trimmed != "" {
			return trimmed
		}
	}
	if host, _, err := net.SplitHostPort(cb.RemoteAddr); err == nil {
		return host
	}
	return cb.RemoteAddr
}

func buildAlert(tok *models.Token, e *models.Event) *alert.Alert {
	reason := ""
	if e.SuspicionReason != nil {
		reason = *e.SuspicionReason
	}
	return &alert.Alert{
		Token:            tok.Token,
		Owner:            tok.Owner,
		EventID:          e.ID,
		ReceivedAt:       time.Unix(e.ReceivedAt, 0).UTC().Format(time.RFC3339),
		Method:           e.Method,
		Path:             e.Path,
		RemoteIP:         e.RemoteIP,
		ResolvedHostname: e.ResolvedHostname,
		SuspicionReason:  reason,
		TokenValid:       e.TokenValid,
		BodyPreview:      e.BodyPreview,
	}
}

type headerEntry struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// encodeHeaders serialises headers as a JSON array of name/values pairs in
// sorted-key order. net/http exposes headers as a map, so wire order is
// unavailable; sorted order keeps the encoding stable across decodes.
func encodeHeaders(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]headerEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, headerEntry{Name: name, Values: h[name]})
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate bounds the stored body preview and repairs any UTF-8 sequence
// cut by the byte limit.
func truncate(body []byte, limit int) string {
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.ToValidUTF8(string(body), "�")
}
