package server

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rsclarke/canaryd/internal/logging"
	"github.com/rsclarke/canaryd/internal/recorder"
)

// bodyReadLimit caps how much of a callback body is read before the preview
// bound applies.
const bodyReadLimit = 64 << 10

// CanaryServer serves the canary URLs. Every method on /c/{token} feeds the
// recorder; the response is an unremarkable 200 "ok" in all cases except a
// persistence failure, so an attacker-controlled fetch learns nothing from
// the reply.
type CanaryServer struct {
	Recorder *recorder.Recorder
	Logger   *zap.Logger
}

// ExtractToken pulls the token value out of a canary URL path of the form
// /c/{token} or /c/{token}/deeper/path.
func ExtractToken(path string) string {
	if !strings.HasPrefix(path, "/c/") {
		return ""
	}
	remaining := strings.TrimPrefix(path, "/c/")
	if slashIdx := strings.Index(remaining, "/"); slashIdx != -1 {
		remaining = remaining[:slashIdx]
	}
	return remaining
}

func (s *CanaryServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := ExtractToken(r.URL.Path)
	if token == "" {
		writeOK(w)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, bodyReadLimit))
	if err != nil {
		s.Logger.Warn("read body failed", zap.Error(err))
		body = nil
	}

	cb := &recorder.Callback{
		Token:        token,
		Method:       r.Method,
		Path:         r.URL.Path,
		Query:        r.URL.RawQuery,
		Headers:      r.Header,
		Body:         body,
		RemoteAddr:   r.RemoteAddr,
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
	}

	_, err = s.Recorder.RecordCallback(r.Context(), cb)
	switch {
	case err == nil:
	case err == recorder.ErrTokenNotFound:
		// Same response as a hit: unknown values must be
		// indistinguishable so tokens cannot be enumerated.
		s.Logger.Debug("unknown token", logging.Token(token))
	case err == recorder.ErrRateLimited:
		// Throttled silently; the 200 keeps the endpoint unremarkable.
	default:
		// Persistence failure: the event may be lost, so this is the one
		// case that surfaces as a server error.
		s.Logger.Error("record callback failed", logging.Token(token), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
