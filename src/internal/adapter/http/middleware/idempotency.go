package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 128
	maxIdempotentBodyBytes  = 1 << 20
	defaultInFlightTTL      = 30 * time.Second
)

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Idempotency replays the first response for a repeated Idempotency-Key from
// the same caller. It must run after BasicAuth so the key is scoped per user.
// Reusing a key with a different request body is refused with 422.
type Idempotency struct {
	client      redis.Cmdable
	ttl         time.Duration
	inFlightTTL time.Duration
}

func NewIdempotency(client redis.Cmdable, ttl time.Duration) *Idempotency {
	return &Idempotency{
		client:      client,
		ttl:         ttl,
		inFlightTTL: defaultInFlightTTL,
	}
}

func (m *Idempotency) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if m == nil || m.client == nil || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s cannot exceed %d characters", IdempotencyKeyHeader, maxIdempotencyKeyLength))
			return
		}

		caller, ok := CallerFrom(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fingerprint := fingerprintBody(body)

		ctx := r.Context()
		base := fmt.Sprintf("idempotency:%d:%s %s:%s", caller.UserID, r.Method, r.URL.Path, key)
		responseKey := base + ":response"
		lockKey := base + ":lock"
		fields := logger.Fields{
			"userId":         caller.UserID,
			"idempotencyKey": key,
			"path":           r.URL.Path,
		}

		stored, found, err := m.load(ctx, responseKey)
		if err != nil {
			logger.Error("idempotency lookup failed", err, fields)
			writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
			return
		}
		if found {
			serveStored(w, stored, fingerprint, fields)
			return
		}

		acquired, err := m.client.SetNX(ctx, lockKey, RequestIDFrom(ctx), m.inFlightTTL).Result()
		if err != nil {
			logger.Error("idempotency lock failed", err, fields)
			writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
			return
		}
		if !acquired {
			logger.Info("idempotency request in flight", fields)
			writeError(w, http.StatusConflict, "a request with this Idempotency-Key is already in progress")
			return
		}
		defer m.client.Del(context.WithoutCancel(ctx), lockKey)

		// The first request may have stored its response and released the
		// lock between the lookup above and SetNX.
		stored, found, err = m.load(ctx, responseKey)
		if err != nil {
			logger.Error("idempotency lookup failed", err, fields)
			writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
			return
		}
		if found {
			serveStored(w, stored, fingerprint, fields)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Server errors are not cached so the client may retry them.
		if rec.status >= http.StatusInternalServerError {
			return
		}

		payload, err := json.Marshal(storedResponse{
			Fingerprint: fingerprint,
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			logger.Error("idempotency encode response failed", err, fields)
			return
		}
		if err := m.client.Set(context.WithoutCancel(ctx), responseKey, payload, m.ttl).Err(); err != nil {
			logger.Error("idempotency store response failed", err, fields)
		}
	})
}

func (m *Idempotency) load(ctx context.Context, key string) (storedResponse, bool, error) {
	raw, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return storedResponse{}, false, nil
	}
	if err != nil {
		return storedResponse{}, false, err
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return storedResponse{}, false, fmt.Errorf("decode idempotent response: %w", err)
	}
	return stored, true, nil
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func serveStored(w http.ResponseWriter, stored storedResponse, fingerprint string, fields logger.Fields) {
	if stored.Fingerprint != fingerprint {
		logger.Info("idempotency key reused with a different body", fields)
		writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request body")
		return
	}
	logger.Info("idempotency replay", fields)
	replay(w, stored)
}

func replay(w http.ResponseWriter, stored storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(IdempotencyReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
