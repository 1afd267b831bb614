package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	pkgredis "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayHeader           = "Idempotent-Replay"
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	pendingClaimTTL        = 2 * time.Minute
)

const (
	recordPending   = "pending"
	recordCompleted = "completed"
)

// idempotencyRecord is stored under the scoped key. A pending record is the
// claim taken before the handler runs; Owner lets only that request settle it.
type idempotencyRecord struct {
	State       string `json:"state"`
	Owner       string `json:"owner,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Idempotency guards mutating routes against client retries. Standard keeps
// records for the configured window; Critical is for money-moving steps.
type Idempotency struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewIdempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{store: store, ttl: ttl, logg: logg}
}

func (i *Idempotency) Standard(next http.Handler) http.Handler { return i.guard(i.ttl, next) }

func (i *Idempotency) Critical(next http.Handler) http.Handler {
	return i.guard(criticalIdempotencyTTL, next)
}

func (i *Idempotency) guard(ttl time.Duration, next http.Handler) http.Handler {
	if i == nil || i.store == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if id == "" {
			responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeValidation, idempotencyHeader+" header required"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		key := i.store.IdempotencyKey(scopeFor(r), id)
		claim := idempotencyRecord{State: recordPending, Owner: uuid.NewString(), RequestHash: hashBody(body)}
		won, err := i.store.SetNX(ctx, key, mustMarshal(claim), pendingClaimTTL)
		if err != nil {
			responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
			return
		}
		if !won {
			i.answerExisting(w, r, key, claim.RequestHash)
			return
		}

		rec := &responseCapture{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		i.settle(r, key, claim, rec, ttl)
	})
}

// answerExisting handles a key someone already claimed.
func (i *Idempotency) answerExisting(w http.ResponseWriter, r *http.Request, key, requestHash string) {
	ctx := r.Context()
	stored, err := i.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// the claim expired or was released between SetNX and Get
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is in progress, retry"))
		return
	case err != nil:
		responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != requestHash:
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State == recordPending:
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is in progress, retry"))
	default:
		replay(w, record)
	}
}

// settle turns the claim into a completed record. Server failures release the
// claim instead so the client can retry with the same key.
func (i *Idempotency) settle(r *http.Request, key string, claim idempotencyRecord, rec *responseCapture, ttl time.Duration) {
	ctx := r.Context()
	status := defaultStatus(rec.status)
	if status >= http.StatusInternalServerError {
		if _, err := i.store.ReleaseIfOwner(ctx, key, mustMarshal(claim)); err != nil {
			i.warn(r, "release idempotency claim", err)
		}
		return
	}

	done := idempotencyRecord{
		State:       recordCompleted,
		RequestHash: claim.RequestHash,
		Status:      status,
		ContentType: rec.Header().Get("Content-Type"),
		Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
	}
	ok, err := i.store.ReplaceIfOwner(ctx, key, mustMarshal(claim), mustMarshal(done), ttl)
	switch {
	case err != nil:
		i.warn(r, "store idempotency record", err)
	case !ok:
		i.warn(r, "idempotency claim lost before completion", nil)
	}
}

func (i *Idempotency) warn(r *http.Request, msg string, err error) {
	if i.logg == nil {
		return
	}
	ctx := i.logg.WithField(r.Context(), "path", r.URL.Path)
	if err != nil {
		ctx = i.logg.WithField(ctx, "error", err.Error())
	}
	i.logg.Warn(ctx, msg)
}

func replay(w http.ResponseWriter, record idempotencyRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// scopeFor keys records per actor and concrete path, so the same client key
// on two different requests never collides.
func scopeFor(r *http.Request) string {
	actor, _ := ActorFromContext(r.Context())
	return strings.Join([]string{actor.UserID.String(), string(actor.Role), r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func mustMarshal(record idempotencyRecord) string {
	raw, _ := json.Marshal(record)
	return string(raw)
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
