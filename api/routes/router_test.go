package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/controllers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/notifications"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/offers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/requests"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/auth"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/maps"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryIdempotency struct{ data map[string]string }

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotency) ReplaceIfOwner(_ context.Context, key, owner, value string, _ time.Duration) (bool, error) {
	if m.data[key] != owner {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memoryIdempotency) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.data[key] != owner {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type stubRequests struct {
	requests.Service
	created []types.Actor
}

func (s *stubRequests) CreateRequest(_ context.Context, actor types.Actor, _ requests.CreateInput) (*models.OrderRequest, error) {
	s.created = append(s.created, actor)
	return &models.OrderRequest{ID: uuid.New()}, nil
}

type stubOffers struct {
	offers.Service
	accepted int
}

func (s *stubOffers) AcceptOffer(_ context.Context, _ types.Actor, _, offerID uuid.UUID) (*models.Offer, error) {
	s.accepted++
	return &models.Offer{ID: offerID, Status: enums.OfferStatusApproved}, nil
}

type stubNotifications struct {
	notifications.Service
}

func (stubNotifications) UnreadCounts(context.Context, types.Actor) (notifications.Counts, error) {
	return notifications.Counts{OrderRequests: 2, PersonalArea: 2}, nil
}

type harness struct {
	handler  http.Handler
	requests *stubRequests
	offers   *stubOffers
	cfg      *config.Config
}

type stubPlaces struct{}

func (stubPlaces) Autocomplete(_ context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error) {
	return []maps.AutocompleteSuggestion{{PlaceID: "place_1", Description: req.Input + ", Springfield"}}, nil
}

func (stubPlaces) ResolvePlace(context.Context, string) (*maps.PlaceDetails, error) {
	return nil, nil
}

func newHarness(t *testing.T, ready map[string]controllers.Pinger) *harness {
	t.Helper()
	cfg := &config.Config{
		App:       config.AppConfig{Env: "test"},
		JWT:       config.JWTConfig{Secret: "secret", Issuer: "partsmarket", ExpirationMinutes: 30},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Eventing:  config.EventingConfig{HTTPIdempotencyTTL: time.Hour},
		GCS:       config.GCSConfig{MaxUploadMB: 1},
	}
	reg := prometheus.NewRegistry()
	h := &harness{requests: &stubRequests{}, offers: &stubOffers{}, cfg: cfg}
	h.handler = NewRouter(Dependencies{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Ready:         ready,
		Idempotency:   &memoryIdempotency{data: map[string]string{}},
		Gatherer:      reg,
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Requests:      h.requests,
		Offers:        h.offers,
		Notifications: stubNotifications{},
		Address:       address.NewService(stubPlaces{}),
	})
	return h
}

func (h *harness) token(t *testing.T, roles ...enums.Role) string {
	t.Helper()
	token, err := auth.NewVerifier(h.cfg.JWT).Mint(time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Roles: roles})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func (h *harness) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}})
	if resp := h.do(http.MethodGet, "/health/live", "", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("live expected 200 got %d", resp.Code)
	}
	if resp := h.do(http.MethodGet, "/health/ready", "", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("ready expected 200 got %d", resp.Code)
	}

	down := newHarness(t, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("down")}})
	if resp := down.do(http.MethodGet, "/health/ready", "", "", nil); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with a failing dependency expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpointExportsRequestCounters(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/health/live", "", "", nil)
	resp := h.do(http.MethodGet, "/metrics", "", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "http_requests_total") {
		t.Fatalf("expected http_requests_total in metrics output")
	}
}

func TestCreateOrderRequestRoute(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"address":{"line1":"1 Main","city":"Springfield","lat":1,"lng":2},"lineItems":[{"productId":"` + uuid.NewString() + `","quantity":2}]}`

	resp := h.do(http.MethodPost, "/api/v1/order-requests", "", body, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	resp = h.do(http.MethodPost, "/api/v1/order-requests", h.token(t, enums.RoleSeller), body, map[string]string{"Idempotency-Key": "k1"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller got %d", resp.Code)
	}

	buyer := h.token(t, enums.RoleBuyer)
	resp = h.do(http.MethodPost, "/api/v1/order-requests", buyer, body, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	resp = h.do(http.MethodPost, "/api/v1/order-requests", buyer, body, map[string]string{"Idempotency-Key": "k2"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Data struct {
			OrderRequestID uuid.UUID `json:"orderRequestId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.OrderRequestID == uuid.Nil {
		t.Fatalf("expected an order request id")
	}
	if len(h.requests.created) != 1 || h.requests.created[0].Role != enums.RoleBuyer {
		t.Fatalf("expected one create as buyer, got %+v", h.requests.created)
	}
}

func TestCreateOrderRequestRejectsInvalidBody(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.do(http.MethodPost, "/api/v1/order-requests", h.token(t, enums.RoleBuyer), `{"lineItems":[]}`, map[string]string{"Idempotency-Key": "k"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(h.requests.created) != 0 {
		t.Fatalf("service must not be called")
	}
}

func TestAcceptOfferReplaysOnRetry(t *testing.T) {
	h := newHarness(t, nil)
	buyer := h.token(t, enums.RoleBuyer)
	path := "/api/v1/order-requests/" + uuid.NewString() + "/offers/" + uuid.NewString() + "/accept"

	first := h.do(http.MethodPost, path, buyer, "", map[string]string{"Idempotency-Key": "accept-1"})
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", first.Code, first.Body.String())
	}
	second := h.do(http.MethodPost, path, buyer, "", map[string]string{"Idempotency-Key": "accept-1"})
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed response, got %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("replayed response should be marked")
	}
	if h.offers.accepted != 1 {
		t.Fatalf("accept should run once, ran %d", h.offers.accepted)
	}
}

func TestMultiRoleTokenSelectsRole(t *testing.T) {
	h := newHarness(t, nil)
	token := h.token(t, enums.RoleBuyer, enums.RoleSeller)

	if resp := h.do(http.MethodGet, "/api/v1/notifications/unread-count", token, "", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without role got %d", resp.Code)
	}
	resp := h.do(http.MethodGet, "/api/v1/notifications/unread-count?role=seller", token, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var payload struct {
		Data notifications.Counts `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.PersonalArea != 2 {
		t.Fatalf("unexpected counts %+v", payload.Data)
	}
}

func TestViewRejectsUnknownFilter(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.do(http.MethodGet, "/api/v1/order-requests/"+uuid.NewString()+"?filterBy=color", h.token(t, enums.RoleBuyer), "", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddressSuggestRoute(t *testing.T) {
	h := newHarness(t, nil)
	token := h.token(t, enums.RoleBuyer)

	rec := h.do(http.MethodGet, "/api/v1/addresses/suggest?q=12+Main", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"place_id":"place_1"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = h.do(http.MethodGet, "/api/v1/addresses/suggest", token, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", rec.Code)
	}
}
