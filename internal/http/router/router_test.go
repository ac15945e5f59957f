package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/acculynx"
	"github.com/ridgeline-exteriors/booking-api/internal/auth"
	"github.com/ridgeline-exteriors/booking-api/internal/config"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/http/handler"
	"github.com/ridgeline-exteriors/booking-api/internal/http/middleware"
	"github.com/ridgeline-exteriors/booking-api/internal/http/router"
	"github.com/ridgeline-exteriors/booking-api/internal/metrics"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"github.com/ridgeline-exteriors/booking-api/internal/service"
	"github.com/ridgeline-exteriors/booking-api/internal/storage"
	"github.com/ridgeline-exteriors/booking-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testAPIKey        = "system-key-123"
	testJWTSecret     = "jwt-secret-for-router-tests"
	testWebhookSecret = "whsec-router"
)

type apiFixture struct {
	db      *gorm.DB
	crm     *testutil.FakeAccuLynx
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	crm := testutil.NewFakeAccuLynx(t)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		App:       config.AppConfig{Name: "booking-api", Environment: "test"},
		Auth:      config.AuthConfig{APIKey: testAPIKey, JWTSecret: testJWTSecret},
		Security:  config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	client := acculynx.NewClient(acculynx.Config{
		BaseURL:      crm.URL(),
		APIKey:       crm.APIKey,
		LeadSourceID: "lead-source-web",
		StateID:      47,
		CountryID:    1,
		Timeout:      5 * time.Second,
	}, logger)

	m := metrics.New()
	orders := repository.NewOrderRepository(db)
	photos := repository.NewPhotoRepository(db)
	profiles := repository.NewProfileRepository(db)
	addresses := repository.NewAddressRepository(db)

	contacts := service.NewContactService(profiles, client, logger)
	uploads := service.NewPhotoUploadService(orders, photos, store, client, m, logger)
	jobs := service.NewJobSyncService(orders, addresses, contacts, client, uploads, m, logger)
	retry := service.NewSyncRetryService(orders, jobs, uploads, m, logger)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), logger)
	webhooks := service.NewWebhookService(testWebhookSecret, orders, repository.NewWebhookLogRepository(db), notifier, m, logger)

	rt := router.NewRouter(
		cfg,
		logger,
		db,
		m,
		auth.NewMiddleware(&cfg.Auth, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handler.NewWebhookHandler(webhooks, logger),
		handler.NewSyncHandler(orders, photos, jobs, retry, logger),
	)

	return &apiFixture{db: db, crm: crm, handler: rt.Setup()}
}

func (f *apiFixture) do(t *testing.T, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID uuid.UUID) map[string]string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func system() map[string]string {
	return map[string]string{"x-api-key": testAPIKey}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = f.do(t, http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, w)["status"])

	w = f.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestWebhookEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	profile := testutil.CreateTestProfile(t, f.db)
	order := testutil.CreateTestOrder(t, f.db, profile.UserID, nil, testutil.WithJobID("job-77"))
	secret := map[string]string{"x-webhook-secret": testWebhookSecret, "Content-Type": "application/json"}
	path := "/api/v1/webhooks/acculynx"

	tests := []struct {
		name    string
		headers map[string]string
		body    string
		code    int
		want    string
	}{
		{"missing secret", nil, `{"job_id":"job-77","milestone_type":"APPROVED"}`, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong secret", map[string]string{"x-webhook-secret": "nope"}, `{}`, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"malformed json", secret, `{"job_id":`, http.StatusBadRequest, `{"error":"Invalid JSON payload"}`},
		{"missing fields", secret, `{"job_id":"job-77"}`, http.StatusBadRequest, `{"error":"Missing job_id or milestone_type"}`},
		{"unknown job", secret, `{"job_id":"job-404","milestone_type":"APPROVED"}`, http.StatusNotFound, `{"error":"Order not found"}`},
		{"approved", secret, `{"job_id":"job-77","milestone_type":"APPROVED"}`, http.StatusOK, `{"success":true,"status":"in_progress"}`},
		{"completed", secret, `{"job_id":"job-77","milestone_type":"COMPLETED"}`, http.StatusOK, `{"success":true,"status":"job_complete"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, path, tt.body, tt.headers)
			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}

	assert.Equal(t, domain.OrderStatusJobComplete, testutil.ReloadOrder(t, f.db, order.ID).Status)
}

func TestWebhookEndpoint_OversizedBody(t *testing.T) {
	f := newAPIFixture(t)
	headers := map[string]string{"x-webhook-secret": testWebhookSecret, "Content-Type": "application/json"}
	body := `{"job_id":"job-77","milestone_type":"APPROVED","padding":"` + strings.Repeat("x", 70<<10) + `"}`

	w := f.do(t, http.MethodPost, "/api/v1/webhooks/acculynx", body, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON payload"}`, w.Body.String())

	var count int64
	require.NoError(t, f.db.Model(&domain.WebhookLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncEndpoints(t *testing.T) {
	t.Run("owner triggers the first sync", func(t *testing.T) {
		f := newAPIFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)

		w := f.do(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/sync", "", bearer(t, profile.UserID))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		dto := decode[domain.OrderSyncDTO](t, w)
		assert.Equal(t, order.ID, dto.OrderID)
		assert.Equal(t, domain.SyncStatusSubmitted, dto.SyncStatus)
		assert.Equal(t, "job-2", dto.AccuLynxJobID)
		assert.Equal(t, "contact-1", dto.AccuLynxContactID)
		assert.Empty(t, dto.LastSyncError)

		w = f.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String()+"/sync", "", bearer(t, profile.UserID))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "job-2", decode[domain.OrderSyncDTO](t, w).AccuLynxJobID)
	})

	t.Run("CRM rejection is reported in the body", func(t *testing.T) {
		f := newAPIFixture(t)
		f.crm.SetJobStatus(http.StatusUnprocessableEntity)
		profile := testutil.CreateTestProfile(t, f.db)
		address := testutil.CreateTestAddress(t, f.db, profile.UserID)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, address)

		w := f.do(t, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/sync", "", system())
		require.Equal(t, http.StatusOK, w.Code)

		dto := decode[domain.OrderSyncDTO](t, w)
		assert.Equal(t, domain.SyncStatusFailed, dto.SyncStatus)
		assert.Equal(t, domain.SyncErrorRejected, dto.LastSyncErrorCode)
		assert.NotEmpty(t, dto.LastSyncError)
		assert.False(t, strings.HasPrefix(dto.LastSyncError, "["))
	})

	t.Run("other users' orders look missing", func(t *testing.T) {
		f := newAPIFixture(t)
		profile := testutil.CreateTestProfile(t, f.db)
		order := testutil.CreateTestOrder(t, f.db, profile.UserID, nil)

		w := f.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String()+"/sync", "", bearer(t, uuid.New()))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, f.crm.Jobs())
	})

	t.Run("rejects bad ids and missing credentials", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid/sync", "", system())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Equal(t, "Must be a valid UUID", apiErr.Errors["id"])

		w = f.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/sync", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = f.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/sync", "", system())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRetrySweepEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	profile := testutil.CreateTestProfile(t, f.db)
	address := testutil.CreateTestAddress(t, f.db, profile.UserID)
	order := testutil.CreateTestOrder(t, f.db, profile.UserID, address,
		testutil.WithSyncState(domain.SyncStatusFailed, 0, nil),
	)

	w := f.do(t, http.MethodPost, "/api/v1/sync/retry", "", bearer(t, profile.UserID))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/sync/retry", "", system())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sweep := decode[domain.RetrySweepDTO](t, w)
	assert.Equal(t, 1, sweep.Candidates)
	assert.Equal(t, 1, sweep.Succeeded)
	require.Len(t, sweep.Results, 1)
	assert.Equal(t, order.ID, sweep.Results[0].OrderID)
	assert.Equal(t, domain.RetryOutcomeSuccess, sweep.Results[0].Outcome)

	saved := testutil.ReloadOrder(t, f.db, order.ID)
	assert.Equal(t, domain.SyncStatusSubmitted, saved.SyncStatus)
	assert.Equal(t, 1, saved.SyncAttempts)
}
