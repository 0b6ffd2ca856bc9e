package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetClientFromContext(r.Context())))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"greenhouse": "k-123"})(okHandler())

	tests := []struct {
		name   string
		path   string
		header map[string]string
		status int
		body   string
	}{
		{name: "bearer", path: "/v1/plants", header: map[string]string{"Authorization": "Bearer k-123"}, status: http.StatusOK, body: "greenhouse"},
		{name: "x-api-key", path: "/v1/plants", header: map[string]string{"X-API-Key": "k-123"}, status: http.StatusOK, body: "greenhouse"},
		{name: "missing", path: "/v1/plants", status: http.StatusUnauthorized},
		{name: "wrong", path: "/v1/plants", header: map[string]string{"Authorization": "Bearer nope"}, status: http.StatusUnauthorized},
		{name: "health is open", path: "/health", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plants", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddleware_RecordsAuthenticatedClient(t *testing.T) {
	logger := log.Log.(*log.Logger)
	prev := logger.Handler
	h := memory.New()
	logger.Handler = h
	defer func() { logger.Handler = prev }()

	chain := LoggingMiddleware(APIKeyAuth(map[string]string{"greenhouse": "k-123"})(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/v1/plants", nil)
	req.Header.Set("X-API-Key", "k-123")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/plants", nil))

	require.Len(t, h.Entries, 2)
	assert.Equal(t, "greenhouse", h.Entries[0].Fields["client"])
	assert.Equal(t, http.StatusOK, h.Entries[0].Fields["status"])
	_, ok := h.Entries[1].Fields["client"]
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, h.Entries[1].Fields["status"])
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 2, rl.Sweep())
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(NewRateLimiter(1, 1))(okHandler())

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusOK, send("/v1/plants").Code)
	rec := send("/v1/plants")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, send("/health").Code)
}

func TestResponseWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	h := LoggingMiddleware(MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("data: x\n\n"))
		f.Flush()
	})))
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyze", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, rec.Flushed)
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"slot": &SlotHealthChecker{
			Slot:    slotFunc(func(context.Context) ([]byte, error) { return nil, plants.ErrSlotEmpty }),
			IsEmpty: func(err error) bool { return errors.Is(err, plants.ErrSlotEmpty) },
		},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	down := HealthHandler(map[string]HealthChecker{
		"redis": CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

type slotFunc func(context.Context) ([]byte, error)

func (f slotFunc) Read(ctx context.Context) ([]byte, error) { return f(ctx) }

func TestAnalyzeForm(t *testing.T) {
	lat, lon, bad := 48.85, 2.35, 123.0
	valid := func() AnalyzeForm {
		return AnalyzeForm{MIMEType: "image/jpeg", ImageSize: 1024, Sunlight: "partial-shade", Watering: "weekly"}
	}

	f := valid()
	f.Latitude, f.Longitude = &lat, &lon
	f.Notes = "  repotted\x00 last week "
	require.NoError(t, f.Validate())
	assert.Equal(t, "repotted last week", f.Notes)
	env := f.Environment()
	require.NotNil(t, env)
	require.NotNil(t, env.Location)
	assert.Equal(t, 48.85, env.Location.Latitude)

	tests := []struct {
		name   string
		mutate func(f *AnalyzeForm)
	}{
		{name: "sunlight", mutate: func(f *AnalyzeForm) { f.Sunlight = "moonlight" }},
		{name: "watering", mutate: func(f *AnalyzeForm) { f.Watering = "hourly" }},
		{name: "mime", mutate: func(f *AnalyzeForm) { f.MIMEType = "application/pdf" }},
		{name: "empty image", mutate: func(f *AnalyzeForm) { f.ImageSize = 0 }},
		{name: "latitude range", mutate: func(f *AnalyzeForm) { f.Latitude, f.Longitude = &bad, &lon }},
		{name: "half location", mutate: func(f *AnalyzeForm) { f.Latitude = &lat }},
		{name: "both targets", mutate: func(f *AnalyzeForm) { f.PlantID, f.PlantName = "abc", "Basil" }},
		{name: "plant id format", mutate: func(f *AnalyzeForm) { f.PlantID = "../etc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(&f)
			assert.ErrorIs(t, f.Validate(), plants.ErrInvalidArgument)
		})
	}
}

func TestAnalyzeForm_NoEnvironment(t *testing.T) {
	f := AnalyzeForm{MIMEType: "image/png", ImageSize: 10}
	require.NoError(t, f.Validate())
	assert.Nil(t, f.Environment())
}
