package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte(GetClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"garage": "secret"})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "garage", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	now := tb.lastRefill
	assert.True(t, tb.allowAt(now))
	assert.True(t, tb.allowAt(now))
	assert.False(t, tb.allowAt(now))
	assert.False(t, tb.allowAt(now.Add(500*time.Millisecond)))
	assert.True(t, tb.allowAt(now.Add(1100*time.Millisecond)))
}

func TestRateLimitPerClientIP(t *testing.T) {
	rl := NewRateLimiter(1, 0.001)
	defer rl.Close()
	h := RateLimit(rl)(okHandler)

	do := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusTeapot, do("/api/", "10.0.0.1:1111"))
	assert.Equal(t, http.StatusTooManyRequests, do("/api/", "10.0.0.1:2222"))
	assert.Equal(t, http.StatusTeapot, do("/api/", "10.0.0.2:1111"))
	assert.Equal(t, http.StatusTeapot, do("/health", "10.0.0.1:1111"))
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Logging(zap.New(core))(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-audio", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "/api/analyze-audio", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "203.0.113.9", fields["ip"])
}

func TestMetricsCountAnalyses(t *testing.T) {
	before := GetMetrics()["analyses_total"].(uint64)
	AnalysisStarted()
	AnalysisFinished("brake_squeal", false)
	m := GetMetrics()
	assert.Equal(t, before+1, m["analyses_total"].(uint64))
	assert.GreaterOrEqual(t, m["analyses_by_category"].(map[string]uint64)["brake_squeal"], uint64(1))
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{
		"ok":  CheckFunc(func(context.Context) error { return nil }),
		"bad": CheckFunc(func(context.Context) error { return errors.New("down") }),
	}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"down"`)
}

func TestValidateAudioUpload(t *testing.T) {
	wav := testutil.SineWAV(t, 440, 0.1, 8000, 1)

	ct, err := ValidateAudioUpload("audio/wav", nil)
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", ct)

	ct, err = ValidateAudioUpload("application/octet-stream", wav)
	require.NoError(t, err)
	assert.Equal(t, "audio/x-wav", ct)

	ct, err = ValidateAudioUpload("", wav)
	require.NoError(t, err)
	assert.NotEmpty(t, ct)

	_, err = ValidateAudioUpload("text/plain", wav)
	assert.ErrorIs(t, err, diagnosis.ErrNotAudio)

	_, err = ValidateAudioUpload("application/octet-stream", []byte("hello"))
	assert.ErrorIs(t, err, diagnosis.ErrNotAudio)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateAnalysisID("6f1c2d3e-4b5a-4c6d-8e7f-9a0b1c2d3e4f"))
	assert.Error(t, ValidateAnalysisID("abc"))
	assert.Error(t, ValidateAnalysisID(""))

	c, err := ValidateCategory("engine_knock")
	require.NoError(t, err)
	assert.Equal(t, diagnosis.CategoryEngineKnock, c)
	_, err = ValidateCategory("flat_tire")
	assert.Error(t, err)

	assert.Equal(t, "clip.wav", SanitizeFileName(`C:\Users\me\clip.wav`))
	assert.Equal(t, "clip.wav", SanitizeFileName("../../clip.wav"))
	assert.Len(t, SanitizeFileName(strings.Repeat("a", 300)), 255)

	// 128 two-byte runes: byte 255 is a continuation byte
	long := SanitizeFileName(strings.Repeat("é", 128) + ".wav")
	assert.True(t, utf8.ValidString(long))
	assert.Len(t, long, 254)
	assert.Equal(t, strings.Repeat("é", 127), long)
	assert.Equal(t, 100, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, 7, ValidateDays(-1))
}

func TestReadinessFollowsCheckers(t *testing.T) {
	down := map[string]HealthChecker{"db": CheckFunc(func(context.Context) error { return errors.New("refused") })}
	rec := httptest.NewRecorder()
	ReadinessHandler(down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}
