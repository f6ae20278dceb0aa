package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func doRequest(mw http.Handler, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.Response {
	t.Helper()
	var resp model.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestRateLimitMiddleware_GlobalBurst(t *testing.T) {
	ResetVisitors()
	SetParamKey("city")
	mw := RateLimitMiddleware(okHandler())
	ip := "1.2.3.4:1234"
	_, burst := config.GetGlobalRateLimiterConfig()

	// distinct params so only the global bucket drains
	for i := 0; i < burst; i++ {
		w := doRequest(mw, fmt.Sprintf("/series?city=city%d", i), ip)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := doRequest(mw, "/series?city=another", ip)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeError(t, w)
	assert.Contains(t, *resp.Error, "Rate limit exceeded")
	assert.Equal(t, "Too Many Requests (global limit)", resp.Message)
}

func TestRateLimitMiddleware_PerParamBurst(t *testing.T) {
	ResetVisitors()
	SetParamKey("city")
	mw := RateLimitMiddleware(okHandler())
	ip := "2.3.4.5:2345"
	_, burst := config.GetParamRateLimiterConfig()

	for i := 0; i < burst; i++ {
		w := doRequest(mw, "/series?city=dallas", ip)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	// the key is normalized, so a differently cased city shares the bucket
	w := doRequest(mw, "/series?city=Dallas", ip)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeError(t, w)
	assert.Contains(t, *resp.Error, "per unique city")
	assert.Equal(t, "Too Many Requests (per-param limit)", resp.Message)

	// other cities are unaffected
	w = doRequest(mw, "/series?city=omaha", ip)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_SeparateIPs(t *testing.T) {
	ResetVisitors()
	SetParamKey("city")
	mw := RateLimitMiddleware(okHandler())
	_, burst := config.GetParamRateLimiterConfig()

	for i := 0; i < burst; i++ {
		require.Equal(t, http.StatusOK, doRequest(mw, "/compare", "3.3.3.3:1").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(mw, "/compare", "3.3.3.3:1").Code)
	assert.Equal(t, http.StatusOK, doRequest(mw, "/compare", "4.4.4.4:1").Code)
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		expected   string
	}{
		{"Remote addr with port", "", "10.0.0.1:5555", "10.0.0.1"},
		{"Remote addr without port", "", "10.0.0.1", "10.0.0.1"},
		{"Forwarded header wins", "203.0.113.7, 10.0.0.1", "10.0.0.1:5555", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.expected, getIP(req))
		})
	}
}

func TestCleanupVisitors(t *testing.T) {
	ResetVisitors()
	getGlobalLimiter("5.5.5.5")
	getParamLimiter("5.5.5.5", "dallas")

	assert.Equal(t, 0, cleanupVisitors(time.Hour))

	muGlobal.Lock()
	globalVisitors["5.5.5.5"].lastSeen = time.Now().Add(-2 * time.Hour)
	muGlobal.Unlock()
	muParam.Lock()
	paramVisitors["5.5.5.5"]["dallas"].lastSeen = time.Now().Add(-2 * time.Hour)
	muParam.Unlock()

	assert.Equal(t, 2, cleanupVisitors(time.Hour))

	muParam.Lock()
	_, ok := paramVisitors["5.5.5.5"]
	muParam.Unlock()
	assert.False(t, ok, "empty ip maps are removed")
}

func TestStartRateLimiterCleanup_Stops(t *testing.T) {
	stop := make(chan struct{})
	StartRateLimiterCleanup(stop)
	close(stop)
}
