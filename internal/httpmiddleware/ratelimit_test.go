package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"classtrack/internal/auth"
)

func limitedRouter(l *UserRateLimiter, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if userID != "" {
		r.Use(func(c *gin.Context) {
			c.Set(auth.CtxUserID, userID)
			c.Next()
		})
	}
	r.Use(l.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestLimiterSeparatesUsersBehindOneIP(t *testing.T) {
	l := NewUserRateLimiter(1, 1)
	alice := limitedRouter(l, "alice")
	bob := limitedRouter(l, "bob")

	assert.Equal(t, http.StatusOK, hit(alice, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(bob, "10.0.0.1"), "same IP, own budget")
	assert.Equal(t, http.StatusTooManyRequests, hit(alice, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(alice, "10.0.0.2"), "user key wins over IP")
}

func TestLimiterFallsBackToIP(t *testing.T) {
	l := NewUserRateLimiter(1, 1)
	anon := limitedRouter(l, "")

	assert.Equal(t, http.StatusOK, hit(anon, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(anon, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit(anon, "10.0.0.2"), "other IP unaffected")
}

func TestLimiterRefillsOverTime(t *testing.T) {
	l := NewUserRateLimiter(1, 60)
	assert.True(t, l.allow("user:carol"))
	assert.False(t, l.allow("user:carol"))

	l.mu.Lock()
	l.state["user:carol"].last = time.Now().Add(-time.Minute)
	l.mu.Unlock()

	assert.True(t, l.allow("user:carol"), "a minute refills the bucket")
}

func TestLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewUserRateLimiter(1, 1)
	assert.True(t, l.allow("user:old"))

	l.mu.Lock()
	l.state["user:old"].last = time.Now().Add(-idleEvict - time.Minute)
	l.mu.Unlock()

	assert.True(t, l.allow("user:new"))

	l.mu.Lock()
	_, stillThere := l.state["user:old"]
	l.mu.Unlock()
	assert.False(t, stillThere, "idle bucket dropped when a new caller arrives")
}
