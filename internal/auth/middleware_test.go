package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "classtrack-test"
)

func authedRouter(seen *Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secure", UserAuth(testKey, testIssuer), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		*seen = claims
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(CtxUserID)})
	})
	return r
}

func TestUserAuthExposesClaims(t *testing.T) {
	tokens, err := Issue("student-7", "user", testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)

	var seen Claims
	r := authedRouter(&seen)
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-7", seen.Subject)
	assert.Contains(t, w.Body.String(), "student-7")
}

func TestUserAuthRejectsMissingAndBadTokens(t *testing.T) {
	var seen Claims
	r := authedRouter(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := Issue("student-7", "user", "someone-else", testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+other.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "issuer mismatch")
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tokens, err := Issue("student-7", "user", testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(tokens.RefreshToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, "student-7", claims.Subject)
	assert.Equal(t, "user", claims.Role)

	// A refreshed access token installs cleanly into a session.
	renewed, err := Issue(claims.Subject, claims.Role, testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	session := NewTokenSession(testKey, testIssuer)
	require.NoError(t, session.SetToken(renewed.AccessToken))
	assert.True(t, session.Ready())
	assert.Equal(t, "student-7", session.UserID())
}
