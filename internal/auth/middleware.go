package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by UserAuth for downstream handlers and middleware.
const (
	CtxClaims = "claims"
	CtxUserID = "user_id"
)

// UserAuth enforces bearer JWT tokens signed with HS256 and exposes the
// caller's identity on the request context. Rate limiting and the session
// endpoints key on CtxUserID.
func UserAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(CtxClaims, claims)
		c.Set(CtxUserID, claims.Subject)
		c.Next()
	}
}

// ClaimsFrom returns the claims UserAuth stored on the context, if any.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
