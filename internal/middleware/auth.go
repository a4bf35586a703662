// Package middleware holds gin middleware shared by the HTTP surface:
// JWT-asserted identity.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDContextKey = "user_id"

// JWTAuth parses an optional "Authorization: Bearer <token>" header,
// validates it against secret, and overrides the request's user_id with
// the token's subject claim. A request without a bearer token, or one
// carrying an invalid token when secret is empty (auth disabled),
// proceeds unauthenticated — /rag/query then falls back to the
// caller-supplied user_id field.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set(userIDContextKey, sub)
		}
		c.Next()
	}
}

// UserIDFromContext returns the JWT-asserted user_id, if JWTAuth set one.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
