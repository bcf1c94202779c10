// jwt.go provides an optional JWT bearer-token caller-identity extractor.
// This service has no login/register endpoints of its own — it only parses
// tokens issued by whatever upstream system the caller trusts, using the
// shared JWT_SECRET. It works alongside API-key auth; neither is required.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const jwtClaimsContextKey contextKey = "jwt_claims"

// CallerClaims is the subset of a bearer token's claims we care about:
// enough to key rate limiting and job attribution by subject.
type CallerClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// ParseJWT validates and parses a JWT token string.
func ParseJWT(tokenString, secret string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CallerClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// JWTIdentity returns middleware that parses a Bearer token, if present,
// into the request context. Like APIKeyAuth, a missing or invalid token is
// not an error — it just leaves caller identity unresolved at this layer.
func JWTIdentity(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := ParseJWT(tokenString, jwtSecret)
		if err != nil {
			c.Next()
			return
		}

		c.Set(string(jwtClaimsContextKey), claims)
		c.Next()
	}
}

// GetJWTClaims retrieves the parsed bearer-token claims from the request
// context, or nil if none were present/valid.
func GetJWTClaims(c *gin.Context) *CallerClaims {
	val, exists := c.Get(string(jwtClaimsContextKey))
	if !exists {
		return nil
	}
	claims, ok := val.(*CallerClaims)
	if !ok {
		return nil
	}
	return claims
}
