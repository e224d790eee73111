package middleware

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	secretMu sync.RWMutex
	secret   = []byte("supersecret") // fallback
)

// Claims carries the authenticated user in a token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SetSecret sets the HMAC key used to sign and verify tokens.
func SetSecret(s string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = []byte(s)
}

func signingKey() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return secret
}

func GenerateToken(userID uint, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(72 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// ValidateToken parses a signed token and returns its claims.
func ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return signingKey(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearer(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

// authenticate validates the bearer token and stores its claims. It
// aborts the request and returns false when the token is missing or bad.
func authenticate(c *gin.Context) bool {
	tokenString, ok := bearer(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return false
	}

	claims, err := ValidateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	// Store claims in context for downstream handlers
	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
	return true
}

// RequireAuth ensures a valid JWT is present
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c) {
			c.Next()
		}
	}
}

// OptionalAuth stores the caller's identity when a valid token is sent and
// lets anonymous requests through.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearer(c); ok {
			if claims, err := ValidateToken(tokenString); err == nil {
				c.Set("user_id", claims.UserID)
				c.Set("role", claims.Role)
			}
		}
		c.Next()
	}
}

// RequireAuthWithRole ensures the JWT is valid and the user has one of roles
func RequireAuthWithRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c) {
			return
		}

		who, _ := CurrentUser(c)
		for _, r := range roles {
			if who.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// Identity is the caller as seen by handlers.
type Identity struct {
	UserID uint
	Role   string
}

// CurrentUser returns the caller stored by RequireAuth or OptionalAuth.
func CurrentUser(c *gin.Context) (Identity, bool) {
	id, ok := c.Get("user_id")
	if !ok {
		return Identity{}, false
	}
	userID, ok := id.(uint)
	if !ok {
		return Identity{}, false
	}
	role, _ := c.Get("role")
	roleStr, _ := role.(string)
	return Identity{UserID: userID, Role: roleStr}, true
}
