package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tutorhub/class-engine/internal/response"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"

	// TokenTypeStaff marks tokens issued to school staff by the auth service.
	TokenTypeStaff = "staff"
)

// Claims are the staff token claims issued by the school's auth service.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   string   `json:"token_type"`
	UserID      int      `json:"user_id"`
	BranchIDs   []int    `json:"branch_ids,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the token grants code.
func (c *Claims) HasPermission(code string) bool {
	for _, p := range c.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// CanSeeBranch reports whether the staff member works at branchID.
// An empty branch list means every branch.
func (c *Claims) CanSeeBranch(branchID int) bool {
	if len(c.BranchIDs) == 0 {
		return true
	}
	for _, id := range c.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}

// TokenVerifier checks HS256 staff tokens against a shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a TokenVerifier for secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses tokenStr and returns its claims.
func (v *TokenVerifier) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// RequireStaffJWT validates a staff JWT from the Authorization header.
func RequireStaffJWT(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		authorize(c, verifier, tokenStr)
	}
}

// RequireStaffWSAuth validates a staff JWT from the query param ?token=...
// Used for WebSocket upgrade requests.
func RequireStaffWSAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		authorize(c, verifier, tokenStr)
	}
}

func authorize(c *gin.Context, verifier *TokenVerifier, tokenStr string) {
	claims, err := verifier.Verify(tokenStr)
	if err != nil {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}
	if claims.TokenType != TokenTypeStaff {
		response.AbortFail(c, http.StatusForbidden, response.ErrStaffAccessOnly)
		return
	}

	c.Set(ContextKeyClaims, claims)
	c.Next()
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// ActorID returns the staff id of the caller, or 0 outside an authenticated route.
func ActorID(c *gin.Context) int {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
