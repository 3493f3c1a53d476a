// Package auth guards the control surface's write endpoints with a bearer
// token plus an optional TOTP step-up for the halt endpoint — halting a
// live trading engine is the one control action worth a second factor.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Guard issues and validates bearer tokens for the control API, and
// validates a TOTP code for step-up actions.
type Guard struct {
	signingKey   []byte
	secretHash   []byte // bcrypt hash of the pre-shared operator credential
	totpSecret   string // base32 TOTP seed; empty disables the step-up check
	tokenTTL     time.Duration
}

// NewGuard builds a Guard. operatorSecret is the pre-shared credential used
// to mint tokens (hashed with bcrypt, never stored in the clear);
// totpSecret is the base32 TOTP seed, or "" to skip the second factor.
func NewGuard(signingKey, operatorSecret, totpSecret string) (*Guard, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(operatorSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Guard{
		signingKey: []byte(signingKey),
		secretHash: hash,
		totpSecret: totpSecret,
		tokenTTL:   12 * time.Hour,
	}, nil
}

// IssueToken mints a bearer token for the given presented operator secret,
// verified against the bcrypt hash.
func (g *Guard) IssueToken(presentedSecret string) (string, error) {
	if bcrypt.CompareHashAndPassword(g.secretHash, []byte(presentedSecret)) != nil {
		return "", ErrBadCredential
	}
	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(g.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(g.signingKey)
}

func (g *Guard) parseAndValidate(raw string) error {
	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return g.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err
}

// RequireBearer is a Gin middleware rejecting requests without a valid
// "Authorization: Bearer <token>" header.
func (g *Guard) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(h, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if err := g.parseAndValidate(strings.TrimPrefix(h, prefix)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// RequireTOTP validates the "X-TOTP-Code" header against the configured
// seed. When no TOTP seed is configured the step-up is skipped (returns
// true) — operators may run without a second factor in development.
func (g *Guard) RequireTOTP(c *gin.Context) bool {
	if g.totpSecret == "" {
		return true
	}
	code := c.GetHeader("X-TOTP-Code")
	if code == "" {
		return false
	}
	return totp.Validate(code, g.totpSecret)
}

// ConstantTimeEqual is used where a raw string compare would leak timing
// information, e.g. comparing a presented API key outside the bcrypt path.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type errString string

func (e errString) Error() string { return string(e) }

const ErrBadCredential = errString("auth: credential rejected")
