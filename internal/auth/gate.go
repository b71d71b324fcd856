// Package auth proves that a caller controls a wallet address and issues
// the bearer tokens that guard every game action.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued session token stays valid
const DefaultTokenTTL = 24 * time.Hour

const issuer = "blackjack-wallet"

// ErrUnauthorized covers every failed check. It deliberately carries no detail.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError reports a malformed request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Claims is the payload of a session token
type Claims struct {
	jwt.RegisteredClaims
	Identity string `json:"identity"`
}

// Gate verifies wallet signatures and issues/validates session tokens.
// It keeps no state besides its signing secret.
type Gate struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewGate creates a gate signing tokens with secret. A zero ttl means DefaultTokenTTL.
func NewGate(secret string, ttl time.Duration) (*Gate, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Gate{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// IssueChallengeResponse verifies that signature over message was produced by
// identity and mints a session token for it.
func (g *Gate) IssueChallengeResponse(identity, message, signature string) (string, error) {
	canonical, err := VerifySignature(identity, message, signature)
	if err != nil {
		return "", err
	}
	return g.issueToken(canonical)
}

func (g *Gate) issueToken(identity string) (string, error) {
	now := g.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
		Identity: identity,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authorize validates token and checks that it was issued to claimedIdentity.
// It returns the canonical identity to key the caller's session with.
func (g *Gate) Authorize(token, claimedIdentity string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	claimed, err := CanonicalIdentity(claimedIdentity)
	if err != nil {
		return "", ErrUnauthorized
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}

	if !strings.EqualFold(claims.Identity, claimed) {
		return "", ErrUnauthorized
	}
	return claimed, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(header string) string {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
