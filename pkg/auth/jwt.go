package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired is returned for tokens whose signature verifies but whose
	// expiry has passed. Callers branch on this to produce a different
	// user-facing message than for tampered tokens.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers malformed tokens and bad signatures.
	ErrInvalid = errors.New("invalid token")
)

type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Reset bool   `json:"reset,omitempty"`
	jwt.RegisteredClaims
}

// New signs a token carrying the account id, email, role and the optional
// reset marker. TTL is parameterized per use-case: 10 minutes for password
// reset, 24 hours for sessions, and a ~100 year sentinel for first-time
// verification links.
func New(sub, email, role string, reset bool, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:   sub,
		Email: email,
		Role:  role,
		Reset: reset,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens unique even when two are minted for the
			// same subject within one second.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"cardlink-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse verifies the signature and expiry and returns the decoded claims.
// Expired tokens yield ErrExpired, everything else ErrInvalid.
func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
