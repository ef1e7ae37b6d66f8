package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped on every token this server signs.
const Issuer = "bhishak-med"

// Token type discriminators.
const (
	TypePatient        = "patient"
	TypePatientRefresh = "patient_refresh"
	TypeAdmin          = "admin"
)

var (
	ErrNoToken        = errors.New("auth: missing or malformed token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrWrongTokenType = errors.New("auth: unexpected token type")
)

// TypedClaims are JWT claims carrying a type discriminator.
type TypedClaims interface {
	jwt.Claims
	TokenType() string
	registered() *jwt.RegisteredClaims
}

// Signer signs and verifies HS256 tokens with a single shared secret.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSigner(key []byte, ttl time.Duration) *Signer {
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of tokens signed by s.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign stamps issuer, issued-at, expiry and a token id onto claims and
// returns the compact token with its expiry.
func (s *Signer) Sign(claims TypedClaims) (string, time.Time, error) {
	now := s.now()
	rc := claims.registered()
	rc.Issuer = Issuer
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, rc.ExpiresAt.Time, nil
}

// Parse verifies tokenStr into claims and checks the discriminator against
// want. The returned error is one of ErrNoToken, ErrTokenExpired,
// ErrInvalidToken or ErrWrongTokenType.
func (s *Signer) Parse(tokenStr string, claims TypedClaims, want string) error {
	if tokenStr == "" {
		return ErrNoToken
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil && token.Valid:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrNoToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrInvalidToken
	}

	if claims.TokenType() != want {
		return ErrWrongTokenType
	}
	return nil
}
