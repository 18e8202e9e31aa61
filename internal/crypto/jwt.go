package crypto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTTL is the lifetime of a session token.
	TokenTTL = 30 * 24 * time.Hour

	tokenIssuer   = "bolingo"
	tokenAudience = "bolingo-api"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrEmptySecret  = errors.New("token signing secret must not be empty")
)

// Subject identifies the user a session token was issued to.
type Subject struct {
	ID    string
	Email string
}

// Claims represents the JWT claims of a Bolingo session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer signs and verifies session tokens with a process-wide HMAC secret.
// Tokens are stateless; there is no way to revoke one before it expires.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. now may be nil, in which case time.Now is used.
func NewTokenIssuer(secret string, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), now: now}, nil
}

// Issue creates a signed token for the subject that expires TokenTTL from now.
func (i *TokenIssuer) Issue(sub Subject) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.ID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: sub.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses and validates a token, returning its subject.
// Expired tokens yield ErrTokenExpired, every other failure ErrTokenInvalid.
func (i *TokenIssuer) Verify(tokenString string) (Subject, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		// Expiry is only reported once the signature has been checked.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Subject{}, ErrTokenExpired
		}
		return Subject{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Subject{}, ErrTokenInvalid
	}

	return Subject{ID: claims.Subject, Email: claims.Email}, nil
}
