// Package auth issues and checks API tokens. A token is an HS256 JWT whose
// subject is the profile id. A profile's public key is accepted as a bearer
// token too, for scripts that cannot mint JWTs.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

const issuer = "autoblog"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

// Issuer signs and verifies profile tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret disables JWTs; only profile
// keys are accepted then.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for the profile
func (i *Issuer) Issue(profileID uuid.UUID) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoSecret
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:   issuer,
		Subject:  profileID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", eris.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// ProfileIDFromToken verifies the token and returns its subject
func (i *Issuer) ProfileIDFromToken(tokenString string) (uuid.UUID, error) {
	if len(i.secret) == 0 {
		return uuid.Nil, ErrNoSecret
	}
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return uuid.Nil, ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return uuid.Nil, eris.Wrap(ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, eris.Wrap(ErrInvalidToken, "subject is not a profile id")
	}
	return id, nil
}

// LooksLikeJWT reports whether s has the three dot-separated JWT segments
func LooksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2
}
