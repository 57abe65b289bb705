package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer signs and verifies the bearer tokens the session layer uses
// to carry an Actor between requests. The core never reads tokens itself;
// this adapter exists so the session layer and the service agree on claims.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Claims is the JWT payload for an Actor.
type Claims struct {
	OrgID string   `json:"org_id,omitempty"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewTokenIssuer constructs an issuer for HS256 tokens.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if issuer = strings.TrimSpace(issuer); issuer == "" {
		return nil, errors.New("auth: token issuer is required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be greater than zero")
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the actor.
func (t *TokenIssuer) Issue(actor Actor) (string, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return "", errors.New("auth: actor user id is required")
	}
	now := t.now().UTC()
	tags := make([]string, len(actor.Roles))
	for i, r := range actor.Roles {
		tags[i] = string(r)
	}
	claims := Claims{
		OrgID: actor.OrgID,
		Roles: tags,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseActor verifies the token and reconstructs the Actor it carries.
func (t *TokenIssuer) ParseActor(token string) (Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Actor{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Actor{}, ErrInvalidToken
	}
	roles, err := ParseRoles(claims.Roles)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	return Actor{UserID: claims.Subject, OrgID: claims.OrgID, Roles: roles}, nil
}
