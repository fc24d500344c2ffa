package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	visitorCookieName = "storefront_visitor"
	visitorIssuer     = "storefront"
	visitorTTL        = 365 * 24 * time.Hour
	minSecretLength   = 16
)

// VisitorIssuer identifies anonymous visitors with an HS256-signed cookie
// whose subject is a random UUID.
type VisitorIssuer struct {
	secret []byte
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

// NewVisitorIssuer requires a secret of at least 16 bytes.
func NewVisitorIssuer(secret string, secureCookie bool) (*VisitorIssuer, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretLength {
		return nil, errors.New("visitor secret must be at least 16 bytes")
	}
	return &VisitorIssuer{
		secret: []byte(secret),
		secure: secureCookie,
		ttl:    visitorTTL,
		now:    time.Now,
	}, nil
}

// Resolve returns the visitor id carried by the request cookie. A missing,
// tampered or expired cookie is replaced by a freshly issued one.
func (v *VisitorIssuer) Resolve(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(visitorCookieName); err == nil {
		if id, err := v.parse(c.Value); err == nil {
			return id, nil
		}
	}
	id := uuid.NewString()
	token, err := v.sign(id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(v.ttl.Seconds()),
		HttpOnly: true,
		Secure:   v.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (v *VisitorIssuer) sign(visitorID string) (string, error) {
	now := v.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   visitorID,
		Issuer:    visitorIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *VisitorIssuer) parse(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty visitor token")
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(visitorIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid visitor token")
		}
		return "", err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", errors.New("visitor subject is not a uuid")
	}
	return id.String(), nil
}
