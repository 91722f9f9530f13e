package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	scopeCookieName = "portal_scope"
	scopeIssuer     = "easy-claim-buddy"
)

// scopeClaims binds a browser session to its scope id. The cookie has no
// Max-Age, so it dies with the browser session like tab storage would.
type scopeClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type CookieCodec struct {
	secret []byte
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

// NewCookieCodec signs scope cookies with secret. maxAge bounds how long a
// signed scope is honoured; zero disables the expiry claim.
func NewCookieCodec(secret string, secure bool, maxAge time.Duration) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), secure: secure, maxAge: maxAge, now: time.Now}
}

func (c *CookieCodec) Encode(scope string) (string, error) {
	now := c.now()
	claims := &scopeClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   scopeIssuer,
		},
	}
	if c.maxAge > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.maxAge))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *CookieCodec) Decode(value string) (string, error) {
	claims, err := c.decode(value)
	if err != nil {
		return "", err
	}
	return claims.Scope, nil
}

func (c *CookieCodec) decode(value string) (*scopeClaims, error) {
	token, err := jwt.ParseWithClaims(value, &scopeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*scopeClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid scope cookie")
	}
	if _, err := uuid.Parse(claims.Scope); err != nil {
		return nil, errors.New("invalid scope id")
	}
	return claims, nil
}

// stale reports whether less than half of maxAge is left on claims.
func (c *CookieCodec) stale(claims *scopeClaims) bool {
	if c.maxAge <= 0 || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(c.now()) < c.maxAge/2
}

// Scope returns the caller's scope, issuing a fresh one (and its cookie)
// when the request carries none or a tampered one. A valid cookie past half
// its lifetime is re-signed for the same scope.
func (c *CookieCodec) Scope(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(scopeCookieName); err == nil {
		if claims, err := c.decode(cookie.Value); err == nil {
			if !c.stale(claims) {
				return claims.Scope, nil
			}
			if err := c.issue(w, claims.Scope); err != nil {
				return "", err
			}
			return claims.Scope, nil
		}
	}
	scope := uuid.NewString()
	if err := c.issue(w, scope); err != nil {
		return "", err
	}
	return scope, nil
}

func (c *CookieCodec) issue(w http.ResponseWriter, scope string) error {
	value, err := c.Encode(scope)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     scopeCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
