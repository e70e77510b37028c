package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoCookie = errors.New("session cookie missing or invalid")

// Claims é o conteúdo assinado do cookie: Subject = user id, Token = token opaco da sessão
type Claims struct {
	Token string `json:"tok"`
	jwt.RegisteredClaims
}

// CookieCodec assina e lê o cookie de sessão (HS256)
type CookieCodec struct {
	Name   string
	Secret []byte
	Secure bool
	TTL    time.Duration
}

func (c CookieCodec) Encode(userID, token string, now time.Time) (*http.Cookie, error) {
	exp := now.Add(c.TTL)
	claims := Claims{
		Token: token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "betting-engine",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign session cookie: %w", err)
	}
	return &http.Cookie{
		Name:     c.Name,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode devolve user id e token; assinatura inválida ou expirada vira ErrNoCookie
func (c CookieCodec) Decode(r *http.Request) (userID, token string, err error) {
	ck, err := r.Cookie(c.Name)
	if err != nil || ck.Value == "" {
		return "", "", ErrNoCookie
	}
	parsed, err := jwt.ParseWithClaims(ck.Value, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.Secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoCookie, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", "", ErrNoCookie
	}
	return claims.Subject, claims.Token, nil
}

// Clear devolve o cookie que apaga a sessão no navegador
func (c CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
