package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/iurnickita/coursebot/internal/handler/config"
)

type Auth interface {
	IssueToken(adminID int64) (string, time.Time, error)
	AdminID(token string) (int64, error)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	HeaderAdminIDKey = "X-Admin-Id"
	bearerPrefix     = "Bearer "
)

var (
	ErrNoSecret     = errors.New("admin jwt secret is not set")
	ErrInvalidToken = errors.New("invalid token")
)

type Claims struct {
	jwt.RegisteredClaims
	AdminID int64 `json:"admin_id"`
}

type auth struct {
	secret []byte
	ttl    time.Duration
}

func NewAuth(cfg config.Config) (Auth, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &auth{secret: []byte(cfg.JWTSecret), ttl: ttl}, nil
}

// IssueToken выдаёт токен админского API. Право на выдачу проверяет вызывающий.
func (a *auth) IssueToken(adminID int64) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(a.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(adminID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		AdminID: adminID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *auth) AdminID(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.AdminID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.AdminID, nil
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		adminID, err := a.AdminID(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
			return
		}

		// записываем, клиентское значение заголовка перетирается
		r.Header.Set(HeaderAdminIDKey, strconv.FormatInt(adminID, 10))

		h.ServeHTTP(w, r)
	}
}
