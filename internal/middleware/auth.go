// Package middleware содержит HTTP middleware бэк-офиса.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liamroyal/etsy-software/internal/model"
)

type contextKey string

const userKey contextKey = "user"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour
)

// ErrInvalidToken возвращается, если токен не прошёл проверку.
var ErrInvalidToken = errors.New("invalid auth token")

// TokenVerifier проверяет bearer-токен внешнего провайдера идентификации.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*model.User, error)
}

// AuthMiddleware выполняет проверку аутентификации пользователя по
// подписанному cookie или bearer-токену.
type AuthMiddleware struct {
	secretKey []byte
	verifier  TokenVerifier
}

// NewAuthMiddleware создаёт AuthMiddleware с указанным секретным ключом.
// verifier может быть nil: тогда принимается только cookie.
func NewAuthMiddleware(secret string, verifier TokenVerifier) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		verifier:  verifier,
	}
}

// Middleware проверяет учётные данные и добавляет пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.authenticate(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *AuthMiddleware) authenticate(r *http.Request) (*model.User, bool) {
	if token, ok := bearerToken(r); ok {
		if a.verifier == nil {
			return nil, false
		}
		user, err := a.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			return nil, false
		}
		return user, true
	}

	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return nil, false
	}
	return a.parseCookie(cookie.Value)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SetAuthCookie устанавливает cookie авторизации для пользователя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, user *model.User) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.signUser(user),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type cookiePayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Значение cookie: base64url(JSON) + "." + hex(HMAC-SHA256).
func (a *AuthMiddleware) signUser(user *model.User) string {
	// Маршалинг структуры из строк не возвращает ошибку.
	raw, _ := json.Marshal(cookiePayload{ID: user.ID, Email: user.Email, Role: string(user.Role)})
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + a.sign(payload)
}

func (a *AuthMiddleware) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(value string) (*model.User, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return nil, false
	}

	if !hmac.Equal([]byte(signature), []byte(a.sign(payload))) {
		return nil, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}

	var p cookiePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return nil, false
	}

	return &model.User{
		ID:    p.ID,
		Email: p.Email,
		Role:  model.ParseRole(p.Role),
	}, true
}

// WithUser возвращает контекст с аутентифицированным пользователем.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext извлекает пользователя из контекста запроса.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}
