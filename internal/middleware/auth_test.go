package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/liamroyal/etsy-software/internal/model"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatalf("user not in context")
		}
		if user.ID != "u42" || user.Email != "ops@example.com" || !user.IsAdmin() {
			t.Fatalf("user from context = %+v", user)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, &model.User{ID: "u42", Email: "ops@example.com", Role: model.RoleAdmin})
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ForeignSignature(t *testing.T) {
	other := NewAuthMiddleware("other-secret", nil)
	m := NewAuthMiddleware("test-secret", nil)

	w := httptest.NewRecorder()
	other.SetAuthCookie(w, &model.User{ID: "u1", Role: model.RoleAdmin})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(w.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

type stubIDTokenVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubIDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	verifier := NewFirebaseVerifier(&stubIDTokenVerifier{
		token: &firebaseauth.Token{
			UID: "fb-1",
			Claims: map[string]interface{}{
				"email": "staff@example.com",
			},
		},
	})
	m := NewAuthMiddleware("test-secret", verifier)

	var got *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatalf("next handler was not called")
	}
	if got.ID != "fb-1" || got.Email != "staff@example.com" || got.Role != model.RoleUser {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestAuthMiddleware_BearerWithoutVerifier(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestFirebaseVerifier(t *testing.T) {
	tests := []struct {
		name     string
		token    *firebaseauth.Token
		err      error
		wantRole model.Role
		wantErr  bool
	}{
		{
			name:     "admin claim",
			token:    &firebaseauth.Token{UID: "a", Claims: map[string]interface{}{"role": "admin"}},
			wantRole: model.RoleAdmin,
		},
		{
			name:     "unknown role falls back to user",
			token:    &firebaseauth.Token{UID: "b", Claims: map[string]interface{}{"role": "owner"}},
			wantRole: model.RoleUser,
		},
		{
			name:    "verification error",
			err:     errors.New("signature mismatch"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFirebaseVerifier(&stubIDTokenVerifier{token: tt.token, err: tt.err})
			user, err := v.VerifyToken(context.Background(), "token")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyToken error: %v", err)
			}
			if user.Role != tt.wantRole {
				t.Fatalf("role = %q, want %q", user.Role, tt.wantRole)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "user", user: &model.User{ID: "u", Role: model.RoleUser}, want: http.StatusForbidden},
		{name: "admin", user: &model.User{ID: "a", Role: model.RoleAdmin}, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.user != nil {
				r = r.WithContext(WithUser(r.Context(), tt.user))
			}
			w := httptest.NewRecorder()

			RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/products", nil)
	r = r.WithContext(WithUser(r.Context(), &model.User{ID: "u", Role: model.RoleUser}))

	allowed := httptest.NewRecorder()
	RequirePermission(model.PermissionViewProducts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(allowed, r)
	if allowed.Code != http.StatusNoContent {
		t.Fatalf("view products status = %d, want %d", allowed.Code, http.StatusNoContent)
	}

	denied := httptest.NewRecorder()
	RequirePermission(model.PermissionManageOrders)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(denied, r)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("manage orders status = %d, want %d", denied.Code, http.StatusForbidden)
	}
}

func TestAuthMiddleware_CookieKeepsSeparatorsInFields(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)
	want := &model.User{ID: "u|7", Email: "ops|admin@example.com", Role: model.RoleUser}

	w := httptest.NewRecorder()
	m.SetAuthCookie(w, want)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	var got *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(cookies[0])
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatalf("next handler was not called")
	}
	if got.ID != want.ID || got.Email != want.Email || got.Role != want.Role {
		t.Fatalf("user from cookie = %+v, want %+v", got, want)
	}
}
