package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) Create(ctx context.Context, email, name, passwordHash string) (*auth.User, error) {
	if s.user != nil && s.user.Email == email {
		return nil, auth.ErrEmailTaken
	}
	s.user = &auth.User{
		ID:           1,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	return s.user, nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) (*chi.Mux, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)

	handler := auth.NewHandler(slog.Default(), auth.NewService(repo), sessions)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, sessions
}

func hashedUser(t *testing.T, email, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Email: email, PasswordHash: string(hash), IsActive: true}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	user := hashedUser(t, "ana@example.com", "correcthorse")
	router, sessions := newAuthRouter(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"ana@example.com","password":"correcthorse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessions.CookieName() {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie must be set")
	require.NotEmpty(t, cookie.Value)
}

func TestLoginInvalidCredentials(t *testing.T) {
	user := hashedUser(t, "ana@example.com", "correcthorse")
	router, _ := newAuthRouter(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"ana@example.com","password":"wrongwrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	user := hashedUser(t, "ana@example.com", "correcthorse")
	user.IsActive = false
	router, _ := newAuthRouter(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"ana@example.com","password":"correcthorse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	user := hashedUser(t, "ana@example.com", "correcthorse")
	router, _ := newAuthRouter(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"ana@example.com","name":"Ana","password":"correcthorse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterAndLoginRoundTrip(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	body := strings.NewReader(`{"email":"bo@example.com","name":"Bo","password":"hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	body = strings.NewReader(`{"email":"bo@example.com","password":"hunter2hunter2"}`)
	req = httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
