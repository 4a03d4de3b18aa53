package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthService struct {
	loginFn func(password, role, identifier string) (*models.SessionUser, error)
}

func (f *fakeAuthService) Login(password, role, identifier string) (*models.SessionUser, error) {
	return f.loginFn(password, role, identifier)
}

func (f *fakeAuthService) Verify(user *models.SessionUser) error      { return nil }
func (f *fakeAuthService) VerifyAdmin(user *models.SessionUser) error { return nil }

type fakeSessionStore struct {
	user      *models.SessionUser
	getErr    error
	setUser   *models.SessionUser
	saved     bool
	destroyed bool
}

func (f *fakeSessionStore) Get(r *http.Request) (*models.SessionUser, error) {
	return f.user, f.getErr
}

func (f *fakeSessionStore) Set(r *http.Request, user *models.SessionUser) error {
	f.setUser = user
	return nil
}

func (f *fakeSessionStore) Save(w http.ResponseWriter, r *http.Request) error {
	f.saved = true
	return nil
}

func (f *fakeSessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	f.destroyed = true
	return nil
}

func loginRequest(path, password string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader("password="+password))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestAdminLoginSuccess(t *testing.T) {
	sessionStore := &fakeSessionStore{}

	controller := NewAuthController(AuthControllerConfig{
		AuthService: &fakeAuthService{
			loginFn: func(password, role, identifier string) (*models.SessionUser, error) {
				assert.Equal(t, "secret", password)
				assert.Equal(t, models.RoleAdmin, role)
				assert.NotEmpty(t, identifier)

				return &models.SessionUser{UserID: role, Role: role, CreatedAt: time.Now(), IsLoggedIn: true}, nil
			},
		},
		SessionService: sessionStore,
	})

	rec := httptest.NewRecorder()
	controller.AdminLoginAction(rec, loginRequest("/api/auth/login", "secret"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["ok"])

	require.NotNil(t, sessionStore.setUser)
	assert.Equal(t, models.RoleAdmin, sessionStore.setUser.Role)
	assert.True(t, sessionStore.saved)
}

func TestViewerLoginUsesViewerRole(t *testing.T) {
	controller := NewAuthController(AuthControllerConfig{
		AuthService: &fakeAuthService{
			loginFn: func(password, role, identifier string) (*models.SessionUser, error) {
				assert.Equal(t, models.RoleViewer, role)
				return &models.SessionUser{Role: role, CreatedAt: time.Now(), IsLoggedIn: true}, nil
			},
		},
		SessionService: &fakeSessionStore{},
	})

	rec := httptest.NewRecorder()
	controller.ViewerLoginAction(rec, loginRequest("/api/auth/viewer", "secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginMissingPassword(t *testing.T) {
	controller := NewAuthController(AuthControllerConfig{
		AuthService: &fakeAuthService{
			loginFn: func(password, role, identifier string) (*models.SessionUser, error) {
				t.Fatal("login should not be attempted without a password")
				return nil, nil
			},
		},
		SessionService: &fakeSessionStore{},
	})

	rec := httptest.NewRecorder()
	controller.AdminLoginAction(rec, loginRequest("/api/auth/login", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	controller := NewAuthController(AuthControllerConfig{
		AuthService: &fakeAuthService{
			loginFn: func(password, role, identifier string) (*models.SessionUser, error) {
				return nil, models.ErrWrongPassword
			},
		},
		SessionService: &fakeSessionStore{},
	})

	rec := httptest.NewRecorder()
	controller.AdminLoginAction(rec, loginRequest("/api/auth/login", "wrong"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Incorrect password", body["error"])
}

func TestLoginRateLimited(t *testing.T) {
	resetAt := time.Now().Add(5 * time.Minute)

	controller := NewAuthController(AuthControllerConfig{
		AuthService: &fakeAuthService{
			loginFn: func(password, role, identifier string) (*models.SessionUser, error) {
				return nil, &models.RateLimitError{Limit: 5, ResetAt: resetAt}
			},
		},
		SessionService: &fakeSessionStore{},
	})

	rec := httptest.NewRecorder()
	controller.AdminLoginAction(rec, loginRequest("/api/auth/login", "secret"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "resetTime")
}

func TestLoginPasswordNotConfigured(t *testing.T) {
	controller := NewAuthController(AuthControllerConfig{
		AuthService: &fakeAuthService{
			loginFn: func(password, role, identifier string) (*models.SessionUser, error) {
				return nil, models.ErrPasswordNotConfigured
			},
		},
		SessionService: &fakeSessionStore{},
	})

	rec := httptest.NewRecorder()
	controller.ViewerLoginAction(rec, loginRequest("/api/auth/viewer", "secret"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	sessionStore := &fakeSessionStore{}

	controller := NewAuthController(AuthControllerConfig{
		AuthService:    &fakeAuthService{},
		SessionService: sessionStore,
	})

	rec := httptest.NewRecorder()
	controller.LogoutAction(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sessionStore.destroyed)
	assert.True(t, sessionStore.saved)
}
