package authapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/photovault/cmd/website/internal/api"
	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/ratelimit"
	"github.com/adampresley/photovault/pkg/services"
)

type AuthHandlers interface {
	AdminLoginAction(w http.ResponseWriter, r *http.Request)
	ViewerLoginAction(w http.ResponseWriter, r *http.Request)
	LogoutAction(w http.ResponseWriter, r *http.Request)
}

type AuthControllerConfig struct {
	AuthService    services.AuthServicer
	SessionService services.SessionStorer
}

type AuthController struct {
	authService    services.AuthServicer
	sessionService services.SessionStorer
}

func NewAuthController(config AuthControllerConfig) AuthController {
	return AuthController{
		authService:    config.AuthService,
		sessionService: config.SessionService,
	}
}

/*
POST /api/auth/login
*/
func (c AuthController) AdminLoginAction(w http.ResponseWriter, r *http.Request) {
	c.login(w, r, models.RoleAdmin)
}

/*
POST /api/auth/viewer
*/
func (c AuthController) ViewerLoginAction(w http.ResponseWriter, r *http.Request) {
	c.login(w, r, models.RoleViewer)
}

func (c AuthController) login(w http.ResponseWriter, r *http.Request, role string) {
	var (
		err  error
		user *models.SessionUser
	)

	password := httphelpers.GetFromRequest[string](r, "password")

	if password == "" {
		api.WriteError(w, http.StatusBadRequest, "Invalid password")
		return
	}

	identifier := ratelimit.Identifier(r)
	user, err = c.authService.Login(password, role, identifier)

	if err != nil {
		var rateLimitErr *models.RateLimitError

		switch {
		case errors.As(err, &rateLimitErr):
			w.Header().Set("X-RateLimit-Limit", fmt.Sprint(rateLimitErr.Limit))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprint(rateLimitErr.ResetAt.Unix()))
			api.WriteJson(w, http.StatusTooManyRequests, map[string]any{
				"error":     "Too many login attempts. Please try again later.",
				"resetTime": rateLimitErr.ResetAt.UnixMilli(),
			})

		case errors.Is(err, models.ErrWrongPassword):
			api.WriteError(w, http.StatusUnauthorized, "Incorrect password")

		case errors.Is(err, models.ErrPasswordNotConfigured):
			api.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("%s password is not configured", role))

		default:
			slog.Error("error during login", "role", role, "error", err)
			api.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}

		return
	}

	if err = c.sessionService.Set(r, user); err != nil {
		slog.Error("error setting session", "role", role, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	if err = c.sessionService.Save(w, r); err != nil {
		slog.Error("error saving session", "role", role, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]bool{"ok": true})
}

/*
POST /api/auth/logout
*/
func (c AuthController) LogoutAction(w http.ResponseWriter, r *http.Request) {
	_ = c.sessionService.Destroy(w, r)
	_ = c.sessionService.Save(w, r)

	api.WriteJson(w, http.StatusOK, map[string]bool{"ok": true})
}
