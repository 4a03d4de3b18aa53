package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adampresley/photovault/cmd/website/internal/api"
	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services"
)

func newSessionMiddleware(sessionService services.SessionStorer, authService services.AuthServicer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				err         error
				sessionUser *models.SessionUser
			)

			if sessionUser, err = sessionService.Get(r); err != nil {
				api.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if err = authService.Verify(sessionUser); err != nil {
				api.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), "sessionUser", sessionUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAdminMiddleware(sessionService services.SessionStorer, authService services.AuthServicer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				err         error
				sessionUser *models.SessionUser
			)

			if sessionUser, err = sessionService.Get(r); err != nil {
				api.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if err = authService.VerifyAdmin(sessionUser); err != nil {
				if errors.Is(err, models.ErrForbidden) {
					api.WriteError(w, http.StatusForbidden, "Admin authentication required")
				} else {
					api.WriteError(w, http.StatusUnauthorized, "Authentication required")
				}

				return
			}

			ctx := context.WithValue(r.Context(), "sessionUser", sessionUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *responseRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

func newRequestLoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			slog.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
