package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/photovault/cmd/website/internal/api"
	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/ratelimit"
	"github.com/adampresley/photovault/pkg/services"
)

const maxMultipartMemory = 32 << 20

type AdminHandlers interface {
	CsrfTokenAction(w http.ResponseWriter, r *http.Request)
	GetAlbumsAction(w http.ResponseWriter, r *http.Request)
	CreateAlbumAction(w http.ResponseWriter, r *http.Request)
	UpdateAlbumAction(w http.ResponseWriter, r *http.Request)
	DeleteAlbumAction(w http.ResponseWriter, r *http.Request)
	UploadPhotosAction(w http.ResponseWriter, r *http.Request)
	DeletePhotoAction(w http.ResponseWriter, r *http.Request)
}

type AdminControllerConfig struct {
	AlbumService   services.AlbumServicer
	AuthService    services.AuthServicer
	CsrfService    services.CsrfServicer
	PhotoService   services.PhotoServicer
	RateLimiter    ratelimit.Store
	SessionService services.SessionStorer
}

type AdminController struct {
	albumService   services.AlbumServicer
	authService    services.AuthServicer
	csrfService    services.CsrfServicer
	photoService   services.PhotoServicer
	rateLimiter    ratelimit.Store
	sessionService services.SessionStorer
}

func NewAdminController(config AdminControllerConfig) AdminController {
	return AdminController{
		albumService:   config.AlbumService,
		authService:    config.AuthService,
		csrfService:    config.CsrfService,
		photoService:   config.PhotoService,
		rateLimiter:    config.RateLimiter,
		sessionService: config.SessionService,
	}
}

/*
requireAdmin re-verifies the session straight from the cookie. The admin
middleware already gates these routes, but middleware can be bypassed by
routing-layer mistakes, so no handler trusts it.
*/
func (c AdminController) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user, err := c.sessionService.Get(r)

	if err != nil {
		api.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}

	if err = c.authService.VerifyAdmin(user); err != nil {
		if errors.Is(err, models.ErrForbidden) {
			api.WriteError(w, http.StatusForbidden, "Admin authentication required")
		} else {
			api.WriteError(w, http.StatusUnauthorized, "Authentication required")
		}

		return false
	}

	return true
}

func (c AdminController) requireCsrf(w http.ResponseWriter, r *http.Request) bool {
	if !c.csrfService.Verify(r, r.Header.Get("X-Csrf-Token")) {
		api.WriteError(w, http.StatusForbidden, "Invalid CSRF token")
		return false
	}

	return true
}

func (c AdminController) checkRateLimit(w http.ResponseWriter, r *http.Request, keyPrefix string, max int, window time.Duration) bool {
	result, err := c.rateLimiter.Check(keyPrefix+":"+ratelimit.Identifier(r), max, window)

	if err != nil {
		slog.Error("error checking rate limit. allowing request", "keyPrefix", keyPrefix, "error", err)
		return true
	}

	if !result.Allowed {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprint(max))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprint(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(result.ResetAt.Unix()))

		api.WriteJson(w, http.StatusTooManyRequests, map[string]any{
			"error":     "Too many requests. Please try again later.",
			"resetTime": result.ResetAt.UnixMilli(),
		})

		return false
	}

	return true
}

/*
GET /api/admin/csrf
*/
func (c AdminController) CsrfTokenAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	token := c.csrfService.Issue(w)
	api.WriteJson(w, http.StatusOK, map[string]string{"csrfToken": token})
}

/*
GET /api/admin/albums
*/
func (c AdminController) GetAlbumsAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	albums, err := c.albumService.GetAlbums()

	if err != nil {
		slog.Error("error getting albums", "error", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to load albums")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{"albums": albums})
}

/*
POST /api/admin/albums
*/
func (c AdminController) CreateAlbumAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	if !c.checkRateLimit(w, r, "album-ops", ratelimit.AlbumOpsMaxRequests, ratelimit.AlbumOpsWindow) {
		return
	}

	if !c.requireCsrf(w, r) {
		return
	}

	var input services.AlbumInput

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	album, err := c.albumService.CreateAlbum(input)

	if err != nil {
		c.writeAlbumError(w, err, "error creating album")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"album":     album,
		"csrfToken": c.csrfService.Rotate(w),
	})
}

/*
PATCH /api/admin/albums/{albumId}
*/
func (c AdminController) UpdateAlbumAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	if !c.requireCsrf(w, r) {
		return
	}

	albumID := httphelpers.GetFromRequest[string](r, "albumId")

	var input services.AlbumInput

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	album, err := c.albumService.UpdateAlbum(albumID, input)

	if err != nil {
		c.writeAlbumError(w, err, "error updating album")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"album":     album,
		"csrfToken": c.csrfService.Rotate(w),
	})
}

/*
DELETE /api/admin/albums/{albumId}
*/
func (c AdminController) DeleteAlbumAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	if !c.requireCsrf(w, r) {
		return
	}

	albumID := httphelpers.GetFromRequest[string](r, "albumId")

	if err := c.albumService.DeleteAlbum(albumID); err != nil {
		c.writeAlbumError(w, err, "error deleting album")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"ok":        true,
		"csrfToken": c.csrfService.Rotate(w),
	})
}

/*
POST /api/admin/albums/{albumId}/photos
*/
func (c AdminController) UploadPhotosAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	if !c.checkRateLimit(w, r, "photo-upload", ratelimit.PhotoUploadMaxRequests, ratelimit.PhotoUploadWindow) {
		return
	}

	if !c.requireCsrf(w, r) {
		return
	}

	albumID := httphelpers.GetFromRequest[string](r, "albumId")

	if _, err := c.albumService.GetAlbumByID(albumID); err != nil {
		c.writeAlbumError(w, err, "error looking up album for upload")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	/*
	 * Single uploads use the "photo" field, batch uploads use "photos".
	 */
	headers := []*multipart.FileHeader{}
	headers = append(headers, r.MultipartForm.File["photo"]...)
	headers = append(headers, r.MultipartForm.File["photos"]...)

	files, err := readUploadFiles(headers)

	if err != nil {
		slog.Error("error reading uploaded files", "albumID", albumID, "error", err)
		api.WriteError(w, http.StatusBadRequest, "Failed to read uploaded files")
		return
	}

	photos, err := c.photoService.UploadPhotos(r.Context(), albumID, files)

	if err != nil {
		var validationErr *models.ValidationError

		if errors.As(err, &validationErr) {
			api.WriteError(w, http.StatusBadRequest, validationErr.Message)
			return
		}

		slog.Error("error uploading photos", "albumID", albumID, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to upload photos. Please try again.")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"photos":    photos,
		"csrfToken": c.csrfService.Rotate(w),
	})
}

/*
DELETE /api/admin/albums/{albumId}/photos
*/
func (c AdminController) DeletePhotoAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireAdmin(w, r) {
		return
	}

	if !c.requireCsrf(w, r) {
		return
	}

	albumID := httphelpers.GetFromRequest[string](r, "albumId")

	if _, err := c.albumService.GetAlbumByID(albumID); err != nil {
		c.writeAlbumError(w, err, "error looking up album for photo delete")
		return
	}

	var body struct {
		PhotoID string `json:"photoId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PhotoID == "" {
		api.WriteError(w, http.StatusBadRequest, "Invalid photo ID")
		return
	}

	if err := c.photoService.DeletePhoto(albumID, body.PhotoID); err != nil {
		if errors.Is(err, models.ErrPhotoNotFound) {
			api.WriteError(w, http.StatusNotFound, "Photo not found")
			return
		}

		slog.Error("error deleting photo", "albumID", albumID, "photoID", body.PhotoID, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to delete photo")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"ok":        true,
		"csrfToken": c.csrfService.Rotate(w),
	})
}

func (c AdminController) writeAlbumError(w http.ResponseWriter, err error, logMessage string) {
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &validationErr):
		api.WriteError(w, http.StatusBadRequest, validationErr.Message)

	case errors.Is(err, models.ErrAlbumNotFound):
		api.WriteError(w, http.StatusNotFound, "Album not found")

	default:
		slog.Error(logMessage, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func readUploadFiles(headers []*multipart.FileHeader) ([]services.UploadFile, error) {
	files := []services.UploadFile{}

	for _, header := range headers {
		f, err := header.Open()

		if err != nil {
			return nil, fmt.Errorf("error opening uploaded file '%s': %w", header.Filename, err)
		}

		data, err := io.ReadAll(f)
		f.Close()

		if err != nil {
			return nil, fmt.Errorf("error reading uploaded file '%s': %w", header.Filename, err)
		}

		files = append(files, services.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Data:        data,
		})
	}

	return files, nil
}
