package photoproxy

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/photovault/cmd/website/internal/api"
	"github.com/adampresley/photovault/cmd/website/internal/imaging"
	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/services"
	"github.com/adampresley/photovault/pkg/storage"
	"github.com/adampresley/photovault/pkg/validation"
)

type PhotoProxyHandlers interface {
	ListAlbumsAction(w http.ResponseWriter, r *http.Request)
	AlbumPhotosAction(w http.ResponseWriter, r *http.Request)
	ServeFileAction(w http.ResponseWriter, r *http.Request)
	OptimizedAction(w http.ResponseWriter, r *http.Request)
}

type PhotoProxyControllerConfig struct {
	AlbumService   services.AlbumServicer
	AuthService    services.AuthServicer
	PhotoService   services.PhotoServicer
	SessionService services.SessionStorer
	Storage        storage.Adapter
}

type PhotoProxyController struct {
	albumService   services.AlbumServicer
	authService    services.AuthServicer
	photoService   services.PhotoServicer
	sessionService services.SessionStorer
	storage        storage.Adapter
}

func NewPhotoProxyController(config PhotoProxyControllerConfig) PhotoProxyController {
	return PhotoProxyController{
		albumService:   config.AlbumService,
		authService:    config.AuthService,
		photoService:   config.PhotoService,
		sessionService: config.SessionService,
		storage:        config.Storage,
	}
}

/*
requireSession accepts any logged in role. Photo bytes are private, so
the check happens here as well as in the middleware.
*/
func (c PhotoProxyController) requireSession(w http.ResponseWriter, r *http.Request) bool {
	user, err := c.sessionService.Get(r)

	if err != nil {
		api.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}

	if err = c.authService.Verify(user); err != nil {
		api.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}

	return true
}

/*
GET /api/albums
*/
func (c PhotoProxyController) ListAlbumsAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireSession(w, r) {
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
GET /api/albums/{slug}/photos
*/
func (c PhotoProxyController) AlbumPhotosAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireSession(w, r) {
		return
	}

	slug := httphelpers.GetFromRequest[string](r, "slug")
	album, err := c.albumService.GetAlbumBySlug(slug)

	if err != nil {
		if errors.Is(err, models.ErrAlbumNotFound) {
			api.WriteError(w, http.StatusNotFound, "Album not found")
			return
		}

		slog.Error("error getting album", "slug", slug, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to load album")
		return
	}

	photos, err := c.photoService.GetPhotosForAlbum(album.ID)

	if err != nil {
		slog.Error("error getting photos", "albumID", album.ID, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to load photos")
		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"album":  album,
		"photos": photos,
	})
}

/*
GET /api/photos/file/{path...}
*/
func (c PhotoProxyController) ServeFileAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireSession(w, r) {
		return
	}

	path := httphelpers.GetFromRequest[string](r, "path")

	if path == "" {
		httphelpers.WriteText(w, http.StatusBadRequest, "missing file path")
		return
	}

	reader, contentType, err := c.storage.Read(r.Context(), path)

	if err != nil {
		httphelpers.WriteText(w, http.StatusNotFound, "file not found")
		return
	}

	defer reader.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err = io.Copy(w, reader); err != nil {
		slog.Error("error streaming photo", "path", path, "error", err)
	}
}

/*
GET /api/photos/optimized?url=...&w=...&q=...
*/
func (c PhotoProxyController) OptimizedAction(w http.ResponseWriter, r *http.Request) {
	if !c.requireSession(w, r) {
		return
	}

	rawURL := r.URL.Query().Get("url")

	if rawURL == "" {
		api.WriteError(w, http.StatusBadRequest, "Missing url parameter")
		return
	}

	path, ok := c.storage.PathForURL(rawURL)

	if !ok {
		api.WriteError(w, http.StatusBadRequest, "URL is not served by this backend")
		return
	}

	width := parseQueryInt(r, "w", imaging.DefaultWidth)
	quality := parseQueryInt(r, "q", imaging.DefaultQuality)

	if width <= 0 || width > imaging.MaxWidth {
		width = imaging.DefaultWidth
	}

	reader, _, err := c.storage.Read(r.Context(), path)

	if err != nil {
		api.WriteError(w, http.StatusNotFound, "Photo not found")
		return
	}

	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, validation.MaxFileSize))

	if err != nil {
		slog.Error("error reading photo for resize", "path", path, "error", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to load photo")
		return
	}

	resized, err := imaging.ResizeToWidth(data, uint(width), quality)

	if err != nil {
		/*
		 * Formats Go cannot decode (avif, some webp) come back as the
		 * original bytes rather than an error page.
		 */
		w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = w.Write(data)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(resized)
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)

	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)

	if err != nil {
		return fallback
	}

	return value
}
