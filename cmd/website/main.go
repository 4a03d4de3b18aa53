package main

import (
	"context"
	"embed"
	"encoding/gob"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/awsconfig"
	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/sessions"
	"github.com/adampresley/photovault/cmd/website/internal/admin"
	"github.com/adampresley/photovault/cmd/website/internal/api"
	"github.com/adampresley/photovault/cmd/website/internal/authapi"
	"github.com/adampresley/photovault/cmd/website/internal/configuration"
	"github.com/adampresley/photovault/cmd/website/internal/photoproxy"
	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/ratelimit"
	"github.com/adampresley/photovault/pkg/services"
	"github.com/adampresley/photovault/pkg/storage"
	_ "github.com/glebarez/sqlite"
	"github.com/rfberaldo/sqlz"
	"github.com/rfberaldo/sqlz/binds"
)

var (
	Version string = "development"
	appName string = "photovault"

	//go:embed sql-migrations
	sqlMigrationsFs embed.FS

	config configuration.Config

	/* Services */
	albumService    services.AlbumServicer
	authService     services.AuthServicer
	cleanupService  services.CleanupServicer
	csrfService     services.CsrfServicer
	db              *sqlz.DB
	metadataService services.MetadataServicer
	photoService    services.PhotoServicer
	rateLimiter     ratelimit.Store
	sessionService  sessions.Session[*models.SessionUser]
	storageAdapter  storage.Adapter

	/* Controllers */
	adminController      admin.AdminHandlers
	authController       authapi.AuthHandlers
	photoProxyController photoproxy.PhotoProxyHandlers
)

func main() {
	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("loglevel", config.LogLevel),
		slog.String("host", config.Host),
		slog.String("environment", config.Environment),
		slog.Bool("b2", config.IsB2Configured()),
	)

	if validationErrors := config.Validate(); len(validationErrors) > 0 {
		for _, validationErr := range validationErrors {
			slog.Error("invalid configuration", "error", validationErr)
		}

		panic("cannot start with an invalid configuration")
	}

	for _, warning := range config.Warnings() {
		slog.Warn(warning)
	}

	slog.Debug("setting up...")

	shutdownCtx, cancel := context.WithCancel(context.Background())

	/*
	 * Setup services
	 */
	gob.Register(&models.SessionUser{})

	cookieStore := sessions.NewCookieStore(config.SessionSecret)
	sessionService = sessions.NewSessionWrapper[*models.SessionUser](cookieStore, "photovault", "sessionUser")

	storageAdapter = setupStorage()
	rateLimiter = setupRateLimiter()

	metadataService = services.NewMetadataService(services.MetadataServiceConfig{
		Storage: storageAdapter,
	})

	cleanupService = services.NewCleanupService(services.CleanupServiceConfig{
		MaxWorkers:  config.MaxCleanupWorkers,
		ShutdownCtx: shutdownCtx,
		Storage:     storageAdapter,
	})

	albumService = services.NewAlbumService(services.AlbumServiceConfig{
		Cleanup:  cleanupService,
		Metadata: metadataService,
	})

	photoService = services.NewPhotoService(services.PhotoServiceConfig{
		Cleanup:  cleanupService,
		Metadata: metadataService,
		Storage:  storageAdapter,
	})

	authService = services.NewAuthService(services.AuthServiceConfig{
		AdminPassword:  config.AdminPassword,
		ViewerPassword: config.ViewerPassword,
		RateLimiter:    rateLimiter,
	})

	csrfService = services.NewCsrfService(services.CsrfServiceConfig{
		Secure: config.IsProduction(),
	})

	/*
	 * Setup controllers
	 */
	authController = authapi.NewAuthController(authapi.AuthControllerConfig{
		AuthService:    authService,
		SessionService: sessionService,
	})

	adminController = admin.NewAdminController(admin.AdminControllerConfig{
		AlbumService:   albumService,
		AuthService:    authService,
		CsrfService:    csrfService,
		PhotoService:   photoService,
		RateLimiter:    rateLimiter,
		SessionService: sessionService,
	})

	photoProxyController = photoproxy.NewPhotoProxyController(photoproxy.PhotoProxyControllerConfig{
		AlbumService:   albumService,
		AuthService:    authService,
		PhotoService:   photoService,
		SessionService: sessionService,
		Storage:        storageAdapter,
	})

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	requestLogger := newRequestLoggerMiddleware()
	sessionMiddleware := newSessionMiddleware(sessionService, authService)
	adminMiddleware := newAdminMiddleware(sessionService, authService)

	public := []mux.MiddlewareFunc{requestLogger}
	viewer := []mux.MiddlewareFunc{requestLogger, sessionMiddleware}
	adminOnly := []mux.MiddlewareFunc{requestLogger, adminMiddleware}

	routes := []mux.Route{
		{Path: "GET /heartbeat", HandlerFunc: heartbeat},
		{Path: "GET /api/health", HandlerFunc: health, Middlewares: public},

		{Path: "POST /api/auth/login", HandlerFunc: authController.AdminLoginAction, Middlewares: public},
		{Path: "POST /api/auth/viewer", HandlerFunc: authController.ViewerLoginAction, Middlewares: public},
		{Path: "POST /api/auth/logout", HandlerFunc: authController.LogoutAction, Middlewares: public},

		{Path: "GET /api/admin/csrf", HandlerFunc: adminController.CsrfTokenAction, Middlewares: adminOnly},
		{Path: "GET /api/admin/albums", HandlerFunc: adminController.GetAlbumsAction, Middlewares: adminOnly},
		{Path: "POST /api/admin/albums", HandlerFunc: adminController.CreateAlbumAction, Middlewares: adminOnly},
		{Path: "PATCH /api/admin/albums/{albumId}", HandlerFunc: adminController.UpdateAlbumAction, Middlewares: adminOnly},
		{Path: "DELETE /api/admin/albums/{albumId}", HandlerFunc: adminController.DeleteAlbumAction, Middlewares: adminOnly},
		{Path: "POST /api/admin/albums/{albumId}/photos", HandlerFunc: adminController.UploadPhotosAction, Middlewares: adminOnly},
		{Path: "DELETE /api/admin/albums/{albumId}/photos", HandlerFunc: adminController.DeletePhotoAction, Middlewares: adminOnly},

		{Path: "GET /api/albums", HandlerFunc: photoProxyController.ListAlbumsAction, Middlewares: viewer},
		{Path: "GET /api/albums/{slug}/photos", HandlerFunc: photoProxyController.AlbumPhotosAction, Middlewares: viewer},
		{Path: "GET /api/photos/file/{path...}", HandlerFunc: photoProxyController.ServeFileAction, Middlewares: viewer},
		{Path: "GET /api/photos/optimized", HandlerFunc: photoProxyController.OptimizedAction, Middlewares: viewer},
	}

	routerConfig := mux.RouterConfig{
		Address:          config.Host,
		Debug:            Version == "development",
		HttpWriteTimeout: 60,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	cancel()
	cleanupService.Stop()

	if memoryStore, ok := rateLimiter.(*ratelimit.MemoryStore); ok {
		memoryStore.StopSweeper()
	}

	mux.Shutdown(httpServer)
	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

/*
GET /api/health
*/
func health(w http.ResponseWriter, r *http.Request) {
	if validationErrors := config.Validate(); len(validationErrors) > 0 {
		messages := []string{}

		for _, err := range validationErrors {
			messages = append(messages, err.Error())
		}

		api.WriteJson(w, http.StatusInternalServerError, map[string]any{
			"status": "error",
			"errors": messages,
		})

		return
	}

	api.WriteJson(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
	})
}

func setupLogger(config *configuration.Config, version string) {
	logLevel := slog.LevelInfo

	switch strings.ToLower(config.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug

	case "warn":
		logLevel = slog.LevelWarn

	case "error":
		logLevel = slog.LevelError
	}

	if version == "development" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})))

		return
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

/*
setupStorage picks the blob backend. B2 credentials win; otherwise blobs
live on the local filesystem, which is intended for development and small
single-node installs.
*/
func setupStorage() storage.Adapter {
	var (
		err error
	)

	if !config.IsB2Configured() {
		slog.Info("B2 is not configured. using local filesystem storage", "root", config.StorageRoot)

		return storage.NewLocalStorage(storage.LocalStorageConfig{
			RootDir:   config.StorageRoot,
			URLPrefix: "/api/photos/file",
		})
	}

	awsConfig := &awsconfig.Config{
		Endpoint:        config.B2Endpoint,
		Region:          config.B2Region,
		AccessKeyID:     config.B2KeyID,
		SecretAccessKey: config.B2AppKey,
	}

	retrier.Retry(func() error {
		if err = awsConfig.Load(); err != nil {
			slog.Error("failed to load B2 config. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	s3Client, err := s3.NewClient(awsConfig)

	if err != nil {
		panic(err)
	}

	return storage.NewB2Storage(storage.B2StorageConfig{
		Bucket:          config.B2Bucket,
		DownloadBaseURL: config.DownloadBaseURL,
		S3Client:        s3Client,
	})
}

/*
setupRateLimiter keeps counters in process memory unless a sqlite DSN is
configured, in which case counters are shared across instances.
*/
func setupRateLimiter() ratelimit.Store {
	var (
		err error
	)

	if config.RateLimitDSN == "" {
		memoryStore := ratelimit.NewMemoryStore()
		memoryStore.StartSweeper(5 * time.Minute)
		return memoryStore
	}

	binds.Register("sqlite", binds.BindByDriver("sqlite3"))

	if db, err = sqlz.Connect("sqlite", config.RateLimitDSN); err != nil {
		panic(err)
	}

	migrateDatabase()

	return ratelimit.NewSqliteStore(ratelimit.SqliteStoreConfig{
		DB: db,
	})
}

func migrateDatabase() {
	var (
		err  error
		dirs []fs.DirEntry
		b    []byte
	)

	if dirs, err = sqlMigrationsFs.ReadDir("sql-migrations"); err != nil {
		panic(err)
	}

	for _, d := range dirs {
		if d.IsDir() {
			continue
		}

		if strings.HasPrefix(d.Name(), "commit") {
			if b, err = fs.ReadFile(sqlMigrationsFs, filepath.Join("sql-migrations", d.Name())); err != nil {
				panic(err)
			}

			if err = runSqlScript(b); err != nil {
				if !isIgnorableError(err) {
					panic(err)
				}
			}
		}
	}
}

func runSqlScript(script []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	_, err := db.Exec(ctx, string(script))
	return err
}

func isIgnorableError(err error) bool {
	if strings.Contains(err.Error(), "duplicate column") {
		return true
	}

	return false
}
