package configuration

import (
	"fmt"
	"strings"

	"github.com/adampresley/configinator"
)

type Config struct {
	AdminPassword     string `flag:"adminpassword" env:"ADMIN_PASSWORD" default:"" description:"Admin password. Plain text or bcrypt hash"`
	ViewerPassword    string `flag:"viewerpassword" env:"VIEWER_PASSWORD" default:"" description:"Viewer password. Plain text or bcrypt hash"`
	SessionSecret     string `flag:"sessionsecret" env:"SESSION_SECRET" default:"" description:"Secret for encoding session cookies. Must be at least 32 characters"`
	B2KeyID           string `flag:"b2keyid" env:"B2_APPLICATION_KEY_ID" default:"" description:"Backblaze B2 application key ID"`
	B2AppKey          string `flag:"b2appkey" env:"B2_APPLICATION_KEY" default:"" description:"Backblaze B2 application key"`
	B2Bucket          string `flag:"b2bucket" env:"B2_BUCKET_NAME" default:"" description:"Backblaze B2 bucket name"`
	B2Endpoint        string `flag:"b2endpoint" env:"B2_ENDPOINT_URL" default:"" description:"S3-compatible endpoint URL for the B2 bucket"`
	B2Region          string `flag:"b2region" env:"B2_REGION" default:"us-west-004" description:"B2 region"`
	DownloadBaseURL   string `flag:"dlb" env:"DOWNLOAD_BASE_URL" default:"" description:"Friendly download base URL for B2 objects"`
	Environment       string `flag:"environment" env:"ENVIRONMENT" default:"development" description:"Deployment environment. 'production' enables secure cookies"`
	Host              string `flag:"host" env:"HOST" default:"localhost:8080" description:"The address and port to bind the HTTP server to"`
	LogLevel          string `flag:"loglevel" env:"LOG_LEVEL" default:"info" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	MaxCleanupWorkers int    `flag:"mcw" env:"MAX_CLEANUP_WORKERS" default:"4" description:"Maximum number of concurrent backend cleanup workers"`
	RateLimitDSN      string `flag:"rldsn" env:"RATE_LIMIT_DSN" default:"" description:"Optional sqlite DSN for shared rate-limit counters. Empty keeps counters in process memory"`
	StorageRoot       string `flag:"storageroot" env:"STORAGE_ROOT" default:"./data/storage" description:"Root directory for the local filesystem backend"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	return config
}

func (c Config) IsB2Configured() bool {
	return c.B2KeyID != "" && c.B2AppKey != "" && c.B2Bucket != ""
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

/*
Validate returns the configuration problems that make the application
unsafe to start. Startup treats any of these as fatal.
*/
func (c Config) Validate() []error {
	errs := []error{}

	if c.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("SESSION_SECRET is not set. Generate one with: openssl rand -base64 32"))
	} else if len(c.SessionSecret) < 32 {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least 32 characters long"))
	}

	if c.AdminPassword == "" {
		errs = append(errs, fmt.Errorf("ADMIN_PASSWORD is not set"))
	}

	if c.ViewerPassword == "" {
		errs = append(errs, fmt.Errorf("VIEWER_PASSWORD is not set"))
	}

	if c.IsB2Configured() {
		if c.B2Endpoint == "" {
			errs = append(errs, fmt.Errorf("B2_ENDPOINT_URL is required when B2 credentials are set"))
		}

		if c.DownloadBaseURL == "" {
			errs = append(errs, fmt.Errorf("DOWNLOAD_BASE_URL is required when B2 credentials are set"))
		}
	}

	return errs
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

/*
Warnings flags configuration that works but should be fixed, most notably
plain text passwords in production.
*/
func (c Config) Warnings() []string {
	warnings := []string{}

	if c.AdminPassword != "" && !isBcryptHash(c.AdminPassword) {
		warnings = append(warnings, "ADMIN_PASSWORD is plain text. Hash it with bcrypt")
	}

	if c.ViewerPassword != "" && !isBcryptHash(c.ViewerPassword) {
		warnings = append(warnings, "VIEWER_PASSWORD is plain text. Hash it with bcrypt")
	}

	return warnings
}
