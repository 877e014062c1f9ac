// Package config loads and validates server configuration from the
// environment.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/storyvault/storyvault/pkg/storyvault"
	fsstorage "github.com/storyvault/storyvault/pkg/storyvault/storage/fs"
	memorystorage "github.com/storyvault/storyvault/pkg/storyvault/storage/memory"
	s3storage "github.com/storyvault/storyvault/pkg/storyvault/storage/s3"
)

// S3Config options for the S3 backend
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"storyvault"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UseSSL          bool   `env:"AWS_S3_USE_SSL" env-default:"false"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// Config is the full server configuration, read from environment variables.
type Config struct {
	Port        uint16 `env:"PORT" env-default:"8000"`
	Environment string `env:"ENVIRONMENT" env-default:"development" validate:"oneof=development staging production"`

	// MaxRequestSizeMB is the request-body ceiling in megabytes.
	MaxRequestSizeMB int `env:"MAX_REQUEST_SIZE_MB" env-default:"1" validate:"gt=0"`

	// Per-user entity limits. Zero means unlimited.
	MaxSessionsPerUser int `env:"MAX_SESSIONS_PER_USER" env-default:"100" validate:"gte=0"`
	MaxStoriesPerUser  int `env:"MAX_STORIES_PER_USER" env-default:"100" validate:"gte=0"`

	AuthTokenSecret string `env:"AUTH_TOKEN_SECRET" env-default:"dev-secret" validate:"required"`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"memory" validate:"oneof=s3 fs memory"`
	FSBaseDir      string `env:"FS_BASE_DIR" env-default:"./data"`

	S3 S3Config
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// MaxRequestSizeBytes returns the request-body ceiling in bytes.
func (c *Config) MaxRequestSizeBytes() int64 {
	return int64(c.MaxRequestSizeMB) << 20
}

// Quotas returns the per-user entity limits.
func (c *Config) Quotas() storyvault.Quotas {
	return storyvault.Quotas{
		SessionLimit: c.MaxSessionsPerUser,
		StoryLimit:   c.MaxStoriesPerUser,
	}
}

// BuildBlobStore constructs the configured storage backend.
func (c *Config) BuildBlobStore() (storyvault.BlobStore, error) {
	switch c.StorageBackend {
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.BucketName,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UseSSL:                 c.S3.UseSSL,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.FSBaseDir})
	case "memory":
		return memorystorage.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
}

// BuildService constructs the storyvault service from the configuration.
func (c *Config) BuildService() (storyvault.Service, error) {
	store, err := c.BuildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("building storage backend: %w", err)
	}
	return storyvault.New(
		storyvault.WithBlobStore(store),
		storyvault.WithQuotas(c.Quotas()),
	)
}
