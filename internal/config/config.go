// Package config loads process configuration from the environment once at
// startup. Nothing else in the module reads environment variables directly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

// Environment name constants used in the ENVIRONMENT config field.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Attachment modes accepted by ATTACHMENT_MODE.
const (
	AttachmentOptimistic = "optimistic"
	AttachmentConfirm    = "confirm"
)

// offlineDynamoEndpoint is the local DynamoDB started by serverless-offline.
const offlineDynamoEndpoint = "http://localhost:8000"

// Config holds all configuration for the application.
type Config struct {
	// Application
	LogLevel    string `conf:"default:info,env:LOG_LEVEL"`
	Environment string `conf:"default:development,enum:development|production,env:ENVIRONMENT"`
	ServerPort  int    `conf:"default:8080,env:SERVER_PORT"`

	// AWS
	Region string `conf:"default:us-east-1,env:AWS_REGION"`
	// Offline switches the store to a local DynamoDB with static credentials.
	Offline          bool   `conf:"default:false,env:IS_OFFLINE"`
	DynamoDBEndpoint string `conf:"env:DYNAMODB_ENDPOINT"`
	StoreInMemory    bool   `conf:"default:false,env:STORE_IN_MEMORY"`

	// Tables
	TodosTable string `conf:"default:Todos,env:TODOS_TABLE"`
	NotesTable string `conf:"default:Notes,env:NOTES_TABLE"`

	// Attachments
	AttachmentBucket    string        `conf:"env:ATTACHMENT_S3_BUCKET"`
	S3Endpoint          string        `conf:"env:S3_ENDPOINT"`
	AttachmentBaseURL   string        `conf:"env:ATTACHMENT_BASE_URL"`
	SignedURLExpiration time.Duration `conf:"default:5m,env:SIGNED_URL_EXPIRATION"`
	AttachmentMode      string        `conf:"default:optimistic,enum:optimistic|confirm,env:ATTACHMENT_MODE"`

	// Identity. A JWKS URL selects RS256 verification; otherwise tokens are
	// HS256 signed with the secret stored under JWTSecretParam.
	JWKSURL        string `conf:"env:AUTH_JWKS_URL"`
	Issuer         string `conf:"env:AUTH_ISSUER"`
	Audience       string `conf:"env:AUTH_AUDIENCE"`
	JWTSecretParam string `conf:"default:/gophtodo/jwt-secret,env:JWT_SECRET_PARAM"`

	// CORS
	CORSAllowOrigin string `conf:"default:*,env:CORS_ALLOW_ORIGIN"`
}

// Load reads configuration from environment variables (and an optional .env
// file) with defaults, then validates it.
func Load() (*Config, error) {
	var cfg Config
	_ = godotenv.Load()
	if _, err := conf.Parse("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Offline && cfg.DynamoDBEndpoint == "" {
		cfg.DynamoDBEndpoint = offlineDynamoEndpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces rules that span several fields.
func (c *Config) Validate() error {
	var errs []string

	if !c.StoreInMemory && c.AttachmentBucket == "" {
		errs = append(errs, "ATTACHMENT_S3_BUCKET is required")
	}
	if c.TodosTable == "" || c.NotesTable == "" {
		errs = append(errs, "TODOS_TABLE and NOTES_TABLE must not be empty")
	}
	if c.SignedURLExpiration <= 0 {
		errs = append(errs, "SIGNED_URL_EXPIRATION must be positive")
	}
	if c.Environment == EnvProduction {
		if c.Offline || c.StoreInMemory {
			errs = append(errs, "IS_OFFLINE and STORE_IN_MEMORY are not allowed in production")
		}
		if c.LogLevel == "debug" {
			errs = append(errs, "LOG_LEVEL must not be 'debug' in production")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.New("invalid config: " + strings.Join(errs, "; "))
}

// IsProduction reports whether the process runs against managed AWS
// resources with production error reporting.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Local reports whether the process runs against local emulators or in
// memory. Only then do secrets come from the environment instead of SSM.
func (c *Config) Local() bool {
	return c.Offline || c.StoreInMemory
}
