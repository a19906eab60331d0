package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/jun/gophtodo/internal/attachment"
	"github.com/jun/gophtodo/internal/config"
	"github.com/jun/gophtodo/internal/identity"
	"github.com/jun/gophtodo/internal/model"
	"github.com/jun/gophtodo/internal/secret"
	"github.com/jun/gophtodo/internal/service"
	"github.com/jun/gophtodo/internal/store"
)

// localBucket names the attachment bucket when running fully in memory
// without one configured.
const localBucket = "gophtodo-local-attachments"

// devSecret signs tokens for offline and in-memory runs without JWT_SECRET.
const devSecret = "default-dev-secret"

// NewFromConfig builds the AWS clients described by cfg and assembles the
// App. Clients are created once per process and shared by invocations.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Offline || cfg.StoreInMemory {
		// Local emulators accept any credentials.
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	owners, err := newOwnerResolver(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	deps := Deps{Owners: owners, Linker: newLinker(cfg, awsCfg)}
	todoSchema := service.TodoFamily(cfg.TodosTable).Schema
	noteSchema := service.NoteFamily(cfg.NotesTable).Schema

	if cfg.StoreInMemory {
		logger.Info("using in-memory item store", "todos", cfg.TodosTable, "notes", cfg.NotesTable)
		deps.Todos = store.NewMemoryStore[model.Todo](todoSchema)
		deps.Notes = store.NewMemoryStore[model.Note](noteSchema)
	} else {
		dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		logger.Info("using DynamoDB item store", "endpoint", cfg.DynamoDBEndpoint, "offline", cfg.Offline)
		deps.Todos = store.NewDynamoStore[model.Todo](dynamoClient, todoSchema)
		deps.Notes = store.NewDynamoStore[model.Note](dynamoClient, noteSchema)
	}

	return New(cfg, deps, logger), nil
}

func newLinker(cfg *config.Config, awsCfg aws.Config) *attachment.Linker {
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	bucket := cfg.AttachmentBucket
	if bucket == "" {
		bucket = localBucket
	}
	return attachment.NewLinker(s3.NewPresignClient(s3Client), s3Client, attachment.Config{
		Bucket:  bucket,
		BaseURL: cfg.AttachmentBaseURL,
		Expiry:  cfg.SignedURLExpiration,
	})
}

// newOwnerResolver verifies RS256 tokens against a JWKS endpoint when one
// is configured, and HS256 tokens signed with the shared secret otherwise.
func newOwnerResolver(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (service.OwnerResolver, error) {
	if cfg.JWKSURL != "" {
		logger.Info("verifying tokens against JWKS", "url", cfg.JWKSURL, "issuer", cfg.Issuer)
		return identity.NewJWKSResolver(identity.NewJWKSClient(cfg.JWKSURL), cfg.Issuer, cfg.Audience), nil
	}

	logger.Info("verifying tokens with shared secret", "param", cfg.JWTSecretParam, "fromEnv", cfg.Local())
	jwtSecret, err := sharedSecret(ctx, cfg, secret.New(cfg.Local(), ssm.NewFromConfig(awsCfg)), logger)
	if err != nil {
		return nil, err
	}
	return identity.NewHMACResolver([]byte(jwtSecret)), nil
}

// sharedSecret resolves the HMAC signing secret. Only a local process may
// fall back to devSecret when none is configured.
func sharedSecret(ctx context.Context, cfg *config.Config, secrets secret.Resolver, logger *slog.Logger) (string, error) {
	jwtSecret, err := secrets.GetSecret(ctx, cfg.JWTSecretParam)
	if err == nil {
		return jwtSecret, nil
	}
	if !cfg.Local() {
		return "", fmt.Errorf("failed to resolve JWT secret: %w", err)
	}
	logger.Warn("failed to resolve JWT secret, using development default", "error", err)
	return devSecret, nil
}
