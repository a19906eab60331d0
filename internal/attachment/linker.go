// Package attachment issues pre-signed upload slots for item attachments
// and derives the stable retrieval URL of each uploaded blob.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jun/gophtodo/internal/apperr"
)

// DefaultExpiry is the lifetime of an upload slot when none is configured.
const DefaultExpiry = 5 * time.Minute

// Presigner is the subset of *s3.PresignClient used by Linker.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// HeadAPI is the subset of *s3.Client used to confirm uploads.
type HeadAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config locates the attachment bucket.
type Config struct {
	Bucket string
	// BaseURL overrides the public https://{bucket}.s3.amazonaws.com base,
	// e.g. for a local S3 emulator.
	BaseURL string
	Expiry  time.Duration
}

// Linker maps item ids to blob keys in a single bucket. The blob key is the
// item id itself.
type Linker struct {
	presigner Presigner
	head      HeadAPI
	cfg       Config
}

// NewLinker creates a Linker. head may be nil when uploads are never
// confirmed.
func NewLinker(presigner Presigner, head HeadAPI, cfg Config) *Linker {
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultExpiry
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Linker{presigner: presigner, head: head, cfg: cfg}
}

// IssueUploadSlot returns a time-limited URL authorizing one PUT of the blob
// keyed by itemID.
func (l *Linker) IssueUploadSlot(ctx context.Context, itemID string) (string, error) {
	req, err := l.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(l.cfg.Bucket),
		Key:    aws.String(itemID),
	}, s3.WithPresignExpires(l.cfg.Expiry))
	if err != nil {
		return "", fmt.Errorf("%w: presign put %s/%s: %w", apperr.ErrBlobStore, l.cfg.Bucket, itemID, err)
	}
	return req.URL, nil
}

// RetrievalURL is the stable, unsigned URL at which the blob of itemID is
// served once uploaded.
func (l *Linker) RetrievalURL(itemID string) string {
	if l.cfg.BaseURL != "" {
		return l.cfg.BaseURL + "/" + itemID
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", l.cfg.Bucket, itemID)
}

// Exists reports whether the blob of itemID has been uploaded.
func (l *Linker) Exists(ctx context.Context, itemID string) (bool, error) {
	if l.head == nil {
		return false, fmt.Errorf("%w: upload confirmation is not configured", apperr.ErrBlobStore)
	}
	_, err := l.head.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(l.cfg.Bucket),
		Key:    aws.String(itemID),
	})
	if err == nil {
		return true, nil
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("%w: head %s/%s: %s: %w", apperr.ErrBlobStore, l.cfg.Bucket, itemID, apiErr.ErrorCode(), err)
	}
	return false, fmt.Errorf("%w: head %s/%s: %w", apperr.ErrBlobStore, l.cfg.Bucket, itemID, err)
}
