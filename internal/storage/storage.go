// Package storage uploads finished videos to S3 and hands out presigned
// download links.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPresignTTL is how long a download link stays valid
	DefaultPresignTTL = time.Hour

	// Per-upload timeout, independent of the caller's deadline being longer
	uploadTimeout = 180 * time.Second

	keyTimeLayout = "20060102_150405"
)

// ObjectAPI is the part of the S3 client used for uploads.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the part of the S3 presign client used for download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadError reports a failed S3 call. Code is the S3 error code when the
// service answered (AccessDenied, NoSuchBucket, ...), empty otherwise.
type UploadError struct {
	Op     string
	Bucket string
	Key    string
	Code   string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("s3 %s s3://%s/%s: %s: %v", e.Op, e.Bucket, e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("s3 %s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func newUploadError(op, bucket, key string, err error) *UploadError {
	ue := &UploadError{Op: op, Bucket: bucket, Key: key, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ue.Code = apiErr.ErrorCode()
	}
	return ue
}

// Config contains the settings for the S3 client. Credentials come from
// the standard AWS chain (env, shared config, Lambda role).
type Config struct {
	Region       string
	Bucket       string
	Prefix       string
	UsePathStyle bool
}

type Storage struct {
	client    ObjectAPI
	presigner Presigner
	Bucket    string
	prefix    string
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithClients(client, s3.NewPresignClient(client), cfg.Bucket, cfg.Prefix), nil
}

// NewWithClients builds a Storage from already constructed clients.
func NewWithClients(client ObjectAPI, presigner Presigner, bucket, prefix string) *Storage {
	return &Storage{
		client:    client,
		presigner: presigner,
		Bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
	}
}

// BucketName returns the bucket uploads go to.
func (s *Storage) BucketName() string { return s.Bucket }

// GenerateKey returns <prefix>/<YYYYMMDD_HHMMSS>_<jobID>.mp4 using now in UTC.
func (s *Storage) GenerateKey(now time.Time, jobID string) string {
	name := fmt.Sprintf("%s_%s.mp4", now.UTC().Format(keyTimeLayout), jobID)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// UploadFile uploads a local file with the given content type and
// user metadata. There is no retry beyond the SDK's own.
func (s *Storage) UploadFile(ctx context.Context, key, localPath, contentType string, metadata map[string]string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", localPath, err)
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		Metadata:      metadata,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	start := time.Now()
	if _, err := s.client.PutObject(uploadCtx, in); err != nil {
		return newUploadError("put", s.Bucket, key, err)
	}

	log.Info().Str("bucket", s.Bucket).Str("key", key).Int64("bytes", info.Size()).
		Dur("elapsed", time.Since(start)).Msg("[Storage] Uploaded")
	return nil
}

// PresignGet returns a time-limited GET URL for key.
func (s *Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", newUploadError("presign", s.Bucket, key, err)
	}

	return req.URL, nil
}
