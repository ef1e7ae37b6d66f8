// Package blobstore issues presigned object storage URLs for medicine images,
// doctor photos and prescription PDFs, and resolves stored file references
// into URLs a browser can fetch.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	ErrDisabled           = errors.New("object storage is not configured")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// ImageContentTypes maps the accepted upload types to their file extension.
var ImageContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Presigner issues time-limited URLs for direct object access.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Bucket() string
}

// Config is the object storage connection configuration.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	TTL       time.Duration
}

// S3 presigns requests against an S3-compatible bucket.
type S3 struct {
	client *s3.PresignClient
	bucket string
	ttl    time.Duration
}

// NewS3 builds a presigner. A non-empty Endpoint selects path-style
// addressing for MinIO and similar servers.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3{client: s3.NewPresignClient(client), bucket: cfg.Bucket, ttl: ttl}, nil
}

func (s *S3) Bucket() string { return s.bucket }

// TTL is how long issued URLs stay valid.
func (s *S3) TTL() time.Duration { return s.ttl }

func (s *S3) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// ObjectKey returns a unique key of the form prefix/yyyy/mm/dd/<uuid><ext>.
func ObjectKey(prefix, ext string, now time.Time) string {
	return path.Join(prefix, now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

// Upload is a presigned direct-upload grant.
type Upload struct {
	Key       string    `json:"key"`
	URL       string    `json:"uploadUrl"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ImageUpload grants a presigned PUT for an image under prefix.
func ImageUpload(ctx context.Context, p Presigner, prefix, contentType string, ttl time.Duration) (*Upload, error) {
	if p == nil {
		return nil, ErrDisabled
	}
	ext, ok := ImageContentTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, ErrInvalidContentType
	}
	now := time.Now()
	key := ObjectKey(prefix, ext, now)
	url, err := p.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	return &Upload{Key: key, URL: url, Method: "PUT", ExpiresAt: now.Add(ttl)}, nil
}

// URLResolver turns stored file references into fetchable URLs.
//
//	""                    -> ""
//	"http(s)://..."       -> unchanged
//	"/uploads/x.pdf"      -> baseURL + "/uploads/x.pdf"
//	"s3://bucket/key"     -> presigned GET for key
//	"media/2024/..."      -> presigned GET for the bare key
//
// Without a presigner, object keys are returned unchanged.
type URLResolver struct {
	baseURL   string
	presigner Presigner
}

func NewURLResolver(baseURL string, p Presigner) *URLResolver {
	return &URLResolver{baseURL: strings.TrimRight(baseURL, "/"), presigner: p}
}

func (r *URLResolver) Resolve(ctx context.Context, stored string) (string, error) {
	switch {
	case stored == "":
		return "", nil
	case strings.HasPrefix(stored, "http://"), strings.HasPrefix(stored, "https://"):
		return stored, nil
	case strings.HasPrefix(stored, "/"):
		return r.baseURL + stored, nil
	}
	if r.presigner == nil {
		return stored, nil
	}
	key := stored
	if rest, ok := strings.CutPrefix(stored, "s3://"); ok {
		bucket, k, found := strings.Cut(rest, "/")
		if !found || k == "" {
			return "", fmt.Errorf("malformed object reference %q", stored)
		}
		if bucket != r.presigner.Bucket() {
			return "", fmt.Errorf("object reference %q is outside bucket %q", stored, r.presigner.Bucket())
		}
		key = k
	}
	return r.presigner.PresignGet(ctx, key)
}

// ResolveOrEmpty is Resolve for display fields, where a failure renders as
// no URL rather than failing the whole response.
func (r *URLResolver) ResolveOrEmpty(ctx context.Context, stored string) string {
	u, err := r.Resolve(ctx, stored)
	if err != nil {
		return ""
	}
	return u
}
