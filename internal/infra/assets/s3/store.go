// Package s3 publishes plugin assets to an S3-compatible bucket (AWS S3 or
// MinIO). Keys map to object keys under an optional prefix.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pluginscaffold/internal/assets/core"
)

// Store implements core.Store on a single bucket.
type Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	prefix    string
	publicURL string
	expiry    time.Duration
}

// Config holds construction parameters.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string // prepended to every key
	Endpoint        string // optional; enables a custom endpoint such as MinIO
	AccessKeyID     string // optional, falls back to the default credentials chain
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
	// PublicURL, when set, is used to build asset URLs instead of presigning.
	PublicURL string
	// PresignExpiry bounds presigned URLs (default 15m).
	PresignExpiry time.Duration
}

// New creates an S3 asset store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg), nil
}

func newStore(client *s3.Client, cfg Config) *Store {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: cfg.PublicURL,
		expiry:    expiry,
	}
}

// Driver returns the asset driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

func (s *Store) objectKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKey, key)
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + "/" + key, nil
}

func (s *Store) assetKey(objectKey string) string {
	if s.prefix == "" {
		return objectKey
	}
	return strings.TrimPrefix(objectKey, s.prefix+"/")
}

// Put uploads or replaces an asset.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	ok, err := s.objectKey(key)
	if err != nil {
		return core.Info{}, err
	}
	ct := opts.ContentType
	if ct == "" {
		ct = core.ContentTypeFor(key)
	}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &ok, Body: r, ContentType: &ct}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = core.CloneMetadata(opts.Metadata)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return s.Head(ctx, key)
}

// Get downloads an asset.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	ok, err := s.objectKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &ok})
	if err != nil {
		return core.Info{}, nil, mapErr(key, err)
	}
	info := core.Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		CacheControl: aws.ToString(out.CacheControl),
		ETag:         strings.Trim(aws.ToString(out.ETag), "\""),
		Metadata:     out.Metadata,
		LastModified: lastModified(out.LastModified),
	}
	return info, out.Body, nil
}

// Head returns asset metadata only.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	ok, err := s.objectKey(key)
	if err != nil {
		return core.Info{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &ok})
	if err != nil {
		return core.Info{}, mapErr(key, err)
	}
	return core.Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		CacheControl: aws.ToString(out.CacheControl),
		ETag:         strings.Trim(aws.ToString(out.ETag), "\""),
		Metadata:     out.Metadata,
		LastModified: lastModified(out.LastModified),
	}, nil
}

// Delete removes an asset. S3 deletes are idempotent, so existence is
// checked first to report whether anything was removed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	ok, _ := s.objectKey(key)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &ok}); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

// List pages through the bucket and returns assets under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	full := prefix
	if s.prefix != "" {
		full = s.prefix + "/" + prefix
	}
	var infos []core.Info
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &full})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			infos = append(infos, core.Info{
				Key:          s.assetKey(aws.ToString(obj.Key)),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), "\""),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// URL returns a public URL when one is configured, otherwise a presigned GET.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	ok, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	if s.publicURL != "" {
		return core.JoinURL(s.publicURL, (&url.URL{Path: ok}).EscapedPath()), nil
	}
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &ok},
		func(po *s3.PresignOptions) { po.Expires = s.expiry })
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return out.URL, nil
}

func mapErr(key string, err error) error {
	var (
		nsk  *types.NoSuchKey
		nf   *types.NotFound
		resp *awshttp.ResponseError
	)
	switch {
	case errors.As(err, &nsk), errors.As(err, &nf):
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	case errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return err
}

func lastModified(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return t.UTC()
}
