package remote

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.ConfigFetcher = (*Fetcher)(nil)

// DefaultEndpoint is the S3 API endpoint used when none is configured.
const DefaultEndpoint = "s3.amazonaws.com"

// Config configures S3 access. Credentials left empty fall back to the
// AWS environment chain.
type Config struct {
	// Endpoint is the S3 API endpoint, a bare host or a URL. An http://
	// scheme turns TLS off (local object stores).
	Endpoint string

	// AccessKey and SecretKey are static credentials.
	AccessKey string
	SecretKey string

	// Region is passed through to bucket operations.
	Region string
}

// Fetcher copies configuration documents to local staging paths. The S3
// client is built on first use: purely local setups never touch it.
type Fetcher struct {
	cfg Config

	mu     sync.Mutex
	client *minio.Client
}

// NewFetcher creates a fetcher with the given S3 access configuration.
func NewFetcher(cfg Config) *Fetcher {
	return &Fetcher{cfg: cfg}
}

// Fetch copies the document at uri to destPath, creating parent
// directories as needed. Staged copies are private: connector configs
// carry credentials.
func (f *Fetcher) Fetch(ctx context.Context, uri, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if strings.HasPrefix(uri, "s3://") {
		return f.fetchS3(ctx, uri, destPath)
	}
	return copyLocal(uri, destPath)
}

func (f *Fetcher) fetchS3(ctx context.Context, uri, destPath string) error {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return err
	}
	client, err := f.s3Client()
	if err != nil {
		return err
	}

	logger.Debug("downloading s3://%s/%s", bucket, key)
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get object %s: %w", uri, err)
	}
	defer obj.Close()

	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create staged config: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, obj); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return fmt.Errorf("object %s: %w", uri, domain.ErrNotFound)
		}
		return fmt.Errorf("download %s: %w", uri, err)
	}
	return dest.Sync()
}

// s3Client lazily builds the MinIO client from the configured endpoint.
func (f *Fetcher) s3Client() (*minio.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}

	endpoint := f.cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	secure := true
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: s3 endpoint %q", domain.ErrConfigInvalid, endpoint)
		}
		endpoint = u.Host
		secure = u.Scheme != "http"
	}

	var creds *credentials.Credentials
	if f.cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(f.cfg.AccessKey, f.cfg.SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: f.cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	f.client = client
	return client, nil
}

// splitS3URI splits s3://bucket/key/path into bucket and key.
func splitS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: s3 uri %q needs bucket and key", domain.ErrConfigInvalid, uri)
	}
	return parts[0], parts[1], nil
}

func copyLocal(src, destPath string) error {
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return fmt.Errorf("config %s: %w", src, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("open config %s: %w", src, err)
	}
	defer in.Close()

	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create staged config: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, in); err != nil {
		return fmt.Errorf("copy config: %w", err)
	}
	return dest.Sync()
}
