// Package gcs stores request and dispute attachments in a Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pubsub"
)

const (
	pingTimeout    = 5 * time.Second
	uploadTimeout  = 2 * time.Minute
	defaultURLLife = time.Hour
)

// ErrObjectNotFound is returned when the key does not exist in the bucket.
var ErrObjectNotFound = errors.New("gcs object not found")

// objectStore is the slice of the storage API the client needs.
type objectStore interface {
	write(ctx context.Context, bucket, key, contentType string, r io.Reader) (int64, error)
	signedURL(bucket, key string, expires time.Time) (string, error)
	delete(ctx context.Context, bucket, key string) error
	bucketExists(ctx context.Context, bucket string) error
	close() error
}

// Client is the FileStore backed by one bucket.
type Client struct {
	objects   objectStore
	bucket    string
	urlExpiry time.Duration
	now       func() time.Time
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a storage client with read/write scope and checks the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := append(pubsub.ClientOptions(gcp), option.WithScopes(storage.ScopeReadWrite))
	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := newClient(&gcsObjects{client: sc}, cfg)
	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func newClient(objects objectStore, cfg config.GCSConfig) *Client {
	expiry := cfg.DownloadURLExpiry
	if expiry <= 0 {
		expiry = defaultURLLife
	}
	return &Client{
		objects:   objects,
		bucket:    cfg.BucketName,
		urlExpiry: expiry,
		now:       time.Now,
	}
}

// ObjectKey builds a collision-free key under the entity prefix, keeping the file extension.
func ObjectKey(prefix string, entityID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	return path.Join(strings.Trim(prefix, "/"), entityID.String(), uuid.NewString()+ext)
}

// Store uploads r under key and returns the number of bytes written.
func (c *Client) Store(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if key == "" {
		return 0, errors.New("object key is required")
	}
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	n, err := c.objects.write(ctx, c.bucket, key, contentType, r)
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}
	return n, nil
}

// URLFor returns a V4 signed GET URL valid for the configured expiry.
func (c *Client) URLFor(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}
	return c.objects.signedURL(c.bucket, key, c.now().Add(c.urlExpiry))
}

// Delete removes the object. Missing objects are reported as ErrObjectNotFound.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.objects.delete(ctx, c.bucket, key)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.objects.bucketExists(ctx, c.bucket)
}

func (c *Client) Close() error {
	if c == nil || c.objects == nil {
		return nil
	}
	return c.objects.close()
}

type gcsObjects struct {
	client *storage.Client
}

func (g *gcsObjects) write(ctx context.Context, bucket, key, contentType string, r io.Reader) (int64, error) {
	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

func (g *gcsObjects) signedURL(bucket, key string, expires time.Time) (string, error) {
	return g.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expires,
	})
}

func (g *gcsObjects) delete(ctx context.Context, bucket, key string) error {
	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func (g *gcsObjects) bucketExists(ctx context.Context, bucket string) error {
	_, err := g.client.Bucket(bucket).Attrs(ctx)
	return err
}

func (g *gcsObjects) close() error {
	return g.client.Close()
}
