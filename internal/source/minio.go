package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio reads from an S3-compatible endpoint addressed as minio://host[:port]/bucket/key.
type Minio struct {
	client *minio.Client
	bucket string
	key    string
}

func NewMinio(client *minio.Client, bucket, key string) *Minio {
	return &Minio{client: client, bucket: bucket, key: key}
}

func openMinio(u *url.URL, opts Options) (*Minio, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if u.Host == "" || !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("location %q must be minio://host/bucket/key", u.String())
	}
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.MinioAccessKey, opts.MinioSecretKey, ""),
		Secure: opts.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", u.Host, err)
	}
	return NewMinio(client, bucket, key), nil
}

func (m *Minio) Location() string {
	return "minio://" + m.client.EndpointURL().Host + "/" + m.bucket + "/" + m.key
}

func (m *Minio) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	obj, err := m.client.GetObject(ctx, m.bucket, m.key, minio.GetObjectOptions{})
	if err != nil {
		observe("minio", start, err)
		return nil, fmt.Errorf("minio get %s/%s: %w", m.bucket, m.key, err)
	}
	defer func() { _ = obj.Close() }()

	b, err := io.ReadAll(obj)
	observe("minio", start, err)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("minio object %s/%s not found: %w", m.bucket, m.key, err)
		}
		return nil, fmt.Errorf("minio read %s/%s: %w", m.bucket, m.key, err)
	}
	return b, nil
}
