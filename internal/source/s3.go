package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3 struct {
	client S3API
	bucket string
	key    string
}

func NewS3(client S3API, bucket, key string) *S3 {
	return &S3{client: client, bucket: bucket, key: key}
}

func openS3(ctx context.Context, u *url.URL, opts Options) (*S3, error) {
	bucket, key, err := bucketAndKey(u)
	if err != nil {
		return nil, err
	}
	var cfgOpts []func(*awsconfig.LoadOptions) error
	if opts.S3Region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(opts.S3Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, key), nil
}

func (s *S3) Location() string { return "s3://" + s.bucket + "/" + s.key }

func (s *S3) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		observe("s3", start, err)
		return nil, fmt.Errorf("s3 get %s: %w", s.Location(), err)
	}
	defer func() { _ = out.Body.Close() }()

	b, err := io.ReadAll(out.Body)
	observe("s3", start, err)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", s.Location(), err)
	}
	return b, nil
}
