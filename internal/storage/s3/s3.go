// Package s3 implements a Store that reads raw messages from Amazon S3.
package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// StoreConfig holds the configuration for creating a Store.
type StoreConfig struct {
	Bucket string

	// Region overrides the default region when the bucket lives elsewhere.
	Region string

	AccessKeyID     string
	SecretAccessKey string
}

// GetObjectAPI is the interface for the S3 GetObject operation.
// Used for testing with mock implementations.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Store fetches objects from a single S3 bucket.
type Store struct {
	bucket string
	client GetObjectAPI
}

// New creates a Store using the default AWS credential chain, or static
// credentials when both keys are set.
func New(ctx context.Context, cfg StoreConfig) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Store{
		bucket: cfg.Bucket,
		client: awss3.NewFromConfig(awsCfg),
	}, nil
}

// NewWithClient creates a Store with a custom client, used for testing.
func NewWithClient(bucket string, client GetObjectAPI) *Store {
	return &Store{
		bucket: bucket,
		client: client,
	}
}

// Fetch reads the object stored under key.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "s3"
}
