package storage

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket and endpoint presigned URLs point at.
type S3Config struct {
	Region         string
	Bucket         string
	Endpoint       string
	ForcePathStyle bool
	TTL            time.Duration
}

// S3Signer presigns GetObject URLs. Presigning is computed locally from the
// loaded credentials, so a batch costs no network round trip at all.
type S3Signer struct {
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

// NewS3Signer loads AWS configuration from the environment and builds a signer.
func NewS3Signer(ctx context.Context, cfg S3Config) (*S3Signer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return NewS3SignerFromClient(client, cfg.Bucket, cfg.TTL), nil
}

// NewS3SignerFromClient builds a signer around an existing S3 client.
func NewS3SignerFromClient(client *s3.Client, bucket string, ttl time.Duration) *S3Signer {
	return &S3Signer{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		ttl:       ttl,
	}
}

func (s *S3Signer) Sign(ctx context.Context, path string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return req.URL, nil
}

// SignBatch presigns every path. Any failure fails the whole batch.
func (s *S3Signer) SignBatch(ctx context.Context, paths []string) (map[string]string, error) {
	paths = dedupe(paths)
	observability.SignBatchSize.Observe(float64(len(paths)))

	urls := make(map[string]string, len(paths))
	for _, p := range paths {
		url, err := s.Sign(ctx, p)
		if err != nil {
			return nil, err
		}
		urls[p] = url
	}
	return urls, nil
}
