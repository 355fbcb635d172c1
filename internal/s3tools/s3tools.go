// Package s3tools holds the small S3 helpers the CLI exposes.
package s3tools

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"bedrockctl/internal/awsenv"
)

type listAPI interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// Bucket is one S3 bucket owned by the caller's account.
type Bucket struct {
	Name      string
	CreatedAt time.Time
}

// Client lists buckets in one region.
type Client struct {
	api listAPI
}

// New builds a Client from the default credential chain.
func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsenv.Load(ctx, region, "", "")
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{api: s3.NewFromConfig(cfg)}, nil
}

// ListBuckets returns every bucket the credentials can see.
func (c *Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := c.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	buckets := make([]Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		var bucket Bucket
		if b.Name != nil {
			bucket.Name = *b.Name
		}
		if b.CreationDate != nil {
			bucket.CreatedAt = *b.CreationDate
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}
