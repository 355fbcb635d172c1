// Package awsenv resolves the AWS SDK configuration shared by the STS,
// Bedrock and S3 clients.
package awsenv

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Load builds an aws.Config for region. When accessKey and secretKey are both
// set they take precedence over the default provider chain; otherwise the
// chain (env, shared config, instance role) applies.
func Load(ctx context.Context, region, accessKey, secretKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
