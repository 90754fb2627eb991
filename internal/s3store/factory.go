package s3store

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// ClientOptions configures the S3 client.
type ClientOptions struct {
	// Endpoint overrides the AWS endpoint, e.g. a MinIO or RustFS URL.
	Endpoint  string
	Region    string
	PathStyle bool
}

// NewClient builds an S3 client. Static credentials are taken from
// GLABU_S3_ACCESS_KEY and GLABU_S3_SECRET_KEY when both are set; otherwise
// the default AWS credential chain applies.
func NewClient(ctx context.Context, opts ClientOptions) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	accessKey, secretKey := os.Getenv("GLABU_S3_ACCESS_KEY"), os.Getenv("GLABU_S3_SECRET_KEY")
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}
