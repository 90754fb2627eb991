// Package s3store uploads release packages to an S3-compatible bucket,
// as an alternative to the GitLab generic package registry.
package s3store

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/registry"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes package files to <bucket>/<project>/<name>/<version>/<file>.
type Store struct {
	client S3API
	bucket string
}

// New creates a store on bucket.
func New(client S3API, bucket string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", oerrors.ErrValidation)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// ObjectKey returns the key a descriptor is stored under.
func ObjectKey(d registry.UploadDescriptor) string {
	return path.Join(strings.Trim(d.Project, "/"), d.PackageName, d.PackageVersion, d.FileName)
}

// UploadPackage implements registry.PackageRegistry. Existing objects are
// overwritten.
func (s *Store) UploadPackage(ctx context.Context, d registry.UploadDescriptor) (registry.UploadResult, error) {
	if err := d.Validate(); err != nil {
		return registry.UploadResult{}, fmt.Errorf("%w: %w", oerrors.ErrValidation, err)
	}

	size, sum, err := registry.Digest(d.FilePath)
	if err != nil {
		return registry.UploadResult{}, fmt.Errorf("reading %s: %w", d.FilePath, err)
	}
	raw, err := hex.DecodeString(sum)
	if err != nil {
		return registry.UploadResult{}, err
	}

	f, err := os.Open(d.FilePath)
	if err != nil {
		return registry.UploadResult{}, fmt.Errorf("opening %s: %w", d.FilePath, err)
	}
	defer f.Close()

	key := ObjectKey(d)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(s.bucket),
		Key:            aws.String(key),
		Body:           f,
		ContentLength:  aws.Int64(size),
		ContentType:    aws.String("application/octet-stream"),
		ChecksumSHA256: aws.String(base64.StdEncoding.EncodeToString(raw)),
		Metadata: map[string]string{
			"package-name":    d.PackageName,
			"package-version": d.PackageVersion,
		},
	})
	if err != nil {
		return registry.UploadResult{}, fmt.Errorf("uploading s3://%s/%s: %w", s.bucket, key, classify(err))
	}

	return registry.UploadResult{
		Descriptor: d,
		Size:       size,
		SHA256:     sum,
		URL:        fmt.Sprintf("s3://%s/%s", s.bucket, key),
	}, nil
}

// classify attaches the CLI error category to an SDK error.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "Forbidden":
			return fmt.Errorf("%w: %w", oerrors.ErrPermission, err)
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: %w", oerrors.ErrNotFound, err)
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%w: %w", oerrors.ErrConflict, err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", oerrors.ErrConnectivity, err)
	}
	return err
}
