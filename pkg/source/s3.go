package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/localix/preloadd/internal/telemetry"
)

// S3Object maps a resource key to an export object.
type S3Object struct {
	// Key is the object key, relative to the configured prefix.
	Key string

	// ItemsField names the field holding the collection, as for HTTP.
	ItemsField string
}

// S3Config configures the S3 fetcher.
type S3Config struct {
	Bucket string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// KeyPrefix is prepended to all object keys (e.g., "exports/").
	KeyPrefix string

	// ForcePathStyle forces path-style addressing (required for MinIO).
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the SDK default chain is used.
	AccessKeyID     string
	SecretAccessKey string

	Objects map[string]S3Object
}

// S3 fetches resources from JSON exports stored in a bucket.
type S3 struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	objects   map[string]S3Object
}

// NewS3 creates an S3 fetcher with an existing client.
func NewS3(client *s3.Client, cfg S3Config) *S3 {
	objects := make(map[string]S3Object, len(cfg.Objects))
	for k, o := range cfg.Objects {
		objects[k] = o
	}
	return &S3{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		objects:   objects,
	}
}

// NewS3FromConfig creates an S3 fetcher, building the client from cfg.
func NewS3FromConfig(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

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

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// Fetch implements Fetcher. Params are ignored; each resource is one object.
func (s *S3) Fetch(ctx context.Context, key string, _ Params) (Records, error) {
	obj, ok := s.objects[key]
	if !ok {
		return Records{}, fmt.Errorf("no S3 object for resource %q", key)
	}

	objectKey := s.keyPrefix + strings.TrimPrefix(obj.Key, "/")
	ctx, span := telemetry.StartSourceSpan(ctx, telemetry.SpanSourceS3, key,
		telemetry.SourceType(string(TypeS3)),
		telemetry.Bucket(s.bucket),
		telemetry.StorageKey(objectKey))
	defer span.End()

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Records{}, ctxErr
		}
		telemetry.RecordError(ctx, err)
		terr := &TransportError{Op: "GetObject " + objectKey, Err: err}
		if isNotFoundError(err) {
			terr.StatusCode = 404
		}
		return Records{}, terr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Records{}, ctxErr
		}
		return Records{}, &TransportError{Op: "GetObject " + objectKey, Err: err}
	}

	records, err := Normalize(body, obj.ItemsField)
	if err != nil {
		return Records{}, err
	}
	telemetry.SetAttributes(ctx, telemetry.Items(records.Len()))
	return records, nil
}

// HealthCheck verifies the bucket is reachable.
func (s *S3) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 head bucket: %w", err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey"
	}
	return false
}

// Ensure S3 implements Fetcher.
var _ Fetcher = (*S3)(nil)
