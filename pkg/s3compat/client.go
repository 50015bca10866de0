// Package s3compat talks to the S3-compatible endpoint of a B2 account with
// the same application key used for the native API.
package s3compat

import (
	"bytes"
	"context"
	stderr "errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsconfig "github.com/scttfrdmn/cargoship/pkg/aws/config"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"

	"github.com/objectfs/b2/internal/logging"
	"github.com/objectfs/b2/pkg/b2"
	"github.com/objectfs/b2/pkg/errors"
)

// DefaultRegion is used when the endpoint host carries no region.
const DefaultRegion = "us-east-1"

// Config selects the endpoint and key pair.
type Config struct {
	// Endpoint is the s3ApiUrl returned by b2_authorize_account.
	Endpoint         string
	ApplicationKeyID string
	ApplicationKey   string
	// Region defaults to the one in the endpoint host.
	Region     string
	MaxRetries int

	// Accelerate sends UploadObject through the CargoShip transporter, which
	// switches to concurrent 16MB multipart uploads above 32MB.
	Accelerate  bool
	Concurrency int
}

// ObjectInfo describes one object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Client is an S3 client bound to one B2 S3 endpoint.
type Client struct {
	s3     *s3.Client
	region string
	config Config
	logger *slog.Logger

	mu           sync.Mutex
	transporters map[string]*cargoships3.Transporter
}

// NewClient builds an S3 client for cfg. Requests use path-style addressing.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewError(errors.ErrCodeMissingConfig, "S3 endpoint is empty").
			WithComponent("s3compat")
	}
	if cfg.ApplicationKeyID == "" || cfg.ApplicationKey == "" {
		return nil, errors.NewError(errors.ErrCodeCredentialsMissing, "application key id and key are required").
			WithComponent("s3compat")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	region := cfg.Region
	if region == "" {
		region = RegionFromEndpoint(cfg.Endpoint)
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ApplicationKeyID, cfg.ApplicationKey, "")),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeConfigLoad, "failed to load AWS config").
			WithComponent("s3compat").
			WithCause(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	logger.Debug("S3 compatible client configured", "endpoint", cfg.Endpoint, "region", region, "accelerate", cfg.Accelerate)
	return &Client{
		s3:           client,
		region:       region,
		config:       cfg,
		logger:       logger,
		transporters: make(map[string]*cargoships3.Transporter),
	}, nil
}

// NewFromSession builds a client for the S3 endpoint an authorized session
// reported.
func NewFromSession(ctx context.Context, st b2.SessionState, creds b2.Credentials, logger *slog.Logger) (*Client, error) {
	keyID := creds.ApplicationKeyID
	if keyID == "" {
		keyID = creds.AccountID
	}
	return NewClient(ctx, Config{
		Endpoint:         st.S3APIURL,
		ApplicationKeyID: keyID,
		ApplicationKey:   creds.ApplicationKey,
	}, logger)
}

// RegionFromEndpoint returns the region label of an endpoint such as
// https://s3.us-west-004.backblazeb2.com, or DefaultRegion.
func RegionFromEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return DefaultRegion
	}
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) > 2 && labels[0] == "s3" && labels[1] != "" {
		return labels[1]
	}
	return DefaultRegion
}

// Region returns the signing region.
func (c *Client) Region() string {
	return c.region
}

// S3 returns the underlying SDK client.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// ListObjectKeys returns every key in bucket under prefix, following
// continuation tokens.
func (c *Client) ListObjectKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.translateError(err, "ListObjectsV2", bucket, prefix)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// HeadObject returns an object's metadata.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.translateError(err, "HeadObject", bucket, key)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		Metadata:     out.Metadata,
	}, nil
}

// GetObject reads an object. rangeHeader is an HTTP byte range or empty.
func (c *Client) GetObject(ctx context.Context, bucket, key, rangeHeader string) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if rangeHeader != "" {
		input.Range = aws.String(rangeHeader)
	}

	out, err := c.s3.GetObject(ctx, input)
	if err != nil {
		return nil, c.translateError(err, "GetObject", bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeNetworkError, "failed to read object body").
			WithComponent("s3compat").
			WithOperation("GetObject").
			WithContext("key", key).
			WithCause(err)
	}
	return data, nil
}

// PutObject writes an object.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return c.translateError(err, "PutObject", bucket, key)
	}
	c.logger.Debug("S3 object written", "bucket", bucket, "key", key, "size", len(data))
	return nil
}

// UploadObject writes an object, through the CargoShip transporter when the
// client was built with Accelerate. A failed accelerated upload is retried
// once with PutObject.
func (c *Client) UploadObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if !c.config.Accelerate {
		return c.PutObject(ctx, bucket, key, data, contentType)
	}

	metadata := map[string]string{}
	if contentType != "" {
		metadata["content-type"] = contentType
	}
	result, err := c.transporter(bucket).Upload(ctx, cargoships3.Archive{
		Key:          key,
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		StorageClass: awsconfig.StorageClassStandard,
		Metadata:     metadata,
	})
	if err == nil {
		c.logger.Debug("CargoShip upload completed",
			"bucket", bucket,
			"key", key,
			"size", len(data),
			"throughput", result.Throughput,
			"duration", result.Duration)
		return nil
	}

	c.logger.Warn("CargoShip upload failed, falling back to PutObject", "bucket", bucket, "key", key, "error", err)
	return c.PutObject(ctx, bucket, key, data, contentType)
}

// transporter returns the bucket's transporter, creating it on first use.
func (c *Client) transporter(bucket string) *cargoships3.Transporter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.transporters[bucket]; ok {
		return t
	}
	// B2 only has the STANDARD storage class.
	t := cargoships3.NewTransporter(c.s3, awsconfig.S3Config{
		Bucket:             bucket,
		StorageClass:       awsconfig.StorageClassStandard,
		MultipartThreshold: 32 * 1024 * 1024,
		MultipartChunkSize: 16 * 1024 * 1024,
		Concurrency:        c.config.Concurrency,
	})
	c.transporters[bucket] = t
	return t
}

func (c *Client) translateError(err error, operation, bucket, key string) error {
	e := errors.NewError(errors.ErrCodeAPIError, operation+" failed").
		WithComponent("s3compat").
		WithOperation(operation).
		WithContext("bucket", bucket).
		WithContext("key", key).
		WithCause(err)

	switch {
	case isErrorType[*s3types.NoSuchKey](err):
		e.Message = "object not found: " + key
		e.APICode = "NoSuchKey"
	case isErrorType[*s3types.NoSuchBucket](err):
		e.Message = "bucket not found: " + bucket
		e.APICode = "NoSuchBucket"
	case isErrorType[*s3types.NotFound](err):
		e.Message = "not found: " + key
		e.APICode = "NotFound"
	}
	return e
}

func isErrorType[T error](err error) bool {
	var target T
	return stderr.As(err, &target)
}
