// Package export writes the public user directory to an S3-compatible bucket
// as JSON lines, one PublicUser per line.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/meetauth/internal/filex"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/config"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/google/uuid"
)

// Uploader is the part of *s3.Client the exporter needs.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) Uploader {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Uploader builds an S3 client from the server config. Static
// credentials are used when an access key is set; otherwise the default AWS
// chain applies. A base endpoint switches to path-style addressing for MinIO
// and friends.
func NewS3Uploader(ctx context.Context, c *config.Config) (Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.S3Region),
	}
	if c.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.S3AccessKey, c.S3SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Result describes a finished export.
type Result struct {
	Bucket string
	Key    string
	Users  int
}

type Exporter struct {
	uploader Uploader
	bucket   string
	logger   logging.Logger
	now      func() time.Time
}

func NewExporter(u Uploader, bucket string, l logging.Logger) *Exporter {
	return &Exporter{uploader: u, bucket: bucket, logger: l.With("module", "export"), now: time.Now}
}

// ObjectKey names an export object: users/<date>/<uuid>.jsonl.
func (e *Exporter) ObjectKey() string {
	return fmt.Sprintf("users/%s/%s.jsonl", e.now().UTC().Format("2006-01-02"), uuid.NewString())
}

// Export drains seq and uploads it as one object. A sequence error aborts
// the export before anything is written.
func (e *Exporter) Export(ctx context.Context, seq iter.Seq2[*models.PublicUser, error]) (*Result, error) {
	if e.bucket == "" {
		return nil, fmt.Errorf("export bucket is not configured")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	n := 0
	for u, err := range seq {
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		if err := enc.Encode(u); err != nil {
			return nil, fmt.Errorf("encode user %s: %w", u.ID, err)
		}
		n++
	}

	key := e.ObjectKey()
	_, err := e.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	e.logger.Info(ctx, "user directory exported", "bucket", e.bucket, "key", key, "users", n)
	return &Result{Bucket: e.bucket, Key: key, Users: n}, nil
}

// DirUploader stores objects under Root/<bucket>/<key> on the local
// filesystem. It stands in for S3 when an export should stay on the host.
type DirUploader struct {
	Root string
}

func (d DirUploader) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.Root, aws.ToString(in.Bucket), filepath.FromSlash(aws.ToString(in.Key)))
	if _, err := filex.WriteFile(path, in.Body); err != nil {
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}
