// Package upload ships the output artifact to an S3-compatible object store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ErrNoCredentials means no usable object-store credentials were found.
var ErrNoCredentials = errors.New("credentials not available")

// Uploader puts a local file at bucket/key.
type Uploader interface {
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures NewS3. Empty fields use the default AWS chain.
type Options struct {
	Region          string
	Endpoint        string // S3-compatible endpoint; enables path-style addressing
	AccessKeyID     string
	SecretAccessKey string
	Log             *zap.Logger
}

type S3 struct {
	client PutObjectAPI
	creds  aws.CredentialsProvider
	log    *zap.Logger
}

// NewS3 builds an uploader from the shared AWS config (env, profile, instance
// role), overridden by any static keys in opts.
func NewS3(ctx context.Context, opts Options) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WithClient(client, cfg.Credentials, opts.Log), nil
}

// NewS3WithClient wires an uploader around an existing client.
func NewS3WithClient(client PutObjectAPI, creds aws.CredentialsProvider, log *zap.Logger) *S3 {
	if log == nil {
		log = zap.NewNop()
	}
	return &S3{client: client, creds: creds, log: log}
}

// Upload puts localPath at bucket/key. Missing credentials are reported as
// ErrNoCredentials; every failure is logged before it is returned.
func (u *S3) Upload(ctx context.Context, localPath, bucket, key string) error {
	if key == "" {
		key = filepath.Base(localPath)
	}

	if err := u.checkCredentials(ctx); err != nil {
		u.log.Error("credentials not available", zap.String("bucket", bucket), zap.Error(err))
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		u.log.Error("upload failed", zap.String("file", localPath), zap.Error(err))
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		u.log.Error("upload failed", zap.String("file", localPath), zap.String("target", Target(bucket, key)), zap.Error(err))
		return fmt.Errorf("put %s: %w", Target(bucket, key), err)
	}

	u.log.Info("file uploaded", zap.String("file", localPath), zap.String("target", Target(bucket, key)))
	return nil
}

func (u *S3) checkCredentials(ctx context.Context) error {
	if u.creds == nil {
		return ErrNoCredentials
	}
	c, err := u.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	if !c.HasKeys() {
		return ErrNoCredentials
	}
	return nil
}

// ObjectKey joins an optional prefix and the file's base name.
func ObjectKey(prefix, localPath string) string {
	base := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// Target formats bucket/key as an s3:// URI.
func Target(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}
