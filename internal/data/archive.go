package data

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
)

// objectPutter is the S3 call used by the archive
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveConfig configures S3 archival
type ArchiveConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	Prefix          string
}

// s3Archive stores report artifacts in an S3 bucket
type s3Archive struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Archive creates an archive backed by S3
func NewS3Archive(ctx context.Context, cfg ArchiveConfig) (repo.ArchiveRepo, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newS3Archive(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(client objectPutter, bucket, prefix string) *s3Archive {
	return &s3Archive{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads body under prefix/name
func (a *s3Archive) Put(ctx context.Context, name, contentType string, body []byte) error {
	key := path.Join(a.prefix, name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
