// Package s3 is an export store backed by AWS S3 or an S3 compatible server (e.g. MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/opst/seqmap/pkg/export"
)

var ErrBucketRequired = errors.New("s3 bucket required")

// Config of the store.
//
// Credentials not given here are taken from the default chain
// (AWS_ACCESS_KEY_ID, shared config files, instance roles and so on).
type Config struct {
	Bucket string

	// key prefix of objects. Optional.
	Prefix string

	// default: us-east-1
	Region string

	// optional. Set this for S3 compatible servers.
	Endpoint string

	PathStyle bool

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates a Store.
//
// optFns are applied to the S3 client options after Config.
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){
		func(o *s3.Options) {
			if cfg.PathStyle {
				o.UsePathStyle = true
			}
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		},
	}, optFns...)...)

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads r as an object.
//
// Content is buffered in memory to send it with a known length.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (export.Info, error) {
	key, err := export.CleanKey(key)
	if err != nil {
		return export.Info{}, err
	}
	objectKey := key
	if s.prefix != "" {
		objectKey = path.Join(s.prefix, key)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return export.Info{}, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return export.Info{}, fmt.Errorf("s3://%s/%s: %w", s.bucket, objectKey, err)
	}

	return export.Info{
		Driver:      export.DriverS3,
		Key:         key,
		Location:    fmt.Sprintf("s3://%s/%s", s.bucket, objectKey),
		Size:        int64(len(body)),
		ContentType: contentType,
	}, nil
}
