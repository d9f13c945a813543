package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/internal/pkg/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes deliveries as JSON objects to a bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// New returns the archiver selected by cfg: S3 when enabled, Noop otherwise.
func New(ctx context.Context, cfg config.ArchiveConfig, appEnv string) (Archiver, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewS3Archiver(ctx, cfg, appEnv)
}

// NewS3Archiver creates the S3 client and checks that the bucket is
// reachable. Outside prod a missing bucket is created.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig, appEnv string) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		if appEnv == "prod" {
			return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.BucketName, err)
		}
		log.Warnf("[Archive] Bucket %s not found, attempting to create it", cfg.BucketName)
		input := &s3.CreateBucketInput{Bucket: aws.String(cfg.BucketName)}
		if cfg.EndpointURL == "" && cfg.Region != "us-east-1" {
			input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(cfg.Region),
			}
		}
		if _, err := client.CreateBucket(ctx, input); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.BucketName, err)
		}
	}

	log.Infof("[Archive] Archiving webhook deliveries to bucket: %s", cfg.BucketName)
	return &S3Archiver{client: client, bucket: cfg.BucketName, prefix: cfg.Prefix}, nil
}

// Archive uploads the raw body. Event id and type travel as object metadata.
func (a *S3Archiver) Archive(ctx context.Context, d Delivery) error {
	key := ObjectKey(a.prefix, d)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(d.Body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"event-id":   d.EventID,
			"event-type": d.EventType,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
