package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bilgisen/quickbyte/internal/config"
	"github.com/bilgisen/quickbyte/internal/models"
)

// ObjectPutter is the subset of the S3 API the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archiver writes batches of evicted articles to an R2 (S3 compatible)
// bucket as JSON Lines, one object per sweep.
type R2Archiver struct {
	client ObjectPutter
	bucket string
	now    func() time.Time
}

// NewR2Archiver builds an S3 client pointed at the configured R2 account.
func NewR2Archiver(ctx context.Context, cfg *config.Config) (*R2Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}

	endpoint := cfg.R2Endpoint
	if endpoint == "" && cfg.R2AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return NewArchiver(client, cfg.R2Bucket), nil
}

// NewArchiver wraps an existing client.
func NewArchiver(client ObjectPutter, bucket string) *R2Archiver {
	return &R2Archiver{client: client, bucket: bucket, now: time.Now}
}

// Archive uploads the articles. An empty batch is a no-op.
func (a *R2Archiver) Archive(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range articles {
		if err := enc.Encode(&articles[i]); err != nil {
			return fmt.Errorf("encoding article %s: %w", articles[i].URL, err)
		}
	}

	key := ObjectKey(a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// ObjectKey is the bucket key for a sweep run at t.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("evicted/%s/%d.jsonl", t.Format("2006/01/02"), t.Unix())
}
