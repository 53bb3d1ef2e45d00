// Package archive stores raw listing markup in S3-compatible object storage
// so extraction bugs can be replayed against the exact pages that were fetched.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/olekros/zvistka/internal/config"
	"github.com/olekros/zvistka/internal/logger"
	"github.com/olekros/zvistka/internal/utils"
)

// S3Archiver uploads gzip-compressed page snapshots keyed by fetch date and
// URL hash. Uploads are best effort and never block ingestion.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

// NewS3Archiver builds the archiver against the configured endpoint. Callers
// should check cfg.ArchiveEnabled() first.
func NewS3Archiver(ctx context.Context, cfg *appconfig.Config) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.ArchiveRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.ArchiveEndpoint)
		o.UsePathStyle = true
	})

	logger.Get().Info().
		Str("endpoint", cfg.ArchiveEndpoint).
		Str("bucket", cfg.ArchiveBucket).
		Msg("Page archiver initialized")

	return &S3Archiver{client: client, bucket: cfg.ArchiveBucket}, nil
}

// Save compresses and uploads one page of markup.
func (a *S3Archiver) Save(ctx context.Context, pageURL, markup string) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(markup)); err != nil {
		return fmt.Errorf("failed to compress page: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress page: %w", err)
	}

	key := objectKey(pageURL, time.Now().UTC())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("text/html; charset=utf-8"),
		ContentEncoding: aws.String("gzip"),
		Metadata:        map[string]string{"url": pageURL},
	})
	if err != nil {
		return fmt.Errorf("failed to upload page snapshot: %w", err)
	}

	logger.Get().Debug().Str("key", key).Str("url", pageURL).Msg("Page archived")
	return nil
}

func objectKey(pageURL string, at time.Time) string {
	return fmt.Sprintf("%s/%s.html.gz", at.Format("2006/01/02"), utils.Hash(pageURL))
}
