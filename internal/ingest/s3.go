package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/joseph-ayodele/candidate-search/internal/common"
)

// ObjectAPI is the subset of *s3.Client the source needs.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads resumes from an S3-compatible bucket (AWS, R2, MinIO).
type S3Source struct {
	client     ObjectAPI
	bucket     string
	prefix     string
	exts       map[string]struct{}
	skipHidden bool
	logger     *slog.Logger
}

// NewS3Client builds a client from the source config. A custom endpoint switches to
// path-style addressing; static keys override the default credential chain.
func NewS3Client(ctx context.Context, cfg common.SourceConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3Access != "" && cfg.S3Secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3Access, cfg.S3Secret, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Source(client ObjectAPI, bucket, prefix string, skipHidden bool, logger *slog.Logger) *S3Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Source{
		client:     client,
		bucket:     bucket,
		prefix:     prefix,
		exts:       ExtSet(nil),
		skipHidden: skipHidden,
		logger:     logger,
	}
}

// List pages through the prefix, keeps allowed extensions and downloads each object.
// Documents are ordered by key.
func (s *S3Source) List(ctx context.Context) ([]Document, DirStats, error) {
	start := time.Now()
	var stats DirStats
	var keys []string

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			var nb *types.NoSuchBucket
			if errors.As(err, &nb) {
				return nil, stats, common.NewAppError("SOURCE_NOT_FOUND", "bucket "+s.bucket+" does not exist", common.ErrSourceNotFound)
			}
			return nil, stats, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			stats.Scanned++
			if (s.skipHidden && IsHidden(key)) || !Allowed(key, s.exts) {
				stats.Skipped++
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		stats.Matched++
		data, err := s.download(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return docs, stats, ctx.Err()
			}
			s.logger.Warn("ingest.s3.get_error", "bucket", s.bucket, "key", key, "error", err)
			stats.Failed++
			continue
		}
		docs = append(docs, NewDocument(path.Base(key), key, data))
	}

	s.logger.Info("ingest.s3.ok",
		"bucket", s.bucket,
		"prefix", s.prefix,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return docs, stats, nil
}

func (s *S3Source) download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}
