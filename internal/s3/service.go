package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/flexprice/lockbox/internal/config"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
)

const defaultMaxRetries = 3

type Service interface {
	// GetLockboxFile downloads the object named by an s3://bucket/key uri
	GetLockboxFile(ctx context.Context, uri string) (*LockboxFile, error)
}

// objectGetter is the part of *s3.Client the service needs
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3ServiceImpl struct {
	client     objectGetter
	maxRetries uint64
	maxSize    int64
	newBackOff func() backoff.BackOff
	logger     *logger.Logger
}

// NewService returns nil when S3 is disabled
func NewService(ctx context.Context, cfg *config.Configuration, logger *logger.Logger) (Service, error) {
	if !cfg.S3.Enabled {
		return nil, nil
	}

	awsCfg, err := config.LoadAwsConfig(ctx, cfg.S3)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to load aws config").
			Mark(ierr.ErrHTTPClient)
	}
	return newService(config.NewS3Client(awsCfg, cfg.S3), cfg.S3.MaxRetries, cfg.Lockbox.MaxFileSizeBytes, logger), nil
}

// newService reads at most maxSize bytes of an object; zero means no limit
func newService(client objectGetter, maxRetries uint64, maxSize int64, logger *logger.Logger) *s3ServiceImpl {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	return &s3ServiceImpl{
		client:     client,
		maxRetries: maxRetries,
		maxSize:    maxSize,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger,
	}
}

func (s *s3ServiceImpl) GetLockboxFile(ctx context.Context, uri string) (*LockboxFile, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	var data []byte
	attempt := 0
	op := func() error {
		attempt++
		data, err = s.getObject(ctx, bucket, key)
		if err == nil {
			return nil
		}
		if ierr.IsValidation(err) {
			return backoff.Permanent(err)
		}

		var nsk *types.NoSuchKey
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsk) || errors.As(err, &nsb) {
			return backoff.Permanent(ierr.WithError(err).
				WithHintf("Lockbox file %s not found", uri).
				WithReportableDetails(map[string]any{"bucket": bucket, "key": key}).
				Mark(ierr.ErrNotFound))
		}

		s.logger.Warnw("failed to fetch lockbox file",
			"bucket", bucket,
			"key", key,
			"attempt", attempt,
			"error", err,
		)
		return ierr.WithError(err).
			WithHint("failed to get lockbox file").
			WithMessagef("bucket:%s, key:%s", bucket, key).
			Mark(ierr.ErrHTTPClient)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	return &LockboxFile{Bucket: bucket, Key: key, Data: data}, nil
}

func (s *s3ServiceImpl) getObject(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	if s.maxSize <= 0 {
		return io.ReadAll(result.Body)
	}

	data, err := io.ReadAll(io.LimitReader(result.Body, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxSize {
		return nil, ierr.NewErrorf("object s3://%s/%s is larger than %d bytes", bucket, key, s.maxSize).
			WithHintf("Lockbox files may be at most %d bytes", s.maxSize).
			WithReportableDetails(map[string]any{"bucket": bucket, "key": key, "max_size": s.maxSize}).
			Mark(ierr.ErrValidation)
	}
	return data, nil
}
