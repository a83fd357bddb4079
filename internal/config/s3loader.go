package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Loader periodically fetches an object from S3 and hands it to a
// callback when it changes. ETags are used so unchanged objects cost a
// conditional GET. Fetch errors back off until the next interval.
type S3Loader struct {
	client   *s3.Client
	bucket   string
	key      string
	interval time.Duration
	apply    func(data []byte) error
	logger   *slog.Logger

	mu       sync.Mutex
	etag     string
	fetching bool
	lastErr  time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewS3Loader creates a loader for bucket/key that invokes apply with the
// object body whenever its contents change.
func NewS3Loader(client *s3.Client, bucket, key string, interval time.Duration, apply func(data []byte) error, logger *slog.Logger) *S3Loader {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &S3Loader{
		client:   client,
		bucket:   bucket,
		key:      key,
		interval: interval,
		apply:    apply,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins periodic fetching. The first fetch happens immediately.
func (l *S3Loader) Start(ctx context.Context) {
	go func() {
		defer close(l.doneCh)

		l.Fetch(ctx)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Fetch(ctx)
			case <-l.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts periodic fetching and waits for the loop to exit.
func (l *S3Loader) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

// Fetch retrieves the object if it has changed since the last fetch.
func (l *S3Loader) Fetch(ctx context.Context) {
	l.mu.Lock()
	if l.fetching {
		l.mu.Unlock()
		return
	}
	// Back off after an error until the next full interval has passed.
	if !l.lastErr.IsZero() && time.Since(l.lastErr) < l.interval {
		l.mu.Unlock()
		return
	}
	l.fetching = true
	etag := l.etag
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.fetching = false
		l.mu.Unlock()
	}()

	input := &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key),
	}
	if etag != "" {
		input.IfNoneMatch = aws.String(etag)
	}

	output, err := l.client.GetObject(ctx, input)
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			l.logger.Debug("remote config object not found", "bucket", l.bucket, "key", l.key)
			return
		}
		var apiErr interface{ ErrorCode() string }
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotModified" {
			return
		}
		l.mu.Lock()
		l.lastErr = time.Now()
		l.mu.Unlock()
		l.logger.Warn("failed to fetch remote config object", "bucket", l.bucket, "key", l.key, "error", err)
		return
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		l.mu.Lock()
		l.lastErr = time.Now()
		l.mu.Unlock()
		l.logger.Warn("failed to read remote config object", "key", l.key, "error", err)
		return
	}

	if err := l.apply(data); err != nil {
		l.logger.Warn("failed to apply remote config object", "key", l.key, "error", err)
		return
	}

	l.mu.Lock()
	if output.ETag != nil {
		l.etag = *output.ETag
	}
	l.lastErr = time.Time{}
	l.mu.Unlock()

	l.logger.Info("applied remote config object", "key", l.key, "bytes", len(data))
}
