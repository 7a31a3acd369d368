// Package archive exports the message log to S3-compatible object
// storage (MinIO in the default deployment). Export is strictly
// best-effort: chat keeps running when the object store is down.
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
	"github.com/google/uuid"

	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/repositories/messages"
)

// seams for tests
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the slice of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures the archiver.
type Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	RootUser     string // MINIO_ROOT_USER
	RootPassword string // MINIO_ROOT_PASSWORD
	Interval     time.Duration
}

// Archiver periodically snapshots messages appended since the previous
// export and uploads them as one JSON object per batch.
type Archiver struct {
	repo   messages.Repository
	opts   Options
	logger logging.Logger

	client ObjectPutter

	// test seams
	now   func() time.Time
	newID func() string
}

func New(repo messages.Repository, opts Options, logger logging.Logger) (*Archiver, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.RootUser,
			opts.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading object store config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &Archiver{
		repo:   repo,
		opts:   opts,
		logger: logger.With("module", "archiver"),
		client: client,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// storageKey partitions exports by date so retention tooling can prune
// whole prefixes.
func (a *Archiver) storageKey(at time.Time) string {
	return fmt.Sprintf("chatlog/%d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), a.newID())
}

// Run exports on every tick until ctx is cancelled, then performs one
// final export so a graceful shutdown never loses the tail of the log.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	since := a.now()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.export(flushCtx, since)
			return
		case <-ticker.C:
			if next, err := a.exportSince(ctx, since); err == nil {
				since = next
			}
		}
	}
}

func (a *Archiver) export(ctx context.Context, since time.Time) {
	if _, err := a.exportSince(ctx, since); err != nil {
		a.logger.Warn(ctx, "final export failed", "error", err)
	}
}

// exportSince uploads all messages appended at or after since. It
// returns the cutoff for the next batch; on any failure the caller keeps
// the old cutoff so nothing is skipped.
func (a *Archiver) exportSince(ctx context.Context, since time.Time) (time.Time, error) {
	cutoff := a.now()

	batch, err := a.repo.ListSince(ctx, since)
	if err != nil {
		a.logger.Warn(ctx, "listing messages for export failed", "error", err)
		return time.Time{}, err
	}
	if len(batch) == 0 {
		return cutoff, nil
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return time.Time{}, err
	}

	key := a.storageKey(cutoff)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Warn(ctx, "uploading export failed", "key", key, "error", err)
		return time.Time{}, err
	}

	a.logger.Info(ctx, "exported message batch", "key", key, "count", len(batch))
	return cutoff, nil
}
