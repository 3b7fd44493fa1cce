// Package archive implements the optional write-behind object-storage
// mirror (§11): after a gathered write's Commit (§4.7.1) succeeds
// against the local filesystem, the committed byte range can
// optionally be mirrored to an S3-compatible bucket on a background
// goroutine. The local filesystem remains the authoritative store;
// this package is never on the read path, only a durability mirror a
// deployment can opt into.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sharewire/sharewire/internal/logger"
)

// newBytesReader adapts a byte slice to the io.Reader PutObject needs.
func newBytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

// DefaultQueueSize bounds how many pending mirror jobs are buffered
// before Mirror starts dropping work rather than blocking the caller's
// commit path.
const DefaultQueueSize = 256

// Config configures the S3-compatible mirror target.
type Config struct {
	// Enabled gates the whole package: when false, New returns a nil
	// Archiver and every handler-side Mirror call is a no-op.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Bucket          string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// Endpoint overrides the default AWS endpoint resolution, for
	// S3-compatible object stores (MinIO, Localstack, ...).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// QueueSize bounds the background mirror queue. Zero uses
	// DefaultQueueSize.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size,omitempty"`
}

// job is one pending mirror upload.
type job struct {
	key  string
	data []byte
}

// putter is the s3.Client surface Archiver depends on, narrowed so
// tests can substitute a fake rather than reach the network.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver mirrors committed byte ranges to one S3 bucket on a
// background goroutine. A nil *Archiver is valid and treated as
// "archiving disabled" by every method.
type Archiver struct {
	client putter
	bucket string

	queue chan job
	wg    sync.WaitGroup
	done  chan struct{}
}

// New builds an Archiver from cfg. Returns (nil, nil) when cfg.Enabled
// is false, so callers can always hold an *Archiver field and check it
// for nil rather than branching on a separate enabled flag.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg.Bucket, cfg.QueueSize), nil
}

// newWithClient builds an Archiver around an already-constructed
// putter, letting tests substitute a fake in place of a real
// *s3.Client.
func newWithClient(client putter, bucket string, queueSize int) *Archiver {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	a := &Archiver{
		client: client,
		bucket: bucket,
		queue:  make(chan job, queueSize),
		done:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Mirror enqueues shareName/relPath's committed byte range, identified
// by its offset and length, for background upload. Never blocks: if
// the queue is full the job is dropped and logged, since this mirror
// is a best-effort durability extra, not a guarantee the write path
// depends on.
func (a *Archiver) Mirror(shareName, relPath string, offset int64, data []byte) {
	if a == nil {
		return
	}
	key := fmt.Sprintf("%s/%s/%d-%d", shareName, relPath, offset, offset+int64(len(data)))
	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case a.queue <- job{key: key, data: buf}:
	default:
		logger.Warn("archive: mirror queue full, dropping chunk", logger.Key(key))
	}
}

// Close stops the background worker, waiting for in-flight uploads
// (but not queued ones) to finish. Safe to call on a nil Archiver.
func (a *Archiver) Close() {
	if a == nil {
		return
	}
	close(a.done)
	a.wg.Wait()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case j := <-a.queue:
			a.upload(j)
		}
	}
}

func (a *Archiver) upload(j job) {
	ctx := context.Background()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(j.key),
		Body:   newBytesReader(j.data),
	})
	if err != nil {
		logger.Warn("archive: mirror upload failed", logger.Key(j.key), logger.Err(err))
	}
}
