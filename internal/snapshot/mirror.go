package snapshot

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter is the subset of the S3 client used by the mirror
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror copies persisted snapshots to an S3 bucket
type Mirror struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// MirrorConfig contains configuration for the S3 mirror
type MirrorConfig struct {
	Bucket  string
	Prefix  string // e.g., "usagesync/"
	Region  string
	Profile string
}

// NewMirror creates a mirror using the default AWS credential chain
func NewMirror(ctx context.Context, cfg MirrorConfig, logger *zap.Logger) (*Mirror, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return NewMirrorWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewMirrorWithClient creates a mirror around an existing client
func NewMirrorWithClient(client ObjectPutter, bucket, prefix string, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Key returns the object key for a local snapshot path
func (m *Mirror) Key(localPath string) string {
	return path.Join(m.prefix, filepath.Base(localPath))
}

// Upload copies the file at localPath to the bucket
func (m *Mirror) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking snapshot: %w", err)
	}

	key := m.Key(localPath)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/vnd.apache.parquet"),
		Metadata: map[string]string{
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", m.bucket, key, err)
	}

	m.logger.Info("mirrored snapshot",
		zap.String("bucket", m.bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size()))
	return nil
}
