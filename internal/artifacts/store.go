package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kshitij1706/fraud-anomaly-detection/internal/config"
	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
)

// Store reads artifact bytes by name.
type Store interface {
	// Get returns the artifact content. A missing artifact is reported as a
	// MISSING_ARTIFACT fault.
	Get(ctx context.Context, name string) ([]byte, error)

	// Location describes where name is read from, for logs and errors.
	Location(name string) string
}

// NewStore returns the store selected by cfg.Source.
func NewStore(ctx context.Context, cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Source {
	case config.SourceLocal, "":
		return NewLocalStore(cfg.Dir), nil
	case config.SourceS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown artifact source %q", cfg.Source)
	}
}

// LocalStore reads artifacts from a directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Get reads dir/name.
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, error) {
	p := s.Location(name)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, faults.NewMissingArtifact(p, err)
		}
		return nil, fmt.Errorf("failed to read artifact %s: %w", p, err)
	}
	return data, nil
}

// Location returns the file path of name.
func (s *LocalStore) Location(name string) string {
	return filepath.Join(s.dir, name)
}

// objectGetter is the subset of the S3 client used by S3Store.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads artifacts from an S3 bucket under a key prefix.
type S3Store struct {
	client objectGetter
	bucket string
	prefix string
}

// NewS3Store creates an S3 store using the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newS3StoreWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

func newS3StoreWithClient(client objectGetter, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Get downloads bucket/prefix/name.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, faults.NewMissingArtifact(s.Location(name), err)
		}
		return nil, fmt.Errorf("failed to download artifact %s: %w", s.Location(name), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", s.Location(name), err)
	}
	return data, nil
}

// Location returns the s3:// URL of name.
func (s *S3Store) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}
