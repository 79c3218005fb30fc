// Package storage reads inputs from and writes outputs to local files or
// S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"atstailor/internal/config"
	"atstailor/internal/errors"
	"atstailor/internal/retry"
)

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Location is a parsed storage URI.
type Location struct {
	Bucket string // empty for local files
	Key    string // object key or local path
}

func (l Location) IsRemote() bool { return l.Bucket != "" }

func (l Location) String() string {
	if l.IsRemote() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Key
}

// Name is the base name used for format detection.
func (l Location) Name() string {
	return filepath.Base(l.Key)
}

// ParseURI accepts s3://bucket/key, file:///path and plain paths.
func ParseURI(uri string) (Location, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		u, err := url.Parse(uri)
		if err != nil {
			return Location{}, errors.NewValidationError(errors.ErrCodeInvalidInput, "invalid storage URI", err).
				WithContext("uri", uri)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.NewValidationError(errors.ErrCodeInvalidInput, "s3 URI needs a bucket and a key", nil).
				WithContext("uri", uri)
		}
		return Location{Bucket: u.Host, Key: key}, nil
	case strings.HasPrefix(uri, "file://"):
		return Location{Key: strings.TrimPrefix(uri, "file://")}, nil
	case strings.TrimSpace(uri) == "":
		return Location{}, errors.NewValidationError(errors.ErrCodeInvalidInput, "empty storage URI", nil)
	default:
		return Location{Key: uri}, nil
	}
}

// Object is a fetched document.
type Object struct {
	Location    Location
	ContentType string
	Data        []byte
}

// Store opens and writes documents. The S3 client is built on first use.
type Store struct {
	cfg     config.StorageConfig
	maxSize int64
	retry   retry.Config
	logger  *errors.Logger

	once      sync.Once
	client    ObjectAPI
	clientErr error
	newClient func(context.Context) (ObjectAPI, error)
}

// New returns a store that loads AWS configuration lazily.
func New(cfg config.StorageConfig, maxSize int64, logger *errors.Logger) *Store {
	s := newStore(cfg, maxSize, logger)
	s.newClient = func(ctx context.Context) (ObjectAPI, error) { return NewS3Client(ctx, cfg) }
	return s
}

// NewWithClient returns a store backed by client.
func NewWithClient(client ObjectAPI, cfg config.StorageConfig, maxSize int64, logger *errors.Logger) *Store {
	s := newStore(cfg, maxSize, logger)
	s.newClient = func(context.Context) (ObjectAPI, error) { return client, nil }
	return s
}

func newStore(cfg config.StorageConfig, maxSize int64, logger *errors.Logger) *Store {
	if logger == nil {
		logger = errors.Discard()
	}
	rc := retry.Default
	rc.MaxRetries = cfg.MaxRetries
	rc.Retryable = isTransient
	return &Store{cfg: cfg, maxSize: maxSize, retry: rc, logger: logger}
}

// NewS3Client builds an S3 client. A custom endpoint and static credentials
// make it work against R2 or MinIO.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load AWS configuration", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (s *Store) objectClient(ctx context.Context) (ObjectAPI, error) {
	s.once.Do(func() {
		s.client, s.clientErr = s.newClient(ctx)
	})
	return s.client, s.clientErr
}

// Open reads the document at uri.
func (s *Store) Open(ctx context.Context, uri string) (*Object, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if loc.IsRemote() {
		return s.openRemote(ctx, loc)
	}
	return s.openLocal(loc)
}

func (s *Store) openLocal(loc Location) (*Object, error) {
	info, err := os.Stat(loc.Key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "file not found", err).WithContext("path", loc.Key)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "cannot stat file", err).WithContext("path", loc.Key)
	}
	if info.IsDir() {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "path is a directory", nil).WithContext("path", loc.Key)
	}
	if err := s.checkSize(info.Size(), loc); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(loc.Key)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read file", err).WithContext("path", loc.Key)
	}
	return &Object{Location: loc, ContentType: mime.TypeByExtension(filepath.Ext(loc.Key)), Data: data}, nil
}

func (s *Store) openRemote(ctx context.Context, loc Location) (*Object, error) {
	client, err := s.objectClient(ctx)
	if err != nil {
		return nil, err
	}

	obj, err := retry.Do(ctx, s.retry, func() (*Object, error) {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		if out.ContentLength != nil {
			if err := s.checkSize(*out.ContentLength, loc); err != nil {
				return nil, err
			}
		}
		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, s.limit(out.Body)); err != nil {
			return nil, fmt.Errorf("failed to read object body: %w", err)
		}
		if err := s.checkSize(int64(buf.Len()), loc); err != nil {
			return nil, err
		}
		return &Object{Location: loc, ContentType: aws.ToString(out.ContentType), Data: buf.Bytes()}, nil
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, errors.NewStorageError(errors.ErrCodeFileNotFound, "object not found", err).WithContext("uri", loc.String())
		}
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to download object", err).WithContext("uri", loc.String())
	}
	s.logger.Debug("downloaded object", "uri", loc.String(), "bytes", len(obj.Data))
	return obj, nil
}

// Put writes data to uri, creating parent directories for local paths.
func (s *Store) Put(ctx context.Context, uri string, data []byte, contentType string) error {
	loc, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if !loc.IsRemote() {
		if dir := filepath.Dir(loc.Key); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.NewIOError(errors.ErrCodeStorageFailed, "failed to create output directory", err).WithContext("path", dir)
			}
		}
		if err := os.WriteFile(loc.Key, data, 0o644); err != nil {
			return errors.NewIOError(errors.ErrCodeStorageFailed, "failed to write file", err).WithContext("path", loc.Key)
		}
		return nil
	}

	client, err := s.objectClient(ctx)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	err = retry.Run(ctx, s.retry, func() error {
		ctx, cancel := s.withTimeout(ctx)
		defer cancel()
		_, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(loc.Bucket),
			Key:         aws.String(loc.Key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return err
	})
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to upload object", err).WithContext("uri", loc.String())
	}
	s.logger.Debug("uploaded object", "uri", loc.String(), "bytes", len(data))
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Store) limit(r io.Reader) io.Reader {
	if s.maxSize <= 0 {
		return r
	}
	return io.LimitReader(r, s.maxSize+1)
}

func (s *Store) checkSize(size int64, loc Location) error {
	if s.maxSize > 0 && size > s.maxSize {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("document exceeds maximum size of %d bytes", s.maxSize), nil).
			WithContext("uri", loc.String()).
			WithContext("size", size)
	}
	return nil
}

// isTransient retries everything except missing objects, size violations
// and cancellation.
func isTransient(err error) bool {
	var noKey *types.NoSuchKey
	if stderrors.As(err, &noKey) {
		return false
	}
	if _, ok := err.(*errors.AppError); ok {
		return false
	}
	return retry.Always(err)
}
