package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"sst-backend/internal/shared/storage/object"
	"sst-backend/internal/shared/util"
)

// Config selects the bucket and key layout. Endpoint is set for
// S3-compatible servers such as MinIO and switches to path-style addressing.
type Config struct {
	Region   string
	Bucket   string
	Prefix   string
	KMSKeyID string
	Endpoint string
}

type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps uploads, rendered documents and signed copies in one bucket.
// Keys handed to callers are relative; the prefix is applied here only.
type Store struct {
	client   api
	bucket   string
	prefix   string
	kmsKeyID string
}

// New creates an S3-backed object store using the default credential chain.
func New(ctx context.Context, cfg Config) (object.ObjectStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newStore(client, cfg), nil
}

func newStore(client api, cfg Config) *Store {
	return &Store{
		client:   client,
		bucket:   strings.TrimSpace(cfg.Bucket),
		prefix:   strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		kmsKeyID: strings.TrimSpace(cfg.KMSKeyID),
	}
}

// Save stores r under namespace with a collision-free object name and
// returns the relative key, the size and the detected content type.
func (s *Store) Save(ctx context.Context, namespace string, fileName string, r io.Reader) (string, int64, string, error) {
	finalName, err := util.ObjectName(fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("sanitize file name: %w", err)
	}
	storageKey, err := util.CleanKey(path.Join(namespace, finalName))
	if err != nil {
		return "", 0, "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", fmt.Errorf("read upload: %w", err)
	}
	mimeType := mimetype.Detect(data).String()
	if err := s.put(ctx, storageKey, mimeType, data); err != nil {
		return "", 0, "", err
	}
	return storageKey, int64(len(data)), mimeType, nil
}

// SaveWithKey writes data to an exact key, replacing any existing object.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	clean, err := util.CleanKey(storageKey)
	if err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read object: %w", err)
	}
	if err := s.put(ctx, clean, contentType, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Open streams a stored object. A missing key maps to object.ErrNotFound.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	key := s.objectKey(storageKey)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return nil, fmt.Errorf("s3 get %s: %w", key, object.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

// Delete removes a stored object. S3 deletes succeed for absent keys, so a
// HEAD runs first to report ErrNotFound the way the local store does.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	key := s.objectKey(storageKey)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isMissing(err) {
			return fmt.Errorf("s3 delete %s: %w", key, object.ErrNotFound)
		}
		return fmt.Errorf("s3 head bucket=%s key=%s: %w", s.bucket, key, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return nil
}

// put sends a fully buffered body so the SDK can sign and retry it. Objects
// are capped by the upload limit and the rendered PDF size, both small.
func (s *Store) put(ctx context.Context, storageKey, contentType string, data []byte) error {
	key := s.objectKey(storageKey)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *Store) objectKey(storageKey string) string {
	key := strings.TrimLeft(storageKey, "/")
	switch {
	case s.prefix == "":
		return key
	case key == "":
		return s.prefix
	default:
		return s.prefix + "/" + key
	}
}

func isMissing(err error) bool {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

var _ object.ObjectStore = (*Store)(nil)
