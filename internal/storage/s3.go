package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectClient is the narrow slice of an S3-compatible client the adapter
// needs. Tests substitute an in-memory implementation.
type objectClient interface {
	// Stat returns the object size. exists is false when the key is absent.
	Stat(ctx context.Context, key string) (size int64, exists bool, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, size int64) error
}

// S3Options configures the remote adapter.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Key       string
}

// s3Adapter backs the database with a blob in an S3-compatible bucket.
// Initialize downloads the blob into a temporary working copy (or starts
// fresh when the key is absent); Persist checkpoints, uploads, and verifies
// the remote size against the bytes written.
type s3Adapter struct {
	client    objectClient
	key       string
	logger    *slog.Logger
	workDir   string
	localPath string
	db        *DB
}

// NewS3Adapter returns an Adapter for a database blob in an S3-compatible
// bucket.
func NewS3Adapter(opts S3Options, logger *slog.Logger) (Adapter, error) {
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, &StorageError{Op: "create s3 client", Err: err}
	}
	return &s3Adapter{
		client: &minioObjectClient{client: mc, bucket: opts.Bucket},
		key:    opts.Key,
		logger: logger,
	}, nil
}

func (a *s3Adapter) Initialize(ctx context.Context) (*DB, error) {
	workDir, err := os.MkdirTemp("", "qualgate-db-")
	if err != nil {
		return nil, &StorageError{Op: "create working directory", Err: err}
	}
	a.workDir = workDir
	a.localPath = filepath.Join(workDir, uuid.New().String()+".db")

	_, exists, err := a.client.Stat(ctx, a.key)
	if err != nil {
		return nil, &StorageError{Op: fmt.Sprintf("stat %s", a.key), Err: err}
	}

	if !exists {
		// First run against this key: start from an empty database.
		a.logger.Info("remote database absent, starting fresh", "key", a.key)
	} else {
		if err := a.download(ctx); err != nil {
			return nil, err
		}
	}

	db, err := Open(a.localPath, a.logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *s3Adapter) download(ctx context.Context) error {
	rc, err := a.client.Get(ctx, a.key)
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("download %s", a.key), Err: err}
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("read %s", a.key), Err: err}
	}
	if err := validateSQLiteHeader(payload); err != nil {
		return err
	}
	if err := os.WriteFile(a.localPath, payload, 0o600); err != nil {
		return &StorageError{Op: "write working copy", Err: err}
	}
	a.logger.Info("downloaded database", "key", a.key, "bytes", len(payload))
	return nil
}

// validateSQLiteHeader rejects payloads that are not a SQLite database
// before any handle is opened on them.
func validateSQLiteHeader(payload []byte) error {
	if len(payload) < len(sqliteMagic) {
		return &StorageError{Op: "validate blob", Err: fmt.Errorf("payload is %d bytes, shorter than the SQLite header", len(payload))}
	}
	if !bytes.Equal(payload[:len(sqliteMagic)], []byte(sqliteMagic)) {
		return &StorageError{Op: "validate blob", Err: errors.New("payload does not start with the SQLite magic header")}
	}
	return nil
}

func (a *s3Adapter) Persist(ctx context.Context) error {
	if a.db == nil {
		return &StorageError{Op: "persist before initialize"}
	}
	if err := a.db.Checkpoint(ctx); err != nil {
		return &StorageError{Op: "checkpoint before upload", Err: err}
	}

	payload, err := os.ReadFile(a.localPath)
	if err != nil {
		return &StorageError{Op: "read working copy", Err: err}
	}
	if err := a.client.Put(ctx, a.key, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return &StorageError{Op: fmt.Sprintf("upload %s", a.key), Err: err}
	}

	// Do not assume the upload succeeded: re-check existence and size.
	size, exists, err := a.client.Stat(ctx, a.key)
	if err != nil {
		return &StorageError{Op: fmt.Sprintf("verify upload of %s", a.key), Err: err}
	}
	if !exists {
		return &StorageError{Op: fmt.Sprintf("verify upload of %s", a.key), Err: errors.New("object absent after upload")}
	}
	if size != int64(len(payload)) {
		return &StorageError{
			Op:  fmt.Sprintf("verify upload of %s", a.key),
			Err: fmt.Errorf("remote size %d does not match %d bytes written", size, len(payload)),
		}
	}
	a.logger.Info("persisted database", "key", a.key, "bytes", len(payload))
	return nil
}

func (a *s3Adapter) Cleanup() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	if a.workDir != "" {
		if rmErr := os.RemoveAll(a.workDir); rmErr != nil && err == nil {
			err = rmErr
		}
		a.workDir = ""
	}
	return err
}

// minioObjectClient adapts the minio SDK to objectClient.
type minioObjectClient struct {
	client *minio.Client
	bucket string
}

func (c *minioObjectClient) Stat(ctx context.Context, key string) (int64, bool, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return 0, false, nil
		}
		return 0, false, err
	}
	return info.Size, true, nil
}

func (c *minioObjectClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *minioObjectClient) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}
