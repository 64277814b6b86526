// Package storage wraps the S3-compatible bucket that holds flat photos.
// Objects are keyed flats/<flatID>/<photoID>.<ext>, so everything belonging
// to a flat can be listed or purged by prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"flatfinder/internal/config"
)

const flatsPrefix = "flats/"

var ErrObjectNotFound = errors.New("object not found")

type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) Bucket() string {
	return s.cfg.BucketPhotos
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	bucket := s.cfg.BucketPhotos
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.cfg.BucketPhotos)
	return err
}

func (s *ObjectStore) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.cfg.BucketPhotos, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// GetObject stats the object first so a missing key surfaces as
// ErrObjectNotFound instead of a failed read later on.
func (s *ObjectStore) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.BucketPhotos, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object %s: %w", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("stat object %s: %w", key, err)
	}
	return obj, info.Size, nil
}

func (s *ObjectStore) RemoveObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.BucketPhotos, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// RemovePrefix deletes every object under prefix and returns how many were
// removed.
func (s *ObjectStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	removed := 0

	go func() {
		defer close(objects)
		for obj := range s.client.ListObjects(ctx, s.cfg.BucketPhotos, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case objects <- obj:
				removed++
			case <-ctx.Done():
				return
			}
		}
	}()

	// RemoveObjects drains objects before closing its result channel, so
	// removed is final once the loop below ends.
	var firstErr error
	for res := range s.client.RemoveObjects(ctx, s.cfg.BucketPhotos, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", res.ObjectName, res.Err)
		}
	}

	select {
	case err := <-listErr:
		return removed, fmt.Errorf("list %s: %w", prefix, err)
	default:
	}
	if firstErr != nil {
		return removed, firstErr
	}
	return removed, nil
}

// ListFlatIDs returns the flat ids that currently own at least one object.
func (s *ObjectStore) ListFlatIDs(ctx context.Context) ([]string, error) {
	var flatIDs []string
	for obj := range s.client.ListObjects(ctx, s.cfg.BucketPhotos, minio.ListObjectsOptions{Prefix: flatsPrefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list flat prefixes: %w", obj.Err)
		}
		if id := FlatIDFromPrefix(obj.Key); id != "" {
			flatIDs = append(flatIDs, id)
		}
	}
	return flatIDs, nil
}

func PhotoKey(flatID, photoID, ext string) string {
	return flatsPrefix + flatID + "/" + photoID + "." + ext
}

func FlatPrefix(flatID string) string {
	return flatsPrefix + flatID + "/"
}

// FlatIDFromPrefix extracts the flat id from "flats/<id>/" or any key below it.
func FlatIDFromPrefix(key string) string {
	rest, ok := strings.CutPrefix(key, flatsPrefix)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
