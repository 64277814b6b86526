package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"flatfinder/internal/config"
	"flatfinder/internal/ids"
	"flatfinder/internal/media/sniffer"
	"flatfinder/internal/models"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
	"flatfinder/internal/storage"
)

// ObjectStore is the subset of the bucket client photos need.
type ObjectStore interface {
	Bucket() string
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)
	RemoveObject(ctx context.Context, key string) error
}

type PhotoService struct {
	photos   repository.PhotoRepository
	flats    repository.FlatRepository
	objects  ObjectStore
	secret   string
	maxBytes int64
	log      zerolog.Logger
}

func NewPhotoService(
	photos repository.PhotoRepository,
	flats repository.FlatRepository,
	objects ObjectStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *PhotoService {
	return &PhotoService{
		photos:   photos,
		flats:    flats,
		objects:  objects,
		secret:   cfg.Security.SignatureSecret,
		maxBytes: cfg.Storage.MaxPhotoBytes,
		log:      log,
	}
}

type UploadInput struct {
	File         io.Reader
	DeclaredType string
}

type PhotoView struct {
	models.Photo
	URL string `json:"url"`
}

func (s *PhotoService) Upload(ctx context.Context, actor security.Identity, flatID string, input UploadInput) (PhotoView, error) {
	flat, err := s.flats.GetByID(ctx, flatID)
	if err != nil {
		return PhotoView{}, err
	}
	if !actor.CanActOn(flat.OwnerID) {
		return PhotoView{}, ErrForbidden
	}
	if input.File == nil {
		return PhotoView{}, invalid("Invalid photo.", "file", "is required")
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxBytes+1))
	if err != nil {
		return PhotoView{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return PhotoView{}, ErrPhotoTooLarge
	}
	if len(data) == 0 {
		return PhotoView{}, invalid("Invalid photo.", "file", "is empty")
	}

	detected, err := sniffer.DetectHead(head(data))
	if err != nil {
		return PhotoView{}, invalid("Invalid photo.", "file", "must be a jpeg, png, gif, webp or avif image")
	}
	if err := sniffer.CheckDeclared(input.DeclaredType, detected); err != nil {
		return PhotoView{}, invalid("Invalid photo.", "file", fmt.Sprintf("declared %s but contains %s", sniffer.BaseMIME(input.DeclaredType), detected.MIME))
	}

	photoID := ids.New()
	objectKey := storage.PhotoKey(flat.ID, photoID, detected.Extension())
	if err := s.objects.PutObject(ctx, objectKey, bytes.NewReader(data), int64(len(data)), detected.MIME); err != nil {
		return PhotoView{}, err
	}

	sum := sha256.Sum256(data)
	photo := models.Photo{
		ID:        photoID,
		FlatID:    flat.ID,
		OwnerID:   flat.OwnerID,
		Bucket:    s.objects.Bucket(),
		ObjectKey: objectKey,
		Format:    string(detected.Type),
		SizeBytes: int64(len(data)),
		Checksum:  sum[:],
		Signature: security.SignResource(s.secret, photoID, objectKey),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		if rmErr := s.objects.RemoveObject(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("remove orphaned upload failed")
		}
		return PhotoView{}, fmt.Errorf("save photo metadata: %w", err)
	}

	s.log.Info().Str("photo_id", photo.ID).Str("flat_id", flat.ID).Int64("size_bytes", photo.SizeBytes).Msg("photo uploaded")
	return s.view(photo), nil
}

func (s *PhotoService) List(ctx context.Context, flatID string) ([]PhotoView, error) {
	if _, err := s.flats.GetByID(ctx, flatID); err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}
	views := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		views = append(views, s.view(p))
	}
	return views, nil
}

type PhotoContent struct {
	Photo models.Photo
	Body  io.ReadCloser
	Size  int64
	MIME  string
}

// Open streams a photo for a valid signature. A bad signature is reported
// as not found so ids cannot be probed.
func (s *PhotoService) Open(ctx context.Context, id, signature string) (PhotoContent, error) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return PhotoContent{}, err
	}
	if !security.VerifyResource(s.secret, signature, photo.ID, photo.ObjectKey) {
		return PhotoContent{}, repository.ErrPhotoNotFound
	}

	body, size, err := s.objects.GetObject(ctx, photo.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return PhotoContent{}, repository.ErrPhotoNotFound
	}
	if err != nil {
		return PhotoContent{}, err
	}
	return PhotoContent{Photo: photo, Body: body, Size: size, MIME: "image/" + photo.Format}, nil
}

func (s *PhotoService) Delete(ctx context.Context, actor security.Identity, id string) error {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanActOn(photo.OwnerID) {
		return ErrForbidden
	}
	if err := s.photos.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.objects.RemoveObject(ctx, photo.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", photo.ObjectKey).Msg("remove photo object failed")
	}
	return nil
}

func (s *PhotoService) view(p models.Photo) PhotoView {
	sig := security.SignResource(s.secret, p.ID, p.ObjectKey)
	return PhotoView{
		Photo: p,
		URL:   "/api/photos/" + url.PathEscape(p.ID) + "?sig=" + url.QueryEscape(string(sig)),
	}
}

func head(data []byte) []byte {
	if len(data) > sniffer.HeadSize {
		return data[:sniffer.HeadSize]
	}
	return data
}
