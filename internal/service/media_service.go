package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/weiawesome/snapgram/internal/audit"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/media"
	"github.com/weiawesome/snapgram/pkg/idgen"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/storage"
)

// presignExtensions lists the content types a client may upload directly.
var presignExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type mediaServiceImpl struct {
	processor     *media.Processor
	store         storage.Storage
	idGen         idgen.Generator
	presignExpiry time.Duration
}

// NewMediaService creates a new media service.
func NewMediaService(processor *media.Processor, store storage.Storage, idGen idgen.Generator, presignExpiry time.Duration) MediaService {
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &mediaServiceImpl{
		processor:     processor,
		store:         store,
		idGen:         idGen,
		presignExpiry: presignExpiry,
	}
}

func (s *mediaServiceImpl) Upload(ctx context.Context, userID string, r io.Reader) (*domain.UploadResult, error) {
	result, err := s.processor.Process(ctx, userID, r)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, ErrUnsupportedMedia
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to store upload")
		return nil, err
	}

	audit.Log(ctx, audit.ActionUploadMedia, userID, result.Key, "photo uploaded")
	return result, nil
}

// Presign returns a direct upload URL. Only object stores that can sign
// URLs support it.
func (s *mediaServiceImpl) Presign(ctx context.Context, userID string, req *domain.PresignRequest) (*domain.PresignResponse, error) {
	ext, ok := presignExtensions[req.ContentType]
	if !ok {
		return nil, ErrUnsupportedMedia
	}

	uploadID, err := s.idGen.Generate()
	if err != nil {
		return nil, err
	}
	key := s.processor.Key(userID, uploadID, "", ext)

	url, err := s.store.GetUploadURL(ctx, key, req.ContentType, s.presignExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrUploadURLUnsupported) {
			return nil, ErrPresignUnsupported
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to presign upload")
		return nil, err
	}

	return &domain.PresignResponse{
		UploadURL: url,
		Key:       key,
		MediaURL:  s.store.PublicURL(key),
		ExpiresIn: int64(s.presignExpiry / time.Second),
	}, nil
}
