package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/weiawesome/snapgram/internal/config"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/idgen"
	pkglog "github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/storage"
)

var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// Processor resizes uploaded photos and writes the full image and a square
// thumbnail to storage.
type Processor struct {
	store       storage.Storage
	idGen       idgen.Generator
	keyPrefix   string
	maxPixels   int64
	maxWidth    int
	maxHeight   int
	thumbSize   int
	jpegQuality int
}

func NewProcessor(store storage.Storage, idGen idgen.Generator, cfg config.MediaConfig) *Processor {
	p := &Processor{
		store:       store,
		idGen:       idGen,
		keyPrefix:   cfg.KeyPrefix,
		maxPixels:   cfg.MaxPixels,
		maxWidth:    cfg.MaxWidth,
		maxHeight:   cfg.MaxHeight,
		thumbSize:   cfg.ThumbSize,
		jpegQuality: cfg.JpegQuality,
	}
	if p.maxPixels <= 0 {
		p.maxPixels = 40_000_000
	}
	if p.maxWidth <= 0 {
		p.maxWidth = 1080
	}
	if p.maxHeight <= 0 {
		p.maxHeight = 1350
	}
	if p.thumbSize <= 0 {
		p.thumbSize = 320
	}
	if p.jpegQuality <= 0 || p.jpegQuality > 100 {
		p.jpegQuality = 85
	}
	return p
}

// Key builds the object key of an upload owned by userID.
func (p *Processor) Key(userID, uploadID, variant, ext string) string {
	if variant != "" {
		return fmt.Sprintf("%s%s/%s_%s%s", p.keyPrefix, userID, uploadID, variant, ext)
	}
	return fmt.Sprintf("%s%s/%s%s", p.keyPrefix, userID, uploadID, ext)
}

// Process decodes r, shrinks it to fit the configured bounds, and stores
// the result plus a center-cropped thumbnail as JPEG. Images whose header
// declares more than maxPixels are rejected before any pixel is decoded.
func (p *Processor) Process(ctx context.Context, userID string, r io.Reader) (*domain.UploadResult, error) {
	l := pkglog.Ctx(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if pixels := int64(header.Width) * int64(header.Height); pixels > p.maxPixels {
		l.Warn().Int("width", header.Width).Int("height", header.Height).Msg("rejected oversized image")
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, header.Width, header.Height, p.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	uploadID, err := p.idGen.Generate()
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > p.maxWidth || b.Dy() > p.maxHeight {
		img = imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)
	}
	thumb := imaging.Fill(img, p.thumbSize, p.thumbSize, imaging.Center, imaging.Lanczos)

	key := p.Key(userID, uploadID, "", ".jpg")
	if err := p.write(ctx, key, img); err != nil {
		return nil, err
	}
	thumbKey := p.Key(userID, uploadID, "thumb", ".jpg")
	if err := p.write(ctx, thumbKey, thumb); err != nil {
		return nil, err
	}

	size := img.Bounds()
	l.Info().Str("key", key).Int("width", size.Dx()).Int("height", size.Dy()).Msg("stored photo")

	return &domain.UploadResult{
		Key:          key,
		MediaURL:     p.store.PublicURL(key),
		ThumbnailURL: p.store.PublicURL(thumbKey),
		Width:        size.Dx(),
		Height:       size.Dy(),
	}, nil
}

func (p *Processor) write(ctx context.Context, key string, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := p.store.Write(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
