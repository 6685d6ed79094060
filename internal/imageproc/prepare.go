// Package imageproc checks downloaded images against the host photo limits and shrinks oversized ones in place
package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"os"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/UnendingLoop/ComicPoster/internal/runlog"
	"github.com/disintegration/imaging"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

type Preparer struct {
	maxSideSum int // host rejects photos whose width+height exceeds this
}

func NewPreparer(maxSideSum int) *Preparer {
	return &Preparer{maxSideSum: maxSideSum}
}

// Prepare validates the file format and downscales the image when it is too large.
// The path stays the same so the file ownership is not affected.
func (p *Preparer) Prepare(ctx context.Context, file *model.LocalImageFile) error {
	if file == nil {
		return model.NewIOError("prepare", errors.New("nil file provided"))
	}
	logger := runlog.FromContext(ctx)

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return model.NewIOError("read "+file.Path, err)
	}

	cfg, format, err := validateImgFormat(data)
	if err != nil {
		return model.NewRemoteError("prepare "+file.Path, 0, err.Error())
	}

	if p.maxSideSum <= 0 || cfg.Width+cfg.Height <= p.maxSideSum {
		return nil
	}

	// imaging keeps only the first frame, so animations are sent as is and the host decides
	if format == imaging.GIF && isAnimatedGIF(data) {
		logger.Warn().
			Int("width", cfg.Width).
			Int("height", cfg.Height).
			Msg("Animated GIF exceeds upload limits, left untouched")
		return nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return model.NewRemoteError("prepare "+file.Path, 0, fmt.Sprintf("failed to decode image: %v", err))
	}

	// keep the aspect ratio: 0 height lets imaging derive it
	targetW := cfg.Width * p.maxSideSum / (cfg.Width + cfg.Height)
	if targetW < 1 {
		targetW = 1
	}
	resized := imaging.Resize(img, targetW, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return model.NewIOError("encode "+file.Path, err)
	}
	if err := os.WriteFile(file.Path, buf.Bytes(), 0o644); err != nil {
		return model.NewIOError("write "+file.Path, err)
	}

	logger.Info().
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Int("new_width", resized.Bounds().Dx()).
		Int("new_height", resized.Bounds().Dy()).
		Msg("Image downscaled to fit upload limits")
	return nil
}

func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	return err == nil && len(g.Image) > 1
}

func validateImgFormat(data []byte) (image.Config, imaging.Format, error) {
	cfg, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, -1, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	format, err := imaging.FormatFromExtension(f)
	if err != nil {
		return image.Config{}, -1, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	switch format {
	case imaging.PNG, imaging.JPEG, imaging.GIF:
	default:
		return image.Config{}, -1, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return cfg, format, nil
}
