package imageproc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnendingLoop/ComicPoster/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, w, h int, format imaging.Format, name string) *model.LocalImageFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return &model.LocalImageFile{Path: path}
}

func decodedSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestPreparer_Prepare(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		format       imaging.Format
		maxSideSum   int
		wantW, wantH int
	}{
		{"small png untouched", 40, 20, imaging.PNG, 100, 40, 20},
		{"exact limit untouched", 60, 40, imaging.JPEG, 100, 60, 40},
		{"large png downscaled", 300, 100, imaging.PNG, 100, 75, 25},
		{"large gif downscaled", 100, 100, imaging.GIF, 50, 25, 25},
		{"limit disabled", 300, 100, imaging.PNG, 0, 300, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := writeTestImage(t, tt.w, tt.h, tt.format, "img")

			err := NewPreparer(tt.maxSideSum).Prepare(context.Background(), file)
			require.NoError(t, err)

			w, h := decodedSize(t, file.Path)
			require.Equal(t, tt.wantW, w)
			require.Equal(t, tt.wantH, h)
		})
	}
}

func TestPreparer_Prepare_Errors(t *testing.T) {
	p := NewPreparer(100)

	err := p.Prepare(context.Background(), nil)
	require.ErrorIs(t, err, model.ErrIO)

	err = p.Prepare(context.Background(), &model.LocalImageFile{Path: filepath.Join(t.TempDir(), "missing.png")})
	require.ErrorIs(t, err, model.ErrIO)

	junk := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not-an-image"), 0o644))
	err = p.Prepare(context.Background(), &model.LocalImageFile{Path: junk})
	require.ErrorIs(t, err, model.ErrRemote)
	require.Contains(t, err.Error(), ErrUnsupportedFormat.Error())

	bmp := writeTestImage(t, 10, 10, imaging.BMP, "img.bmp")
	err = p.Prepare(context.Background(), bmp)
	require.ErrorIs(t, err, model.ErrRemote)
}

func TestPreparer_Prepare_AnimatedGIFUntouched(t *testing.T) {
	anim := &gif.GIF{}
	for i := 0; i < 2; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 100, 100), palette.Plan9)
		for y := 0; y < 100; y++ {
			for x := 0; x < 100; x++ {
				frame.SetColorIndex(x, y, uint8(i*10))
			}
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	path := filepath.Join(t.TempDir(), "anim.gif")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	err := NewPreparer(50).Prepare(context.Background(), &model.LocalImageFile{Path: path})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, buf.Bytes(), got)

	decoded, err := gif.DecodeAll(bytes.NewReader(got))
	require.NoError(t, err)
	require.Len(t, decoded.Image, 2)
}
