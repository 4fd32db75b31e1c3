package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PlaceholderRenderer stands in for an out-of-process rendering engine
// (headless browser orbit render, native waveform renderer). It decodes
// sourceBytes as a still image when possible — true for texture albedo maps
// feeding TextureSetThumbnailProcessor — and falls back to a flat swatch
// otherwise, so ModelThumbnailProcessor and SoundWaveformProcessor have
// something deterministic to encode without a real rendering backend wired
// in. A production deployment replaces this with the actual engine behind
// the same Renderer/WaveformRenderer interfaces; nothing in this package's
// wiring depends on which one is plugged in.
type PlaceholderRenderer struct {
	Width, Height int
	Swatch        color.Color
}

// NewPlaceholderRenderer constructs a PlaceholderRenderer with a 256x256
// neutral-gray swatch as its fallback frame.
func NewPlaceholderRenderer() *PlaceholderRenderer {
	return &PlaceholderRenderer{Width: 256, Height: 256, Swatch: color.RGBA{R: 120, G: 120, B: 128, A: 255}}
}

func (p *PlaceholderRenderer) RenderPoster(ctx context.Context, sourceBytes []byte, sourceFormat string) (RenderedFrame, error) {
	if img, err := imaging.Decode(bytes.NewReader(sourceBytes)); err == nil {
		thumb := imaging.Fit(img, p.Width, p.Height, imaging.Lanczos)
		return rgbaFrame(thumb), nil
	}
	return p.swatchFrame(), nil
}

func (p *PlaceholderRenderer) RenderWaveform(ctx context.Context, sourceBytes []byte) (RenderedFrame, error) {
	// A real waveform renderer computes peaks from the decoded audio stream
	// and draws them; this placeholder draws a flat bar so the derived-state
	// pipeline (encode, upload, write Thumbnail row) is exercised end to end.
	bar := imaging.New(p.Width, p.Height/4, color.RGBA{R: 80, G: 160, B: 200, A: 255})
	canvas := imaging.New(p.Width, p.Height, color.RGBA{A: 0})
	canvas = imaging.Paste(canvas, bar, image.Pt(0, p.Height*3/8))
	return rgbaFrame(canvas), nil
}

func (p *PlaceholderRenderer) swatchFrame() RenderedFrame {
	img := imaging.New(p.Width, p.Height, p.Swatch)
	return rgbaFrame(img)
}

func rgbaFrame(img *image.NRGBA) RenderedFrame {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return RenderedFrame{RGBA: rgba.Pix, Width: bounds.Dx(), Height: bounds.Dy()}
}
