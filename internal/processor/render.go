package processor

import "context"

// RenderedFrame is one frame of an opaque render pass, ready to be encoded
// into a rendition ladder by the imaging pipeline.
type RenderedFrame struct {
	RGBA   []byte // raw RGBA8 pixels, row-major
	Width  int
	Height int
}

// Renderer is the opaque rendering engine: given a source blob's bytes, it
// produces one representative frame (the orbit render / textured-sphere
// render). How it gets there — headless browser, native renderer, whatever —
// is not this package's concern; it depends only on this interface.
type Renderer interface {
	RenderPoster(ctx context.Context, sourceBytes []byte, sourceFormat string) (RenderedFrame, error)
}

// WaveformRenderer is the opaque peak-computation-and-draw engine for
// SoundWaveformProcessor.
type WaveformRenderer interface {
	RenderWaveform(ctx context.Context, sourceBytes []byte) (RenderedFrame, error)
}

// NotAvailableRenderer is a Renderer that always refuses with the same
// NOT_AVAILABLE error MeshAnalysisProcessor returns. Nothing in this module
// wires it in; MeshAnalysisProcessor refuses without a Renderer.
type NotAvailableRenderer struct{}

func (NotAvailableRenderer) RenderPoster(ctx context.Context, sourceBytes []byte, sourceFormat string) (RenderedFrame, error) {
	return RenderedFrame{}, errNotAvailable
}
