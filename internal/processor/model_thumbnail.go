package processor

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/blobstore"
	"modelibr/internal/imaging"
)

// ModelThumbnailProcessor handles MODEL_THUMBNAIL jobs: fetch the version's
// primary-renderable blob, render an orbit poster frame via the injected
// Renderer, encode the thumbnail rendition ladder, upload the results as new
// blobs, and write the Thumbnail row.
type ModelThumbnailProcessor struct {
	blobs    *blobstore.Store
	graph    *assetgraph.Repository
	renderer Renderer
	images   *imaging.Processor
	notifier Notifier
}

// NewModelThumbnailProcessor constructs a ModelThumbnailProcessor.
func NewModelThumbnailProcessor(blobs *blobstore.Store, graph *assetgraph.Repository, renderer Renderer, notifier Notifier) *ModelThumbnailProcessor {
	return &ModelThumbnailProcessor{blobs: blobs, graph: graph, renderer: renderer, images: imaging.NewProcessor(), notifier: notifier}
}

func (p *ModelThumbnailProcessor) Kind() assetmodel.JobKind { return assetmodel.JobKindModelThumbnail }

func (p *ModelThumbnailProcessor) Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error) {
	logger.Info("rendering model thumbnail")

	rc, err := p.blobs.Get(ctx, job.TargetBlobHash)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "fetching source blob", err)
	}
	defer rc.Close()

	data, _, err := blobstore.ReadAllHashing(rc)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "reading source blob", err)
	}

	frame, err := p.renderer.RenderPoster(ctx, data, "")
	if err != nil {
		return nil, err
	}

	framePNG, err := encodeFrame(frame)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "encoding rendered frame", err)
	}
	encoded, err := p.images.ProcessImage(framePNG, "thumbnail", false)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "encoding thumbnail renditions", err)
	}
	if len(encoded) == 0 {
		return nil, apperr.New(apperr.CodeFatalInternal, "no thumbnail renditions produced")
	}

	// Every rendition in the ladder is an independent blob; uploading them
	// concurrently keeps the job's wall-clock close to the single slowest
	// Put rather than the sum of all of them.
	hashes := make([]string, len(encoded))
	g, gctx := errgroup.WithContext(ctx)
	for i, rendition := range encoded {
		i, rendition := i, rendition
		g.Go(func() error {
			hash, _, _, err := p.blobs.Put(gctx, rendition.Data, "image/"+rendition.Format)
			if err != nil {
				return apperr.Wrap(apperr.CodeStorageIO, "uploading thumbnail rendition "+rendition.Name, err)
			}
			hashes[i] = hash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The largest rendition is the poster surfaced through the Thumbnail row
	// and GET /thumbnail/file; the rest remain addressable by hash for
	// callers that want the smaller rungs of the ladder.
	posterIdx := largestRenditionIndex(encoded)
	poster := encoded[posterIdx]

	return ResultMetadata{
		"outputBlobHash": hashes[posterIdx],
		"width":          poster.Width,
		"height":         poster.Height,
		"sizeBytes":      poster.SizeBytes,
	}, nil
}

func largestRenditionIndex(renditions []imaging.ProcessedImage) int {
	best := 0
	for i, r := range renditions {
		if r.Width*r.Height > renditions[best].Width*renditions[best].Height {
			best = i
		}
	}
	return best
}

// OnComplete writes the Thumbnail row and broadcasts ThumbnailStatusChanged
// once Queue.Complete has durably recorded the job's success.
func (p *ModelThumbnailProcessor) OnComplete(ctx context.Context, job *assetmodel.Job, result ResultMetadata) error {
	hash, _ := result["outputBlobHash"].(string)
	width, _ := result["width"].(int)
	height, _ := result["height"].(int)
	sizeBytes, _ := result["sizeBytes"].(int)

	w, h, sz := int64(width), int64(height), int64(sizeBytes)
	_, err := p.graph.UpsertThumbnail(ctx, assetmodel.Thumbnail{
		OwnerKind:      assetmodel.ThumbnailOwnerModelVersion,
		OwnerID:        job.TargetEntityID,
		Status:         assetmodel.ThumbnailReady,
		OutputBlobHash: &hash,
		Width:          intPtr(int(w)),
		Height:         intPtr(int(h)),
		SizeBytes:      &sz,
	})
	if err != nil {
		return err
	}

	if p.notifier != nil {
		p.notifier.BroadcastThumbnailStatusChanged(assetmodel.ThumbnailOwnerModelVersion, job.TargetEntityID, assetmodel.ThumbnailReady, &hash, nil)
	}
	return nil
}

// OnFail records the failed attempt on the Thumbnail row so status polling
// reflects it even before the job reaches its terminal attempt.
func (p *ModelThumbnailProcessor) OnFail(ctx context.Context, job *assetmodel.Job, errMessage string) error {
	status := assetmodel.ThumbnailProcessing
	if job.Attempts+1 >= job.MaxAttempts {
		status = assetmodel.ThumbnailFailed
	}
	_, err := p.graph.UpsertThumbnail(ctx, assetmodel.Thumbnail{
		OwnerKind:    assetmodel.ThumbnailOwnerModelVersion,
		OwnerID:      job.TargetEntityID,
		Status:       status,
		ErrorMessage: &errMessage,
	})
	if p.notifier != nil && status == assetmodel.ThumbnailFailed {
		p.notifier.BroadcastThumbnailStatusChanged(assetmodel.ThumbnailOwnerModelVersion, job.TargetEntityID, status, nil, &errMessage)
	}
	return err
}

func intPtr(v int) *int { return &v }

// encodeFrame wraps a Renderer's raw RGBA8 output as a PNG, the format
// imaging.Processor.ProcessImage decodes before running its rendition ladder.
func encodeFrame(frame RenderedFrame) ([]byte, error) {
	img := &image.RGBA{
		Pix:    frame.RGBA,
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
