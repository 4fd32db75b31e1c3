package processor

import (
	"context"
	"log/slog"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
	"modelibr/internal/blobstore"
	"modelibr/internal/imaging"
)

// TextureSetThumbnailProcessor handles TEXTURESET_THUMBNAIL jobs: render a
// textured-sphere preview via the injected Renderer and persist it as the
// set's derived Thumbnail.
type TextureSetThumbnailProcessor struct {
	blobs    *blobstore.Store
	graph    *assetgraph.Repository
	renderer Renderer
	images   *imaging.Processor
	notifier Notifier
}

// NewTextureSetThumbnailProcessor constructs a TextureSetThumbnailProcessor.
func NewTextureSetThumbnailProcessor(blobs *blobstore.Store, graph *assetgraph.Repository, renderer Renderer, notifier Notifier) *TextureSetThumbnailProcessor {
	return &TextureSetThumbnailProcessor{blobs: blobs, graph: graph, renderer: renderer, images: imaging.NewProcessor(), notifier: notifier}
}

func (p *TextureSetThumbnailProcessor) Kind() assetmodel.JobKind {
	return assetmodel.JobKindTextureSetThumbnail
}

func (p *TextureSetThumbnailProcessor) Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error) {
	logger.Info("rendering texture set thumbnail")

	rc, err := p.blobs.Get(ctx, job.TargetBlobHash)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "fetching albedo blob", err)
	}
	defer rc.Close()

	data, _, err := blobstore.ReadAllHashing(rc)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "reading albedo blob", err)
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

	poster := encoded[0]
	hash, _, _, err := p.blobs.Put(ctx, poster.Data, "image/"+poster.Format)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "uploading rendered thumbnail", err)
	}

	return ResultMetadata{
		"outputBlobHash": hash,
		"width":          poster.Width,
		"height":         poster.Height,
		"sizeBytes":      poster.SizeBytes,
	}, nil
}

func (p *TextureSetThumbnailProcessor) OnComplete(ctx context.Context, job *assetmodel.Job, result ResultMetadata) error {
	hash, _ := result["outputBlobHash"].(string)
	width, _ := result["width"].(int)
	height, _ := result["height"].(int)
	sizeBytes, _ := result["sizeBytes"].(int)
	sz := int64(sizeBytes)

	_, err := p.graph.UpsertThumbnail(ctx, assetmodel.Thumbnail{
		OwnerKind:      assetmodel.ThumbnailOwnerTextureSet,
		OwnerID:        job.TargetEntityID,
		Status:         assetmodel.ThumbnailReady,
		OutputBlobHash: &hash,
		Width:          intPtr(width),
		Height:         intPtr(height),
		SizeBytes:      &sz,
	})
	if err != nil {
		return err
	}
	if p.notifier != nil {
		p.notifier.BroadcastThumbnailStatusChanged(assetmodel.ThumbnailOwnerTextureSet, job.TargetEntityID, assetmodel.ThumbnailReady, &hash, nil)
	}
	return nil
}

func (p *TextureSetThumbnailProcessor) OnFail(ctx context.Context, job *assetmodel.Job, errMessage string) error {
	status := assetmodel.ThumbnailProcessing
	if job.Attempts+1 >= job.MaxAttempts {
		status = assetmodel.ThumbnailFailed
	}
	_, err := p.graph.UpsertThumbnail(ctx, assetmodel.Thumbnail{
		OwnerKind:    assetmodel.ThumbnailOwnerTextureSet,
		OwnerID:      job.TargetEntityID,
		Status:       status,
		ErrorMessage: &errMessage,
	})
	if p.notifier != nil && status == assetmodel.ThumbnailFailed {
		p.notifier.BroadcastThumbnailStatusChanged(assetmodel.ThumbnailOwnerTextureSet, job.TargetEntityID, status, nil, &errMessage)
	}
	return err
}
