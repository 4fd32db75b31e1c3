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

// SoundWaveformProcessor handles SOUND_WAVEFORM jobs: render a waveform image
// for a sound blob via the injected WaveformRenderer and persist it as the
// sound's derived Thumbnail.
type SoundWaveformProcessor struct {
	blobs    *blobstore.Store
	graph    *assetgraph.Repository
	renderer WaveformRenderer
	images   *imaging.Processor
	notifier Notifier
}

// NewSoundWaveformProcessor constructs a SoundWaveformProcessor.
func NewSoundWaveformProcessor(blobs *blobstore.Store, graph *assetgraph.Repository, renderer WaveformRenderer, notifier Notifier) *SoundWaveformProcessor {
	return &SoundWaveformProcessor{blobs: blobs, graph: graph, renderer: renderer, images: imaging.NewProcessor(), notifier: notifier}
}

func (p *SoundWaveformProcessor) Kind() assetmodel.JobKind { return assetmodel.JobKindSoundWaveform }

func (p *SoundWaveformProcessor) Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error) {
	logger.Info("rendering sound waveform")

	rc, err := p.blobs.Get(ctx, job.TargetBlobHash)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "fetching source blob", err)
	}
	defer rc.Close()

	data, _, err := blobstore.ReadAllHashing(rc)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "reading source blob", err)
	}

	frame, err := p.renderer.RenderWaveform(ctx, data)
	if err != nil {
		return nil, err
	}

	framePNG, err := encodeFrame(frame)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "encoding rendered frame", err)
	}
	encoded, err := p.images.ProcessImage(framePNG, "thumbnail", false)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "encoding waveform renditions", err)
	}
	if len(encoded) == 0 {
		return nil, apperr.New(apperr.CodeFatalInternal, "no waveform renditions produced")
	}

	poster := encoded[0]
	hash, _, _, err := p.blobs.Put(ctx, poster.Data, "image/"+poster.Format)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageIO, "uploading rendered waveform", err)
	}

	return ResultMetadata{
		"outputBlobHash": hash,
		"width":          poster.Width,
		"height":         poster.Height,
		"sizeBytes":      poster.SizeBytes,
	}, nil
}

func (p *SoundWaveformProcessor) OnComplete(ctx context.Context, job *assetmodel.Job, result ResultMetadata) error {
	hash, _ := result["outputBlobHash"].(string)
	width, _ := result["width"].(int)
	height, _ := result["height"].(int)
	sizeBytes, _ := result["sizeBytes"].(int)
	sz := int64(sizeBytes)

	_, err := p.graph.UpsertThumbnail(ctx, assetmodel.Thumbnail{
		OwnerKind:      assetmodel.ThumbnailOwnerSound,
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
		p.notifier.BroadcastThumbnailStatusChanged(assetmodel.ThumbnailOwnerSound, job.TargetEntityID, assetmodel.ThumbnailReady, &hash, nil)
	}
	return nil
}

func (p *SoundWaveformProcessor) OnFail(ctx context.Context, job *assetmodel.Job, errMessage string) error {
	status := assetmodel.ThumbnailProcessing
	if job.Attempts+1 >= job.MaxAttempts {
		status = assetmodel.ThumbnailFailed
	}
	_, err := p.graph.UpsertThumbnail(ctx, assetmodel.Thumbnail{
		OwnerKind:    assetmodel.ThumbnailOwnerSound,
		OwnerID:      job.TargetEntityID,
		Status:       status,
		ErrorMessage: &errMessage,
	})
	if p.notifier != nil && status == assetmodel.ThumbnailFailed {
		p.notifier.BroadcastThumbnailStatusChanged(assetmodel.ThumbnailOwnerSound, job.TargetEntityID, status, nil, &errMessage)
	}
	return err
}
