package recycle

import (
	"context"

	"modelibr/internal/apperr"
	"modelibr/internal/assetgraph"
	"modelibr/internal/assetmodel"
)

// Service exposes the recycle bin: list soft-deleted rows across entity
// kinds, restore them, or purge them permanently. It dispatches to
// assetgraph's per-kind soft-delete operations rather than duplicating the
// transaction logic behind them.
type Service struct {
	graph *assetgraph.Repository
}

// NewService constructs a Service.
func NewService(graph *assetgraph.Repository) *Service {
	return &Service{graph: graph}
}

// List enumerates every soft-deleted row across the recyclable kinds.
func (s *Service) List(ctx context.Context) (*assetmodel.RecycleSnapshot, error) {
	return s.graph.ListRecycled(ctx)
}

// Restore clears the soft-delete flag for the given kind and id.
func (s *Service) Restore(ctx context.Context, kind assetmodel.RecyclableKind, id int64) error {
	switch kind {
	case assetmodel.RecyclableModel:
		return s.graph.RestoreModel(ctx, id)
	case assetmodel.RecyclableTextureSet:
		return s.graph.RestoreTextureSet(ctx, id)
	case assetmodel.RecyclableSprite:
		return s.graph.RestoreSprite(ctx, id)
	case assetmodel.RecyclableSound:
		return s.graph.RestoreSound(ctx, id)
	default:
		return apperr.New(apperr.CodeValidation, "unknown recyclable kind")
	}
}

// Purge permanently deletes the given kind and id, cascading owned rows
// (versions, thumbnails, job events, membership edges). Referenced blobs are
// not collected here: their reference counts are decremented, and nothing in
// this module deletes a blob whose count reaches zero.
func (s *Service) Purge(ctx context.Context, kind assetmodel.RecyclableKind, id int64) error {
	switch kind {
	case assetmodel.RecyclableModel:
		return s.graph.PurgeModel(ctx, id)
	case assetmodel.RecyclableTextureSet:
		return s.graph.PurgeTextureSet(ctx, id)
	case assetmodel.RecyclableSprite:
		return s.graph.PurgeSprite(ctx, id)
	case assetmodel.RecyclableSound:
		return s.graph.PurgeSound(ctx, id)
	default:
		return apperr.New(apperr.CodeValidation, "unknown recyclable kind")
	}
}
