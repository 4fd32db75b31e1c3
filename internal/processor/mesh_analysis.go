package processor

import (
	"context"
	"log/slog"

	"modelibr/internal/assetmodel"
)

// MeshAnalysisProcessor handles MESH_ANALYSIS jobs. No mesh-extraction
// backend is wired in this build, so every job refuses with NOT_AVAILABLE
// until one is configured.
type MeshAnalysisProcessor struct{}

// NewMeshAnalysisProcessor constructs a MeshAnalysisProcessor.
func NewMeshAnalysisProcessor() *MeshAnalysisProcessor { return &MeshAnalysisProcessor{} }

func (p *MeshAnalysisProcessor) Kind() assetmodel.JobKind { return assetmodel.JobKindMeshAnalysis }

func (p *MeshAnalysisProcessor) Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error) {
	logger.Warn("mesh analysis has no backend configured")
	return nil, errNotAvailable
}
