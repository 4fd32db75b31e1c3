// Package processor implements the strategy-pattern dispatch by job kind and
// the worker loop that leases, processes, and completes/fails jobs.
package processor

import (
	"context"
	"log/slog"

	"modelibr/internal/assetmodel"
)

// ResultMetadata is whatever a Processor wants recorded on job completion.
type ResultMetadata map[string]any

// Processor is the strategy interface dispatched by JobKind.
type Processor interface {
	Kind() assetmodel.JobKind
	Process(ctx context.Context, job *assetmodel.Job, logger *slog.Logger) (ResultMetadata, error)
}

// OnCompleter lets a Processor add a side effect (e.g. writing derived state
// and broadcasting a push message) that the worker runs after Queue.Complete
// has succeeded; it does not replace the Complete call.
type OnCompleter interface {
	OnComplete(ctx context.Context, job *assetmodel.Job, result ResultMetadata) error
}

// OnFailer lets a Processor add a side effect that the worker runs after
// Queue.Fail has succeeded; it does not replace the Fail call.
type OnFailer interface {
	OnFail(ctx context.Context, job *assetmodel.Job, errMessage string) error
}

// Cleaner lets a Processor release resources on worker shutdown.
type Cleaner interface {
	Cleanup()
}

// Registry maps JobKind to its Processor.
type Registry struct {
	processors map[assetmodel.JobKind]Processor
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[assetmodel.JobKind]Processor)}
}

// Register adds p to the registry, keyed by p.Kind().
func (r *Registry) Register(p Processor) {
	r.processors[p.Kind()] = p
}

// Lookup returns the Processor for kind, or ok=false if none is registered.
func (r *Registry) Lookup(kind assetmodel.JobKind) (Processor, bool) {
	p, ok := r.processors[kind]
	return p, ok
}

// AcceptedKinds returns every JobKind this registry has a Processor for.
func (r *Registry) AcceptedKinds() []assetmodel.JobKind {
	kinds := make([]assetmodel.JobKind, 0, len(r.processors))
	for k := range r.processors {
		kinds = append(kinds, k)
	}
	return kinds
}

// Cleanup calls Cleanup() on every registered Processor that implements it.
func (r *Registry) Cleanup() {
	for _, p := range r.processors {
		if c, ok := p.(Cleaner); ok {
			c.Cleanup()
		}
	}
}
