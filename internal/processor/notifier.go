package processor

import "modelibr/internal/assetmodel"

// Notifier is the push-fabric-facing side effect every thumbnail-producing
// processor's OnComplete/OnFail hook drives, plus the queue-scoped
// JobCompleted/JobFailed broadcasts the worker loop itself fires for every
// job kind regardless of processor. Implemented by pushhub.Hub; defined here
// so this package does not import pushhub directly.
type Notifier interface {
	BroadcastThumbnailStatusChanged(ownerKind assetmodel.ThumbnailOwnerKind, ownerID int64, status assetmodel.ThumbnailStatus, url *string, errMsg *string)
	BroadcastJobCompleted(jobID int64)
	BroadcastJobFailed(jobID int64, reason string)
}
