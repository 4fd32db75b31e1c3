// Package jobqueue implements the durable, lease-based job queue: a single
// Postgres table workers pull from, a compare-and-set lease protocol, and a
// background sweeper that reclaims expired leases.
package jobqueue

import (
	"encoding/json"
	"time"

	"modelibr/internal/assetmodel"
)

// EnqueueParams are the inputs to Enqueue.
type EnqueueParams struct {
	Kind           assetmodel.JobKind
	TargetEntityID int64
	TargetBlobHash string
	Payload        json.RawMessage
	MaxAttempts    int
	Priority       int
}

// LeaseOptions bound a Lease call.
type LeaseOptions struct {
	WorkerID      string
	AcceptedKinds []assetmodel.JobKind
	LeaseDuration time.Duration
}
