package assetmodel

import (
	"encoding/json"
	"time"
)

// JobKind identifies which Processor handles a Job.
type JobKind string

const (
	JobKindModelThumbnail      JobKind = "MODEL_THUMBNAIL"
	JobKindSoundWaveform       JobKind = "SOUND_WAVEFORM"
	JobKindTextureSetThumbnail JobKind = "TEXTURESET_THUMBNAIL"
	JobKindMeshAnalysis        JobKind = "MESH_ANALYSIS"
)

// JobStatus is the queue row's FSM state.
// PENDING -> LEASED -> (DONE | FAILED | PENDING).
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusLeased  JobStatus = "LEASED"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

const DefaultMaxAttempts = 3

// Job is a row in the durable queue.
// Invariants: LEASED implies LeaseOwner and LeaseExpiry are set; DONE/FAILED
// imply both are nil; Attempts never exceeds MaxAttempts.
type Job struct {
	ID               int64           `db:"id" json:"id"`
	Kind             JobKind         `db:"kind" json:"kind"`
	TargetEntityID   int64           `db:"target_entity_id" json:"targetEntityId"`
	TargetBlobHash   string          `db:"target_blob_hash" json:"targetBlobHash"`
	Status           JobStatus       `db:"status" json:"status"`
	Attempts         int             `db:"attempts" json:"attempts"`
	MaxAttempts      int             `db:"max_attempts" json:"maxAttempts"`
	LeaseOwner       *string         `db:"lease_owner" json:"leaseOwner,omitempty"`
	LeaseExpiry      *time.Time      `db:"lease_expiry" json:"leaseExpiry,omitempty"`
	LastError        *string         `db:"last_error" json:"lastError,omitempty"`
	Payload          json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
	// Priority is stored with the job but Lease does not read it: selection
	// is by updated_at, then id, whatever the priority.
	Priority int `db:"priority" json:"priority"`
}

// JobEventKind enumerates the audit log entry kinds appended to a Job.
type JobEventKind string

const (
	JobEventEnqueued         JobEventKind = "ENQUEUED"
	JobEventLeased           JobEventKind = "LEASED"
	JobEventProgress         JobEventKind = "PROGRESS"
	JobEventCompleted        JobEventKind = "COMPLETED"
	JobEventFailed           JobEventKind = "FAILED"
	JobEventExpiredReclaimed JobEventKind = "EXPIRED_RECLAIMED"
)

// ProgressSubkind further classifies a JobEventProgress entry.
type ProgressSubkind string

const (
	ProgressDownloadStarted ProgressSubkind = "DOWNLOAD_STARTED"
	ProgressLoaded          ProgressSubkind = "LOADED"
	ProgressFramesRendered  ProgressSubkind = "FRAMES_RENDERED"
	ProgressEncoded         ProgressSubkind = "ENCODED"
	ProgressUploaded        ProgressSubkind = "UPLOADED"
)

// JobEvent is an append-only audit entry for a Job.
type JobEvent struct {
	ID        int64           `db:"id" json:"id"`
	JobID     int64           `db:"job_id" json:"jobId"`
	Kind      JobEventKind    `db:"kind" json:"kind"`
	Message   string          `db:"message" json:"message,omitempty"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}
