package pushhub

import (
	"strconv"

	"modelibr/internal/assetmodel"
)

// MessageType discriminates the push-fabric payloads sent over a connection.
type MessageType string

const (
	MessageThumbnailStatusChanged MessageType = "THUMBNAIL_STATUS_CHANGED"
	MessageWaveformReady          MessageType = "WAVEFORM_READY"
	MessageActiveVersionChanged   MessageType = "ACTIVE_VERSION_CHANGED"
	MessageJobAdded               MessageType = "JOB_ADDED"
	MessageJobCompleted           MessageType = "JOB_COMPLETED"
	MessageJobFailed              MessageType = "JOB_FAILED"
)

// Message is the envelope written to every client connection. Timestamp is a
// monotonic sequence number (not a wall-clock value), letting clients drop
// stale notifications without depending on Date.now()-style clocks.
type Message struct {
	Type      MessageType `json:"type"`
	Group     string      `json:"group"`
	Timestamp int64       `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// ThumbnailStatusChangedPayload reports a derived thumbnail/waveform's
// status transition for the version, texture set, or sound that owns it.
type ThumbnailStatusChangedPayload struct {
	OwnerKind assetmodel.ThumbnailOwnerKind `json:"ownerKind"`
	OwnerID   int64                         `json:"ownerId"`
	Status    assetmodel.ThumbnailStatus    `json:"status"`
	URL       *string                       `json:"url,omitempty"`
	Error     *string                       `json:"error,omitempty"`
}

// ActiveVersionChangedPayload reports a model's active-version pointer switch.
type ActiveVersionChangedPayload struct {
	ModelID       int64  `json:"modelId"`
	NewVersionID  int64  `json:"newVersionId"`
	PrevVersionID *int64 `json:"prevVersionId,omitempty"`
}

// JobAddedPayload reports a newly enqueued job.
type JobAddedPayload struct {
	JobID int64              `json:"jobId"`
	Kind  assetmodel.JobKind `json:"kind"`
}

// JobCompletedPayload reports a job's terminal DONE transition.
type JobCompletedPayload struct {
	JobID int64 `json:"jobId"`
}

// JobFailedPayload reports a job's terminal FAILED transition (attempts exhausted).
type JobFailedPayload struct {
	JobID  int64  `json:"jobId"`
	Reason string `json:"reason"`
}

// groupForEntity builds the per-entity group name clients join via JoinGroup.
func groupForEntity(ownerKind assetmodel.ThumbnailOwnerKind, ownerID int64) string {
	return string(ownerKind) + ":" + strconv.FormatInt(ownerID, 10)
}

// GroupForModel builds the group name for model-scoped notifications
// (active-version switches) that address the model root rather than a
// derived-state owner.
func GroupForModel(modelID int64) string {
	return "MODEL:" + strconv.FormatInt(modelID, 10)
}

// AllModelsGroup is the broadcast group for clients wanting coarse updates
// without per-model joins.
const AllModelsGroup = "all-models"

// QueueGroup is the global group for queue-scoped notifications.
const QueueGroup = "queue"
