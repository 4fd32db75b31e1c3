package pushhub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"modelibr/internal/assetmodel"
	"modelibr/internal/metrics"
)

// Hub tracks connected push-fabric clients and their group memberships.
// Generalized from IPRateLimiter's "one limiter per IP" map to "one member
// set per group", guarded the same way with a RWMutex.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*client]struct{}
	clients map[*client]struct{}
	seq     atomic.Int64
	logger  *slog.Logger
}

type client struct {
	conn   *websocket.Conn
	send   chan Message
	mu     sync.Mutex
	groups map[string]struct{}
}

// NewHub constructs an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		groups:  make(map[string]map[*client]struct{}),
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	metrics.PushHubConnections.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group := range c.groups {
		if members, ok := h.groups[group]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
	}
	delete(h.clients, c)
	close(c.send)
	metrics.PushHubConnections.Dec()
}

// joinGroup subscribes a client to an entity or queue group.
func (h *Hub) joinGroup(c *client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[*client]struct{})
	}
	h.groups[group][c] = struct{}{}
	c.groups[group] = struct{}{}
}

// leaveGroup unsubscribes a client from a group.
func (h *Hub) leaveGroup(c *client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(c.groups, group)
}

// publish fans a message out to every current member of a group. Clients
// joining after this call do not receive it; the hub is advisory, not a
// backlog.
func (h *Hub) publish(group string, msgType MessageType, payload any) {
	msg := Message{
		Type:      msgType,
		Group:     group,
		Timestamp: h.seq.Add(1),
		Payload:   payload,
	}

	h.mu.RLock()
	members := make([]*client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("push client send buffer full, dropping message", "group", group)
		}
	}
}

// BroadcastThumbnailStatusChanged implements processor.Notifier, satisfying
// every thumbnail-producing processor's completion/failure side effect. A
// sound's successful waveform render fires the dedicated WAVEFORM_READY
// message in addition to the generic status change, since clients following
// a sound's waveform want a distinct event rather than reusing a model
// thumbnail vocabulary.
func (h *Hub) BroadcastThumbnailStatusChanged(ownerKind assetmodel.ThumbnailOwnerKind, ownerID int64, status assetmodel.ThumbnailStatus, url *string, errMsg *string) {
	group := groupForEntity(ownerKind, ownerID)
	payload := ThumbnailStatusChangedPayload{
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
		Status:    status,
		URL:       url,
		Error:     errMsg,
	}
	h.publish(group, MessageThumbnailStatusChanged, payload)
	h.publish(AllModelsGroup, MessageThumbnailStatusChanged, payload)

	if ownerKind == assetmodel.ThumbnailOwnerSound && status == assetmodel.ThumbnailReady {
		h.publish(group, MessageWaveformReady, payload)
	}
}

// BroadcastActiveVersionChanged fires when assetgraph.SetActiveVersion
// commits. The event is entity-scoped: clients following one model receive
// it on the model's own group, with the all-models group fanned out as well
// for coarse-update subscribers.
func (h *Hub) BroadcastActiveVersionChanged(modelID, newVersionID int64, prevVersionID *int64) {
	payload := ActiveVersionChangedPayload{
		ModelID:       modelID,
		NewVersionID:  newVersionID,
		PrevVersionID: prevVersionID,
	}
	h.publish(GroupForModel(modelID), MessageActiveVersionChanged, payload)
	h.publish(AllModelsGroup, MessageActiveVersionChanged, payload)
}

// BroadcastJobAdded is called by cmd/server's upload event handlers when
// their jobqueue.Repository.Enqueue call creates a new job. A job enqueued by
// POST /models/{id}/thumbnail/regenerate is not announced.
func (h *Hub) BroadcastJobAdded(jobID int64, kind assetmodel.JobKind) {
	h.publish(QueueGroup, MessageJobAdded, JobAddedPayload{JobID: jobID, Kind: kind})
}

// BroadcastJobCompleted fires when a worker's terminal Complete call succeeds.
func (h *Hub) BroadcastJobCompleted(jobID int64) {
	h.publish(QueueGroup, MessageJobCompleted, JobCompletedPayload{JobID: jobID})
}

// BroadcastJobFailed fires when a worker's terminal Fail call lands the job
// in its FAILED state (attempts exhausted).
func (h *Hub) BroadcastJobFailed(jobID int64, reason string) {
	h.publish(QueueGroup, MessageJobFailed, JobFailedPayload{JobID: jobID, Reason: reason})
}
