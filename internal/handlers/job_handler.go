package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"modelibr/internal/assetmodel"
	"modelibr/internal/jobqueue"
	"modelibr/internal/utils"
)

// JobHandler exposes the worker-facing lease/renew/complete/fail API.
// Every endpoint requires the caller to supply the same workerId used on
// lease; a mismatch surfaces as 409 LEASE_LOST.
type JobHandler struct {
	queue *jobqueue.WorkerClient
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(queue *jobqueue.WorkerClient) *JobHandler {
	return &JobHandler{queue: queue}
}

type leaseRequest struct {
	WorkerID      string   `json:"workerId" binding:"required"`
	AcceptedKinds []string `json:"acceptedKinds" binding:"required"`
	LeaseSeconds  int      `json:"leaseSeconds"`
}

// Lease handles POST /jobs/lease.
func (h *JobHandler) Lease(c *gin.Context) {
	var req leaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	leaseSeconds := req.LeaseSeconds
	if leaseSeconds <= 0 {
		leaseSeconds = 600
	}

	kinds := make([]assetmodel.JobKind, len(req.AcceptedKinds))
	for i, k := range req.AcceptedKinds {
		kinds[i] = assetmodel.JobKind(k)
	}

	job, err := h.queue.Lease(c.Request.Context(), jobqueue.LeaseOptions{
		WorkerID:      req.WorkerID,
		AcceptedKinds: kinds,
		LeaseDuration: secondsToDuration(leaseSeconds),
	})
	if err != nil {
		sendAppError(c, err)
		return
	}
	if job == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, job)
}

type renewRequest struct {
	WorkerID     string `json:"workerId" binding:"required"`
	ExtraSeconds int    `json:"extraSeconds"`
}

// Renew handles POST /jobs/{id}/renew.
func (h *JobHandler) Renew(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	extra := req.ExtraSeconds
	if extra <= 0 {
		extra = 600
	}
	if err := h.queue.Renew(c.Request.Context(), id, req.WorkerID, extra); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type completeRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
	Result   any    `json:"result"`
}

// Complete handles POST /jobs/{id}/complete.
func (h *JobHandler) Complete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	payload, err := marshalResult(req.Result)
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.queue.Complete(c.Request.Context(), id, req.WorkerID, payload); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type failRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// Fail handles POST /jobs/{id}/fail.
func (h *JobHandler) Fail(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, err)
		return
	}
	var req failRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	if err := h.queue.Fail(c.Request.Context(), id, req.WorkerID, req.Reason); err != nil {
		sendAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
