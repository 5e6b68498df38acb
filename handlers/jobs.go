package handlers

import (
	"errors"
	"net/http"

	"bottlebank/middleware"
	"bottlebank/models"
	"bottlebank/services/sync"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
)

// JobHandler exposes the job lifecycle over HTTP. Every mutation goes
// through the sync engine; this layer only translates requests and errors.
type JobHandler struct {
	Engine sync.Engine
}

func NewJobHandler(engine sync.Engine) *JobHandler {
	return &JobHandler{Engine: engine}
}

// respondEngineError maps an engine error onto the JSON error envelope.
func respondEngineError(c *gin.Context, err error) {
	code := sync.CodeOf(err)
	var e *sync.Error
	if errors.As(err, &e) {
		utils.JSONError(c, sync.HTTPStatus(code), e.Message, e.Suggestion)
		return
	}
	utils.JSONError(c, sync.HTTPStatus(code), err.Error(), "")
}

// CreateJobHandler posts a new collection point.
func (h *JobHandler) CreateJobHandler(c *gin.Context) {
	var spec models.JobSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	job, err := h.Engine.CreateJob(c.Request.Context(), middleware.CallerID(c), spec)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// GetJobHandler returns one job.
func (h *JobHandler) GetJobHandler(c *gin.Context) {
	job, err := h.Engine.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJobHandler removes an unclaimed post.
func (h *JobHandler) DeleteJobHandler(c *gin.Context) {
	if err := h.Engine.DeletePost(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ClaimJobHandler claims a job for the calling collector.
func (h *JobHandler) ClaimJobHandler(c *gin.Context) {
	job, err := h.Engine.ClaimJob(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ReleaseJobHandler hands a claimed job back to the pool.
func (h *JobHandler) ReleaseJobHandler(c *gin.Context) {
	if err := h.Engine.ReleaseJob(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// StartJobHandler marks the pickup run as started.
func (h *JobHandler) StartJobHandler(c *gin.Context) {
	if err := h.Engine.MarkInProgress(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusInProgress)})
}

// ArriveJobHandler marks the collector as on site.
func (h *JobHandler) ArriveJobHandler(c *gin.Context) {
	if err := h.Engine.MarkArrived(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusArrived)})
}

// CancelJobHandler abandons an active claim.
func (h *JobHandler) CancelJobHandler(c *gin.Context) {
	if err := h.Engine.CancelJob(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusCancelled)})
}

// CompleteJobHandler finishes a pickup and returns the receipt.
func (h *JobHandler) CompleteJobHandler(c *gin.Context) {
	var req sync.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	req.JobID = c.Param("id")
	req.CollectorID = middleware.CallerID(c)

	pickup, err := h.Engine.CompleteJob(c.Request.Context(), req)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, pickup)
}

type feedbackInput struct {
	Rating          int  `json:"rating" binding:"required"`
	PickedInDaytime bool `json:"pickedInDaytime"`
}

// FeedbackHandler records the host's review of a completed pickup.
func (h *JobHandler) FeedbackHandler(c *gin.Context) {
	var input feedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	err := h.Engine.SubmitHostFeedback(c.Request.Context(), middleware.CallerID(c), c.Param("id"), models.HostFeedback{
		Rating:          input.Rating,
		PickedInDaytime: input.PickedInDaytime,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// DisputeJobHandler contests a completed pickup.
func (h *JobHandler) DisputeJobHandler(c *gin.Context) {
	if err := h.Engine.DisputeJob(c.Request.Context(), middleware.CallerID(c), c.Param("id")); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusDisputed)})
}
