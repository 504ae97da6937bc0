package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/common"
	"github.com/SW-HP/hp-server/internal/program"
)

func (h *Handler) GetProgram(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	doc, err := h.Programs.Latest(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "훈련 프로그램이 없습니다.")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to load program")
		return
	}
	common.OK(c, gin.H{"program": doc})
}

type generateProgramReq struct {
	Request string `json:"request" binding:"required"`
}

// GenerateProgram enqueues an async designer run; the worker drives the
// assistant and replaces the stored program tree on success.
func (h *Handler) GenerateProgram(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req generateProgramReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &program.Job{
		ID:      jobID,
		UserID:  uid,
		Request: req.Request,
		Status:  program.JobQueued,
	}
	if err := h.Programs.CreateJob(c.Request.Context(), j); err != nil {
		log.Printf("[GenerateProgram] CreateJob failed uid=%d job_id=%s err=%v", uid, jobID, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	if err := h.Rabbit.PublishJob(c.Request.Context(), j.ID); err != nil {
		log.Printf("[GenerateProgram] PublishJob failed uid=%d job_id=%s err=%v", uid, j.ID, err)
		common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
		return
	}

	common.OK(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetProgramJob(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.Programs.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40405, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40405, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"status":            j.Status,
			"result_program_id": j.ResultProgramID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}
