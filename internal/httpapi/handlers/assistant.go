package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/assistant"
	"github.com/SW-HP/hp-server/internal/common"
)

func (h *Handler) GetThread(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	th, err := h.Assist.EnsureThread(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to open thread")
		return
	}
	common.OK(c, th)
}

func (h *Handler) DeleteThread(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if err := h.Assist.DeleteThread(c.Request.Context(), uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "thread not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to delete thread")
		return
	}
	common.OK(c, gin.H{"message": "쓰레드를 삭제했습니다."})
}

type postMessageReq struct {
	Content string `json:"content" binding:"required"`
}

// PostMessage appends the user's message and blocks until the assistant run
// finishes, returning the final assistant text. Transient conditions come
// back as user-safe apologies in a 200 envelope, matching the conversational
// surface.
func (h *Handler) PostMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req postMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	content, err := h.Assist.RunMessage(c.Request.Context(), uid, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrThreadBusy):
			common.OK(c, gin.H{
				"status":  "Message created but not executed",
				"content": "죄송합니다. 잠시 후 다시 시도해주세요.",
			})
		case errors.Is(err, assistant.ErrProviderUnavailable), errors.Is(err, assistant.ErrRunTimeout):
			common.OK(c, gin.H{
				"status":  "Message created but not executed",
				"content": "죄송합니다. 잠시 뒤 다시 말씀해주세요.",
			})
		case errors.Is(err, assistant.ErrRunCancelled):
			common.Fail(c, http.StatusBadRequest, 40002, "쓰레드가 취소되었습니다.")
		default:
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		}
		return
	}

	common.OK(c, gin.H{
		"status":  "Message created and executed",
		"content": content,
	})
}

func (h *Handler) GetMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	msgs, err := h.Assist.Messages(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "thread not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) GetLatestMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	msg, err := h.Assist.LatestMessage(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "최신 메세지를 찾을 수 없습니다.")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load message")
		return
	}
	common.OK(c, msg)
}
