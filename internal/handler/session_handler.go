package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parkpal/internal/middleware"
	"parkpal/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var input service.CreateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.sessionService.Create(c.Request.Context(), middleware.UserID(c), input)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, apiErr := h.sessionService.List(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, apiErr := h.sessionService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) Update(c *gin.Context) {
	var input service.UpdateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.sessionService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), input)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if apiErr := h.sessionService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Extend(c *gin.Context) {
	var input service.ExtendSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.sessionService.Extend(c.Request.Context(), middleware.UserID(c), c.Param("id"), input)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) StopTimer(c *gin.Context) {
	session, apiErr := h.sessionService.StopTimer(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) Sync(c *gin.Context) {
	activeTimers, apiErr := h.sessionService.Sync(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activeTimers": activeTimers})
}
