package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parkpal/internal/notify"
	"parkpal/internal/timer"
)

// AppHandler tracks the client's foreground state and serves the passive
// alert inbox. Visibility drives the delivery path choice and the
// hide-time backup snapshot.
type AppHandler struct {
	adapter *notify.Adapter
	timers  *timer.Manager
	inbox   *notify.Inbox
	gate    *notify.Gate
}

func NewAppHandler(adapter *notify.Adapter, timers *timer.Manager, inbox *notify.Inbox, gate *notify.Gate) *AppHandler {
	return &AppHandler{adapter: adapter, timers: timers, inbox: inbox, gate: gate}
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (h *AppHandler) SetVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Visible == nil {
		writeInvalidJSON(c)
		return
	}

	h.adapter.SetVisible(*req.Visible)
	if *req.Visible {
		h.timers.OnVisible(c.Request.Context())
	} else {
		h.timers.OnHidden(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{"visible": *req.Visible})
}

func (h *AppHandler) GetVisibility(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visible": h.adapter.Visible()})
}

func (h *AppHandler) Inbox(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.inbox.Messages()})
}

func (h *AppHandler) Permission(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": string(h.gate.Status())})
}

// RequestPermission resolves an undetermined permission. Repeated calls are
// stable: the first answer sticks.
func (h *AppHandler) RequestPermission(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": string(h.gate.Request())})
}
