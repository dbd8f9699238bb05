package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "parkpal/internal/errors"
	"parkpal/internal/timer"
)

// TimerHandler exposes read-only timer engine introspection.
type TimerHandler struct {
	timers *timer.Manager
}

func NewTimerHandler(timers *timer.Manager) *TimerHandler {
	return &TimerHandler{timers: timers}
}

type timerView struct {
	LocationID  string `json:"locationId"`
	RemainingMs int64  `json:"remainingMs"`
}

func (h *TimerHandler) List(c *gin.Context) {
	ids := h.timers.ListActiveTimers()

	views := make([]timerView, 0, len(ids))
	for _, id := range ids {
		remaining, ok := h.timers.GetRemainingTime(id)
		if !ok {
			continue
		}
		views = append(views, timerView{LocationID: id, RemainingMs: remaining.Milliseconds()})
	}

	c.JSON(http.StatusOK, gin.H{"timers": views})
}

func (h *TimerHandler) Get(c *gin.Context) {
	id := c.Param("id")
	remaining, ok := h.timers.GetRemainingTime(id)
	if !ok {
		writeError(c, apperrors.NotFound("timer_not_found", "no active timer for session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"timer": timerView{LocationID: id, RemainingMs: remaining.Milliseconds()}})
}
