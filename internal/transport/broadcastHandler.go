package transport

import (
	"errors"
	"net/http"
	"strconv"

	"weather-notifier/internal/entity"
	"weather-notifier/internal/service"

	"github.com/gin-gonic/gin"
)

type BroadcastHandler struct {
	broadcastService service.BroadcastService
}

func NewBroadcastHandler(broadcastService service.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{broadcastService: broadcastService}
}

// NotifyUser re-sends the current weather for the user's most recent city.
// The refreshed user view is returned even when delivery or persistence
// failed; the summary carries the failures.
func (h *BroadcastHandler) NotifyUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, summary, err := h.broadcastService.SendWeather(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send weather"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "summary": summary})
}

func (h *BroadcastHandler) NotifyAll(c *gin.Context) {
	users, summary, err := h.broadcastService.SendWeatherToAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send weather"})
		return
	}
	if users == nil {
		users = []*entity.User{}
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "summary": summary})
}
