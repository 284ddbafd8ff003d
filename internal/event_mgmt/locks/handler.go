package locks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vereinsportal-backend/internal/platform/auth"
	"vereinsportal-backend/internal/platform/metrics"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/events/:event_id/lock", h.Acquire)
	r.DELETE("/events/:event_id/lock", h.Release)
	r.GET("/events/:event_id/lock", h.Status)
}

func (h *Handler) Acquire(c *gin.Context) {
	eventID, ok := paramEventID(c)
	if !ok {
		return
	}

	res, err := h.svc.TryAcquire(c.Request.Context(), eventID, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !res.Acquired {
		metrics.LockConflictsTotal.Inc()
		// structured refusal, the client switches to read-only mode
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Release(c *gin.Context) {
	eventID, ok := paramEventID(c)
	if !ok {
		return
	}

	if err := h.svc.Release(c.Request.Context(), eventID, c.GetString(auth.CtxUserIDKey)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Status(c *gin.Context) {
	eventID, ok := paramEventID(c)
	if !ok {
		return
	}

	res, err := h.svc.Status(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func paramEventID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("event_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
		return 0, false
	}
	return id, true
}
