package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lab-status-backend/internal/lock"
	"lab-status-backend/internal/metrics"
	"lab-status-backend/internal/model"
	"lab-status-backend/internal/store"
)

// queueEntryResponse is one waiting entry, position first.
type queueEntryResponse struct {
	Position    int       `json:"position"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (h *Handler) queueType(c *gin.Context) (string, bool) {
	t := c.Param("type")
	if !h.reg.KnownType(t) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown station type"})
		return "", false
	}
	return t, true
}

// GetQueue handles GET /api/queues/{type}.
func (h *Handler) GetQueue(c *gin.Context) {
	t, ok := h.queueType(c)
	if !ok {
		return
	}

	entries, err := h.store.QueueEntries(c.Request.Context(), t)
	if err != nil {
		abortWithError(c, err)
		return
	}
	metrics.SetQueueLength(t, len(entries))

	response := make([]queueEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, entryResponse(e))
	}
	c.JSON(http.StatusOK, response)
}

func entryResponse(e model.QueueEntry) queueEntryResponse {
	return queueEntryResponse{
		Position:    e.Position,
		Identity:    e.Identity,
		DisplayName: e.DisplayName,
		JoinedAt:    e.JoinedAt,
	}
}

type joinQueueRequest struct {
	Identity    string `json:"identity" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

// JoinQueue handles POST /api/queues/{type}. Joining is first come first
// served; an identity can hold at most one spot per queue.
func (h *Handler) JoinQueue(c *gin.Context) {
	t, ok := h.queueType(c)
	if !ok {
		return
	}

	var req joinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.Enqueue(ctx, t, req.Identity, req.DisplayName, time.Now().UTC())
	}, lock.QueueKey(t))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

// LeaveQueue handles DELETE /api/queues/{type}/entries/{identity}. Entries
// behind the removed one shift forward; their relative order never changes.
func (h *Handler) LeaveQueue(c *gin.Context) {
	t, ok := h.queueType(c)
	if !ok {
		return
	}
	identity := c.Param("identity")

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.RemoveFromQueue(ctx, t, identity)
	}, lock.QueueKey(t))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type reorderRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// ReorderQueueEntry handles POST /api/queues/{type}/entries/{identity}/reorder.
// Moving the first entry up or the last entry down is a no-op, not an error.
func (h *Handler) ReorderQueueEntry(c *gin.Context) {
	t, ok := h.queueType(c)
	if !ok {
		return
	}
	identity := c.Param("identity")

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Direction != store.DirectionUp && req.Direction != store.DirectionDown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be up or down"})
		return
	}

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.Reorder(ctx, t, identity, req.Direction)
	}, lock.QueueKey(t))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type repositionRequest struct {
	Index *int `json:"index" binding:"required"`
}

// RepositionQueueEntry handles PUT /api/queues/{type}/entries/{identity}/position.
// Out-of-range targets clamp to the nearest end of the queue.
func (h *Handler) RepositionQueueEntry(c *gin.Context) {
	t, ok := h.queueType(c)
	if !ok {
		return
	}
	identity := c.Param("identity")

	var req repositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.Reposition(ctx, t, identity, *req.Index)
	}, lock.QueueKey(t))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
