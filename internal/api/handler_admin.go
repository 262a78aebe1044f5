package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-status-backend/internal/labstate"
	"lab-status-backend/internal/lock"
)

type putOverrideRequest struct {
	Occupied *bool `json:"occupied" binding:"required"`
}

// PutOverride handles PUT /api/admin/stations/{id}/override: pin a station's
// occupancy regardless of what the probe reports.
func (h *Handler) PutOverride(c *gin.Context) {
	id, ok := parseStationID(c)
	if !ok {
		return
	}

	var req putOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.SetOverride(ctx, id, req.Occupied)
	}, lock.KeyOverrides)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteOverride handles DELETE /api/admin/stations/{id}/override: the
// station goes back to probe-reported occupancy.
func (h *Handler) DeleteOverride(c *gin.Context) {
	id, ok := parseStationID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.SetOverride(ctx, id, nil)
	}, lock.KeyOverrides)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type putGlobalOverrideRequest struct {
	State string `json:"state" binding:"required"`
}

// PutGlobalOverride handles PUT /api/admin/state: force the displayed lab
// state until an admin clears it.
func (h *Handler) PutGlobalOverride(c *gin.Context) {
	var req putGlobalOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !labstate.State(req.State).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
		return
	}

	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.SetGlobalOverride(ctx, req.State)
	}, lock.KeyOverrides)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteGlobalOverride handles DELETE /api/admin/state.
func (h *Handler) DeleteGlobalOverride(c *gin.Context) {
	ctx := c.Request.Context()
	err := h.guard.Do(ctx, func() error {
		return h.store.SetGlobalOverride(ctx, "")
	}, lock.KeyOverrides)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
