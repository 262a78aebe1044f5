package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lab-status-backend/internal/labstate"
)

// GetStatus handles GET /api/status: the aggregate lab state for the board.
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	override, err := h.store.GlobalOverride(ctx)
	if err != nil {
		// A missing override must not take the board down.
		log.Printf("Error reading global override: %v", err)
		override = ""
	}

	state := h.resolver.Resolve(ctx, time.Now().UTC(), labstate.State(override))
	c.JSON(http.StatusOK, state)
}

// stationResponse is the per-station view behind the floor plan.
type stationResponse struct {
	ID         int       `json:"id"`
	Type       string    `json:"type"`
	Occupied   bool      `json:"occupied"`
	Held       bool      `json:"held"`
	Overridden bool      `json:"overridden"`
	ObservedAt time.Time `json:"observed_at"`
}

// GetStations handles GET /api/stations. A station reads as occupied when the
// probe (or an admin override) says so; it additionally reads as held while a
// live claim reserves it for someone still on their way.
func (h *Handler) GetStations(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := h.store.Records(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	claims, err := h.store.ActiveClaims(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	now := time.Now().UTC()
	held := make(map[int]bool, len(claims))
	for _, cl := range claims {
		if cl.Active(now) {
			held[cl.StationID] = true
		}
	}

	response := make([]stationResponse, 0, len(records))
	for _, record := range records {
		t, err := h.reg.TypeOf(record.StationID)
		if err != nil {
			continue
		}
		response = append(response, stationResponse{
			ID:         record.StationID,
			Type:       t,
			Occupied:   record.Effective(),
			Held:       held[record.StationID],
			Overridden: record.Override != nil,
			ObservedAt: record.ObservedAt,
		})
	}
	c.JSON(http.StatusOK, response)
}

func parseStationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid station id"})
		return 0, false
	}
	return id, true
}
