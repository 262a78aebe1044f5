package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// claimResponse is what the claim page renders.
type claimResponse struct {
	Token       string    `json:"token"`
	StationID   int       `json:"station_id"`
	StationType string    `json:"station_type"`
	DisplayName string    `json:"display_name"`
	Confirmed   bool      `json:"confirmed"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GetClaim handles GET /api/claims/{token}.
func (h *Handler) GetClaim(c *gin.Context) {
	cl, err := h.store.ClaimByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, claimResponse{
		Token:       cl.Token,
		StationID:   cl.StationID,
		StationType: cl.StationType,
		DisplayName: cl.DisplayName,
		Confirmed:   cl.Confirmed,
		ExpiresAt:   cl.ExpiresAt,
	})
}

// ConfirmClaim handles POST /api/claims/{token}/confirm. Confirming twice is
// a conflict; confirming after expiry is gone for good, the station has moved
// on to the next person in line.
func (h *Handler) ConfirmClaim(c *gin.Context) {
	cl, err := h.claims.Confirm(c.Request.Context(), c.Param("token"), time.Now().UTC())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, claimResponse{
		Token:       cl.Token,
		StationID:   cl.StationID,
		StationType: cl.StationType,
		DisplayName: cl.DisplayName,
		Confirmed:   cl.Confirmed,
		ExpiresAt:   cl.ExpiresAt,
	})
}
