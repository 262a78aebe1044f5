package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"lab-status-backend/internal/claim"
	"lab-status-backend/internal/labstate"
	"lab-status-backend/internal/lock"
	"lab-status-backend/internal/registry"
	"lab-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	reg      *registry.Registry
	guard    *lock.Guard
	claims   *claim.Manager
	resolver *labstate.Resolver
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, reg *registry.Registry, guard *lock.Guard, claims *claim.Manager, resolver *labstate.Resolver, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		reg:      reg,
		guard:    guard,
		claims:   claims,
		resolver: resolver,
		webpush:  webpushOptions,
	}
}

// abortWithError translates domain errors into HTTP status codes. Anything
// unrecognized is a 500 with the message suppressed.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUnknownStation):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown station"})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrTokenUnknown):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown claim token"})
	case errors.Is(err, store.ErrAlreadyQueued):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "already in queue"})
	case errors.Is(err, claim.ErrAlreadyConfirmed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "claim already confirmed"})
	case errors.Is(err, claim.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "claim token expired"})
	case errors.Is(err, lock.ErrLockTimeout):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "busy, try again"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
