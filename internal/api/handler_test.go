package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lab-status-backend/config"
	"lab-status-backend/internal/claim"
	"lab-status-backend/internal/labstate"
	"lab-status-backend/internal/lock"
	"lab-status-backend/internal/model"
	"lab-status-backend/internal/registry"
	"lab-status-backend/internal/schedule"
	"lab-status-backend/internal/store"
)

var testDBSeq atomic.Int64

type nullDispatcher struct{}

func (nullDispatcher) Dispatch(claim.Offer) {}

type apiFixture struct {
	router *gin.Engine
	store  store.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.StationStatus{},
		&model.StationOverride{},
		&model.GlobalOverride{},
		&model.PreviousState{},
		&model.QueueEntry{},
		&model.Claim{},
		&model.PushSubscription{},
	))

	reg := registry.New([]config.StationConfig{
		{ID: 1, Type: "turtlebot"},
		{ID: 2, Type: "turtlebot"},
		{ID: 6, Type: "ur7e"},
	})
	require.NoError(t, store.SeedStations(db, reg))

	guard, err := lock.NewGuard(t.TempDir(), 5*time.Second)
	require.NoError(t, err)

	s := store.NewGormStore(db, reg)
	sched := schedule.NewSource(t.TempDir()+"/absent.ics", time.Minute)
	resolver := labstate.NewResolver(s, reg, sched, time.Minute)
	manager := claim.NewManager(s, reg, guard, nullDispatcher{}, 5*time.Minute, 10*time.Second)

	handler := NewHandler(s, reg, guard, manager, resolver, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	router := NewRouter(config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	}, handler)

	return &apiFixture{router: router, store: s}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state labstate.LabState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	// Seeded stations all read occupied and unobserved.
	assert.Equal(t, labstate.StateFull, state.State)
	assert.True(t, state.Stale)
	assert.Equal(t, 2, state.Counts["turtlebot"].Total)
	assert.True(t, state.Counts["turtlebot"].QueueVisible)
}

func TestGetStations(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetOccupancy(ctx, 1, false, time.Now().UTC()))
	require.NoError(t, f.store.CreateClaim(ctx, model.Claim{
		Token:       "tok-1",
		StationID:   2,
		StationType: "turtlebot",
		Identity:    "alice",
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(5 * time.Minute),
	}))

	w := f.do(t, http.MethodGet, "/api/stations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stations []stationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stations))
	require.Len(t, stations, 3)

	byID := make(map[int]stationResponse, len(stations))
	for _, s := range stations {
		byID[s.ID] = s
	}
	assert.False(t, byID[1].Occupied)
	assert.True(t, byID[2].Held)
	assert.False(t, byID[6].Held)
}

func TestQueueJoinAndList(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/queues/turtlebot", gin.H{"identity": "alice", "display_name": "Alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/api/queues/turtlebot", gin.H{"identity": "alice", "display_name": "Alice"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/queues/turtlebot", gin.H{"identity": "bob", "display_name": "Bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/queues/turtlebot", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []queueEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Identity)
	assert.Equal(t, 0, entries[0].Position)
	assert.Equal(t, "bob", entries[1].Identity)
}

func TestQueueUnknownType(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/queues/dishwasher", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/queues/dishwasher", gin.H{"identity": "alice", "display_name": "Alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueJoinValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/queues/turtlebot", gin.H{"identity": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueLeave(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/queues/turtlebot", gin.H{"identity": "alice", "display_name": "Alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodDelete, "/api/queues/turtlebot/entries/alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodDelete, "/api/queues/turtlebot/entries/alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueReorderAndReposition(t *testing.T) {
	f := newAPIFixture(t)

	for _, id := range []string{"alice", "bob", "carol"} {
		w := f.do(t, http.MethodPost, "/api/queues/turtlebot", gin.H{"identity": id, "display_name": id})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/queues/turtlebot/entries/carol/reorder", gin.H{"direction": "up"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/api/queues/turtlebot/entries/carol/reorder", gin.H{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/queues/turtlebot/entries/bob/position", gin.H{"index": 0})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/queues/turtlebot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []queueEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "bob", entries[0].Identity)
}

func TestClaimConfirmFlow(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, f.store.CreateClaim(ctx, model.Claim{
		Token:       "tok-live",
		StationID:   1,
		StationType: "turtlebot",
		Identity:    "alice",
		DisplayName: "Alice",
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}))

	w := f.do(t, http.MethodGet, "/api/claims/tok-live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got claimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got.StationID)
	assert.False(t, got.Confirmed)

	w = f.do(t, http.MethodPost, "/api/claims/tok-live/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Confirmed)

	w = f.do(t, http.MethodPost, "/api/claims/tok-live/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimConfirmExpired(t *testing.T) {
	f := newAPIFixture(t)
	now := time.Now().UTC()

	require.NoError(t, f.store.CreateClaim(context.Background(), model.Claim{
		Token:       "tok-stale",
		StationID:   1,
		StationType: "turtlebot",
		Identity:    "alice",
		CreatedAt:   now.Add(-10 * time.Minute),
		ExpiresAt:   now.Add(-5 * time.Minute),
	}))

	w := f.do(t, http.MethodPost, "/api/claims/tok-stale/confirm", nil)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestClaimUnknownToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/claims/tok-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/claims/tok-missing/confirm", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStationOverrideEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/admin/stations/1/override", gin.H{"occupied": false})
	require.Equal(t, http.StatusNoContent, w.Code)

	record, err := f.store.Occupancy(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, record.Override)
	assert.False(t, *record.Override)

	w = f.do(t, http.MethodDelete, "/api/admin/stations/1/override", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodDelete, "/api/admin/stations/1/override", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/admin/stations/99/override", gin.H{"occupied": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/admin/stations/not-a-number/override", gin.H{"occupied": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGlobalOverrideEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/admin/state", gin.H{"state": "definitely-not-a-state"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/admin/state", gin.H{"state": "maintenance"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state labstate.LabState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, labstate.StateMaintenance, state.State)
	assert.True(t, state.Overridden)

	w = f.do(t, http.MethodDelete, "/api/admin/state", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPut, "/api/subscriptions", gin.H{
		"identity": "alice",
		"endpoint": "https://push.example/ep1",
		"p256dh":   "key",
		"auth":     "auth",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	subs, err := f.store.SubscriptionsForIdentity(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	w = f.do(t, http.MethodPut, "/api/subscriptions", gin.H{"identity": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example/ep1"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	subs, err = f.store.SubscriptionsForIdentity(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestVAPIDPublicKey(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test-public-key")
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
