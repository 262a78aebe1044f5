// Package claim implements the claim lifecycle: converting a detected
// "station freed" event into a time-boxed offer to the queue head, tracking
// confirmation and expiry, and cascading to the next waiting identity.
//
// The manager is invoked as a stateless periodic pass over persisted state.
// Re-running a pass with unchanged external inputs is a no-op, so a crashed
// or doubled cycle can never double-offer a station.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"lab-status-backend/internal/detect"
	"lab-status-backend/internal/lock"
	"lab-status-backend/internal/metrics"
	"lab-status-backend/internal/model"
	"lab-status-backend/internal/registry"
	"lab-status-backend/internal/store"
)

// Claim confirmation failures beyond the store's ErrTokenUnknown.
var (
	ErrTokenExpired     = errors.New("claim token expired")
	ErrAlreadyConfirmed = errors.New("claim already confirmed")
)

// Offer is a notification-dispatch request for a freshly created claim. The
// dispatcher delivers it out of band; delivery failure is non-fatal.
type Offer struct {
	Token       string
	StationID   int
	StationType string
	Identity    string
	DisplayName string
	ExpiresAt   time.Time
}

// Dispatcher hands an offer to the notification channel.
type Dispatcher interface {
	Dispatch(offer Offer)
}

// Manager owns all claim transitions. The queue stores own membership; the
// two couple only through the offer path, which dequeues the head.
type Manager struct {
	store      store.Store
	reg        *registry.Registry
	guard      *lock.Guard
	dispatcher Dispatcher
	ttl        time.Duration
	interval   time.Duration
}

// NewManager creates a claim lifecycle manager.
func NewManager(s store.Store, reg *registry.Registry, guard *lock.Guard, dispatcher Dispatcher, ttl, interval time.Duration) *Manager {
	return &Manager{
		store:      s,
		reg:        reg,
		guard:      guard,
		dispatcher: dispatcher,
		ttl:        ttl,
		interval:   interval,
	}
}

// Run evaluates the claim state machine on a fixed cadence until the context
// is cancelled.
func (m *Manager) Run(ctx context.Context) {
	log.Println("Starting claim evaluator...")

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Claim evaluator shutting down.")
			return
		case <-timer.C:
			if err := m.Evaluate(ctx, time.Now().UTC()); err != nil {
				log.Printf("Error in claim evaluation cycle: %v", err)
			}
			timer.Reset(m.interval)
		}
	}
}

// Evaluate runs one pass of the state machine at the given instant. The full
// read-modify-write span holds the claims key plus every queue key, acquired
// in a fixed order so it cannot deadlock with interactive queue mutations.
func (m *Manager) Evaluate(ctx context.Context, now time.Time) error {
	keys := []string{lock.KeyClaims}
	for _, t := range m.reg.Types() {
		keys = append(keys, lock.QueueKey(t))
	}
	return m.guard.Do(ctx, func() error {
		return m.evaluate(ctx, now)
	}, keys...)
}

func (m *Manager) evaluate(ctx context.Context, now time.Time) error {
	current, err := m.store.EffectiveSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read occupancy snapshot: %w", err)
	}

	claims, err := m.store.ActiveClaims(ctx)
	if err != nil {
		return fmt.Errorf("failed to read claims: %w", err)
	}

	// Pass 1: settle existing claims against the current snapshot. Failures
	// are isolated per claim so one bad row cannot stall the rest.
	active := make([]model.Claim, 0, len(claims))
	var expired []model.Claim
	for _, c := range claims {
		occupied := current[c.StationID]

		switch {
		case c.Confirmed && occupied:
			// The claimant showed up; the claim leaves the active set.
			if err := m.store.DeleteClaim(ctx, c.Token); err != nil {
				log.Printf("Error clearing confirmed claim for station %d: %v", c.StationID, err)
				active = append(active, c)
				continue
			}
			log.Printf("Confirmed claim cleared - %s occupies station %d", c.Identity, c.StationID)
			metrics.IncClaim(model.ClaimConfirmed + "_cleared")

		case !c.Confirmed && occupied:
			// Someone else sat down before confirmation: superseded, no
			// cascade (the station is not actually free).
			if err := m.store.DeleteClaim(ctx, c.Token); err != nil {
				log.Printf("Error superseding claim for station %d: %v", c.StationID, err)
				active = append(active, c)
				continue
			}
			log.Printf("Claim superseded - station %d occupied before %s confirmed", c.StationID, c.Identity)
			metrics.IncClaim(model.ClaimSuperseded)

		case !c.Confirmed && !now.Before(c.ExpiresAt):
			if err := m.store.DeleteClaim(ctx, c.Token); err != nil {
				log.Printf("Error expiring claim for station %d: %v", c.StationID, err)
				active = append(active, c)
				continue
			}
			log.Printf("Claim expired for %s (station %d)", c.Identity, c.StationID)
			metrics.IncClaim(model.ClaimExpired)
			expired = append(expired, c)

		default:
			active = append(active, c)
		}
	}

	previous, err := m.store.PreviousStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to read previous snapshot: %w", err)
	}

	// First run: seed the baseline without offering anything.
	if len(previous) == 0 {
		log.Println("First evaluation cycle - saving initial snapshot")
		return m.store.SavePreviousStates(ctx, current)
	}

	// Pass 2: cascade. Each expired claim re-offers the same station to the
	// next eligible entry, never to the identity that just let it lapse.
	for _, c := range expired {
		if current[c.StationID] {
			continue // reclaimed by occupancy in the meantime
		}
		if hasClaimOnStation(active, c.StationID) {
			continue
		}
		created, err := m.offer(ctx, now, c.StationID, c.StationType, c.Identity, active)
		if err != nil {
			log.Printf("Error cascading claim for station %d: %v", c.StationID, err)
			continue
		}
		if created != nil {
			active = append(active, *created)
		}
	}

	// Pass 3: freshly freed stations, lowest id first. A station is offered
	// only while its type's queue is user-facing, which is judged against
	// the snapshot from before the transition (the freed station itself
	// would otherwise make the count nonzero).
	for _, tr := range detect.Diff(previous, current) {
		if !tr.Freed {
			continue
		}
		stationType, err := m.reg.TypeOf(tr.StationID)
		if err != nil {
			log.Printf("Ignoring transition for unregistered station %d", tr.StationID)
			continue
		}
		if hasClaimOnStation(active, tr.StationID) {
			continue
		}
		if m.availableOfType(previous, stationType) > 0 {
			continue // queue was not visible before this station freed
		}
		created, err := m.offer(ctx, now, tr.StationID, stationType, "", active)
		if err != nil {
			log.Printf("Error offering station %d: %v", tr.StationID, err)
			continue
		}
		if created != nil {
			active = append(active, *created)
		}
	}

	if err := m.store.SavePreviousStates(ctx, current); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// offer dequeues the queue head and mints a pending claim for it. The head
// is skipped (and nobody is offered this cycle) when it is the identity
// whose claim just expired or it already holds an active claim.
func (m *Manager) offer(ctx context.Context, now time.Time, stationID int, stationType, skipIdentity string, active []model.Claim) (*model.Claim, error) {
	entries, err := m.store.QueueEntries(ctx, stationType)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil // station reverts to plain free
	}

	head := entries[0]
	if head.Identity == skipIdentity {
		log.Printf("Not re-offering station %d to %s whose claim just expired", stationID, head.Identity)
		return nil, nil
	}
	if identityHasClaim(active, head.Identity) {
		log.Printf("Queue head %s already holds an active claim, skipping", head.Identity)
		return nil, nil
	}

	dequeued, err := m.store.DequeueHead(ctx, stationType)
	if err != nil {
		return nil, err
	}
	if dequeued == nil || dequeued.Identity != head.Identity {
		return nil, fmt.Errorf("queue head changed during offer for %s", stationType)
	}

	claim := model.Claim{
		Token:       uuid.NewString(),
		StationID:   stationID,
		StationType: stationType,
		Identity:    dequeued.Identity,
		DisplayName: dequeued.DisplayName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}

	log.Printf("Offering station %d (%s) to %s, expires %s", stationID, stationType, claim.Identity, claim.ExpiresAt.Format(time.RFC3339))
	metrics.IncClaim(model.ClaimPending)
	m.dispatcher.Dispatch(Offer{
		Token:       claim.Token,
		StationID:   claim.StationID,
		StationType: claim.StationType,
		Identity:    claim.Identity,
		DisplayName: claim.DisplayName,
		ExpiresAt:   claim.ExpiresAt,
	})
	return &claim, nil
}

// Confirm transitions a pending claim to confirmed. The station then reads
// as held until occupancy independently confirms the claimant arrived.
func (m *Manager) Confirm(ctx context.Context, token string, now time.Time) (model.Claim, error) {
	var confirmed model.Claim
	err := m.guard.Do(ctx, func() error {
		c, err := m.store.ClaimByToken(ctx, token)
		if err != nil {
			return err
		}
		if c.Confirmed {
			return ErrAlreadyConfirmed
		}
		if !now.Before(c.ExpiresAt) {
			return ErrTokenExpired
		}
		if err := m.store.MarkClaimConfirmed(ctx, token); err != nil {
			return err
		}
		c.Confirmed = true
		confirmed = c
		return nil
	}, lock.KeyClaims)
	if err != nil {
		return model.Claim{}, err
	}
	metrics.IncClaim(model.ClaimConfirmed)
	log.Printf("Claim confirmed - %s holds station %d", confirmed.Identity, confirmed.StationID)
	return confirmed, nil
}

func (m *Manager) availableOfType(snapshot map[int]bool, stationType string) int {
	available := 0
	for _, id := range m.reg.IDsOfType(stationType) {
		occupied, known := snapshot[id]
		if known && !occupied {
			available++
		}
	}
	return available
}

func hasClaimOnStation(claims []model.Claim, stationID int) bool {
	for _, c := range claims {
		if c.StationID == stationID {
			return true
		}
	}
	return false
}

func identityHasClaim(claims []model.Claim, identity string) bool {
	for _, c := range claims {
		if c.Identity == identity {
			return true
		}
	}
	return false
}
