package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"lab-status-backend/internal/claim"
	"lab-status-backend/internal/metrics"
	"lab-status-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// offerPayload is the JSON body delivered to the claimant's browser.
type offerPayload struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ClaimURL  string    `json:"claim_url"`
	StationID int       `json:"station_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WorkerPool manages a pool of workers delivering claim offers. Delivery is
// best-effort: the claim stands whether or not the push goes through, and
// failures are logged as non-fatal.
type WorkerPool struct {
	size    int
	jobs    chan claim.Offer
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
	baseURL string
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, baseURL string) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan claim.Offer, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		baseURL: baseURL,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case offer := <-wp.jobs:
			log.Printf("Worker %d delivering offer for station %d to %s", id, offer.StationID, offer.Identity)
			wp.deliver(ctx, offer)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends an offer to the worker pool. Implements claim.Dispatcher.
func (wp *WorkerPool) Dispatch(offer claim.Offer) {
	wp.jobs <- offer
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan claim.Offer {
	return wp.jobs
}

// deliver fetches the claimant's subscriptions and pushes the offer to each.
func (wp *WorkerPool) deliver(ctx context.Context, offer claim.Offer) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("identity = ?", offer.Identity).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for %s: %v", offer.Identity, err)
		metrics.IncNotificationFailure()
		return
	}

	if len(subscriptions) == 0 {
		log.Printf("No subscriptions registered for %s; offer for station %d stands until expiry", offer.Identity, offer.StationID)
		return
	}

	minutes := int(time.Until(offer.ExpiresAt).Round(time.Minute) / time.Minute)
	payload, err := json.Marshal(offerPayload{
		Title:     fmt.Sprintf("Station %d is available!", offer.StationID),
		Body:      fmt.Sprintf("You are first in the %s queue. You have %d minutes to claim station %d.", offer.StationType, minutes, offer.StationID),
		ClaimURL:  fmt.Sprintf("%s/claim/%s", wp.baseURL, offer.Token),
		StationID: offer.StationID,
		ExpiresAt: offer.ExpiresAt,
	})
	if err != nil {
		log.Printf("Error building offer payload: %v", err)
		return
	}

	for _, sub := range subscriptions {
		wp.push(ctx, sub, payload)
	}
}

// push sends a single web push notification.
func (wp *WorkerPool) push(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		metrics.IncNotificationFailure()
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions.
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
