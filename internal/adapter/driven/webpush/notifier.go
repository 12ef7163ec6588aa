// Package webpush notifies registered admin browsers through the Web Push
// protocol.
package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubmissionNotifier = (*Notifier)(nil)

// defaultTTL is how long a push service keeps an undelivered message.
const defaultTTL = 24 * 60 * 60

// payload is the JSON shown by the service worker.
type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier pushes a message to every stored subscription. Subscriptions the
// push service reports as gone are removed.
type Notifier struct {
	store      driven.PushSubscriptionStore
	keys       Keys
	subscriber string
	client     wp.HTTPClient
	logger     *slog.Logger
}

// NewNotifier creates a Notifier signing with keys. subscriber is the VAPID
// contact, e.g. "mailto:push@example.com".
func NewNotifier(store driven.PushSubscriptionStore, keys Keys, subscriber string, logger *slog.Logger) *Notifier {
	rc := &retryablehttp.Client{
		HTTPClient:   cleanhttp.DefaultPooledClient(),
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		RetryMax:     3,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return newNotifier(store, keys, subscriber, rc.StandardClient(), logger)
}

func newNotifier(store driven.PushSubscriptionStore, keys Keys, subscriber string, client wp.HTTPClient, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:      store,
		keys:       keys,
		subscriber: subscriber,
		client:     client,
		logger:     logger,
	}
}

// PublicKey returns the VAPID application server key for the browser.
func (n *Notifier) PublicKey() string {
	return n.keys.PublicKey
}

// NotifySubmission pushes a short summary of s to all subscriptions.
func (n *Notifier) NotifySubmission(ctx context.Context, s model.ContactSubmission) error {
	return n.NotifyAll(ctx, payload{
		Title: fmt.Sprintf("Submission - %s %s", s.Email, s.Phone),
		Body:  s.Message,
	})
}

// NotifyAll sends msg, JSON encoded, to every subscription. A failure for
// one subscription does not stop delivery to the others.
func (n *Notifier) NotifyAll(ctx context.Context, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	subs, err := n.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	var result *multierror.Error
	for _, sub := range subs {
		if err := n.send(ctx, sub, body); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (n *Notifier) send(ctx context.Context, sub model.PushSubscription, body []byte) error {
	var target wp.Subscription
	if err := json.Unmarshal([]byte(sub.Subscription), &target); err != nil {
		return fmt.Errorf("decode push subscription %d: %w", sub.ID, err)
	}

	resp, err := wp.SendNotificationWithContext(ctx, body, &target, &wp.Options{
		HTTPClient:      n.client,
		Subscriber:      n.subscriber,
		VAPIDPublicKey:  n.keys.PublicKey,
		VAPIDPrivateKey: n.keys.PrivateKey,
		TTL:             defaultTTL,
		Urgency:         wp.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("push to subscription %d: %w", sub.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		n.logger.Info("push subscription expired, removing", "subscription_id", sub.ID, "status", resp.StatusCode)
		if err := n.store.Delete(ctx, sub.ID); err != nil {
			return fmt.Errorf("remove expired subscription %d: %w", sub.ID, err)
		}
		return nil
	case resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		n.logger.Warn("push service rejected message",
			"subscription_id", sub.ID, "status", resp.StatusCode, "detail", string(detail))
		return fmt.Errorf("push to subscription %d: status %d", sub.ID, resp.StatusCode)
	}

	n.logger.Debug("push delivered", "subscription_id", sub.ID, "status", resp.StatusCode)
	return nil
}
