package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PushSubscriptionStore = (*PushRepo)(nil)

// PushRepo is the SQLite implementation of the PushSubscriptionStore port interface.
type PushRepo struct {
	db  *DB
	now func() time.Time
}

// NewPushRepo creates a new PushRepo backed by the given DB.
func NewPushRepo(db *DB) *PushRepo {
	return &PushRepo{db: db, now: time.Now}
}

// Subscribe stores a browser subscription for userID. Registering the same
// subscription twice refreshes subscribed_at and keeps a single row.
func (r *PushRepo) Subscribe(ctx context.Context, userID int64, subscription string) (model.PushSubscription, error) {
	const query = `INSERT INTO web_push_subscriptions (user_id, subscription, subscribed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, subscription) DO UPDATE SET subscribed_at = excluded.subscribed_at
		RETURNING id, user_id, subscription, subscribed_at`

	sub, err := scanPushSubscription(r.db.Writer.QueryRowContext(ctx, query, userID, subscription, formatTime(r.now())))
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("subscribe user %d: %w", userID, err)
	}
	return *sub, nil
}

// ListByUser returns the subscriptions of userID.
func (r *PushRepo) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	const query = `SELECT id, user_id, subscription, subscribed_at FROM web_push_subscriptions
		WHERE user_id = ? ORDER BY id`
	return r.list(ctx, query, userID)
}

// ListAll returns every subscription.
func (r *PushRepo) ListAll(ctx context.Context) ([]model.PushSubscription, error) {
	const query = `SELECT id, user_id, subscription, subscribed_at FROM web_push_subscriptions ORDER BY id`
	return r.list(ctx, query)
}

// Delete removes a subscription. Unknown ids are not an error.
func (r *PushRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM web_push_subscriptions WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete push subscription %d: %w", id, err)
	}
	return nil
}

func (r *PushRepo) list(ctx context.Context, query string, args ...any) ([]model.PushSubscription, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.PushSubscription
	for rows.Next() {
		sub, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push subscriptions: %w", err)
	}
	return out, nil
}

func scanPushSubscription(s scanner) (*model.PushSubscription, error) {
	var (
		sub          model.PushSubscription
		subscribedAt string
	)
	if err := s.Scan(&sub.ID, &sub.UserID, &sub.Subscription, &subscribedAt); err != nil {
		return nil, err
	}

	var err error
	sub.SubscribedAt, err = parseTime(subscribedAt)
	if err != nil {
		return nil, fmt.Errorf("parse subscribed_at: %w", err)
	}
	return &sub, nil
}
