package redis

import (
	"context"
	"time"
)

// EventGuard is the fast-path duplicate filter for gateway webhook events.
// The database unique index on external payment ids remains the source of
// truth; the guard only short-circuits obvious redeliveries before they
// open a transaction.
type EventGuard struct {
	client *Client
	ttl    time.Duration
}

// NewEventGuard builds a guard with the supplied dedupe window.
func NewEventGuard(client *Client, ttl time.Duration) *EventGuard {
	return &EventGuard{client: client, ttl: ttl}
}

// CheckAndMark atomically records the event id and reports whether this
// delivery is the first one seen inside the window. Redis failures degrade
// open: the caller should proceed and let the database dedupe.
func (g *EventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if g == nil || g.client == nil || eventID == "" {
		return true, nil
	}
	return g.client.SetNX(ctx, g.client.EventKey(eventID), "1", g.ttl)
}

// Delete drops the mark so a failed delivery can be retried by the gateway.
func (g *EventGuard) Delete(ctx context.Context, eventID string) error {
	if g == nil || g.client == nil || eventID == "" {
		return nil
	}
	return g.client.Del(ctx, g.client.EventKey(eventID))
}
