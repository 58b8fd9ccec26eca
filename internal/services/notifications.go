package services

import (
	"context"

	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Notifications is the activity feed read side.
type Notifications struct {
	feed *notify.Feed
}

// ListForUser returns the notifications user created, newest first.
func (s *Notifications) ListForUser(ctx context.Context, user types.ObjectID) ([]notify.Notification, error) {
	return s.feed.ListForUser(ctx, user)
}

// ListAll returns every notification, newest first.
func (s *Notifications) ListAll(ctx context.Context) ([]notify.Notification, error) {
	return s.feed.ListAll(ctx)
}

// Get returns one of owner's notifications.
func (s *Notifications) Get(ctx context.Context, owner, id types.ObjectID) (*notify.Notification, error) {
	return s.feed.Get(ctx, owner, id)
}

// MarkRead flags one of owner's notifications as read.
func (s *Notifications) MarkRead(ctx context.Context, owner, id types.ObjectID) (*notify.Notification, error) {
	return s.feed.MarkRead(ctx, owner, id)
}

// Delete removes one of owner's notifications.
func (s *Notifications) Delete(ctx context.Context, owner, id types.ObjectID) error {
	return s.feed.DeleteOne(ctx, owner, id)
}

// DeleteMany removes the listed notifications when owner holds all of them.
func (s *Notifications) DeleteMany(ctx context.Context, owner types.ObjectID, raw []string) (int64, error) {
	ids, err := parseIDs(raw, "Invalid notification IDs")
	if err != nil {
		return 0, err
	}
	return s.feed.DeleteMany(ctx, owner, ids)
}
