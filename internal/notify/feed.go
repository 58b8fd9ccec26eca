package notify

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/hints"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// Feed is the read side of the notification log.
type Feed struct {
	db *gorm.DB
}

// NewFeed creates a feed over db.
func NewFeed(db *gorm.DB) *Feed {
	return &Feed{db: db}
}

// ListForUser returns the notifications created by user, newest first.
func (f *Feed) ListForUser(ctx context.Context, user types.ObjectID) ([]Notification, error) {
	var list []Notification
	err := f.db.WithContext(ctx).
		Clauses(hints.CommentBefore("select", "notification feed")).
		Where("created_by = ?", user).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// ListAll returns every notification, newest first.
func (f *Feed) ListAll(ctx context.Context) ([]Notification, error) {
	var list []Notification
	err := f.db.WithContext(ctx).
		Clauses(hints.CommentBefore("select", "notification feed all")).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// Get loads one notification and requires owner to have created it.
func (f *Feed) Get(ctx context.Context, owner, id types.ObjectID) (*Notification, error) {
	var n Notification
	if err := f.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFoundError("Notification not found")
		}
		return nil, err
	}
	if n.CreatedBy != owner {
		return nil, types.AuthorizationError("You are not authorized to access this notification")
	}
	return &n, nil
}

// MarkRead flags one notification as read.
func (f *Feed) MarkRead(ctx context.Context, owner, id types.ObjectID) (*Notification, error) {
	n, err := f.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := f.db.WithContext(ctx).Model(n).Update("is_read", true).Error; err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

// DeleteOne removes one notification created by owner.
func (f *Feed) DeleteOne(ctx context.Context, owner, id types.ObjectID) error {
	n, err := f.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return f.db.WithContext(ctx).Delete(n).Error
}

// DeleteMany removes the listed notifications only when every one exists and belongs to
// owner. Otherwise nothing is deleted.
func (f *Feed) DeleteMany(ctx context.Context, owner types.ObjectID, ids []types.ObjectID) (int64, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return 0, types.ValidationError("Notification ids are required")
	}
	var deleted int64
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found []Notification
		if err := tx.Select("id", "created_by").Where("id IN ?", unique).Find(&found).Error; err != nil {
			return err
		}
		if len(found) != len(unique) {
			return types.NotFoundError("One or more notifications not found")
		}
		for _, n := range found {
			if n.CreatedBy != owner {
				return types.AuthorizationError("You are not authorized to delete one or more notifications")
			}
		}
		res := tx.Where("id IN ?", unique).Delete(&Notification{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func dedupe(ids []types.ObjectID) []types.ObjectID {
	seen := make(map[types.ObjectID]struct{}, len(ids))
	out := make([]types.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
