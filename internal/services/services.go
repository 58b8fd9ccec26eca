// services.go
//
// A CRM data service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-crm.
// jam-build-crm is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-crm is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-crm.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Deps are the shared collaborators every domain service is built from.
type Deps struct {
	DB      *gorm.DB
	Sink    notify.Sink
	Storage *storage.Lifecycle
	Mailer  Mailer
	Config  *config.Config
	Log     zerolog.Logger
	Now     func() time.Time
}

// Registry holds one service per domain.
type Registry struct {
	Auth          *Auth
	Leads         *Leads
	Catalog       *ServiceCatalog
	Clients       *Clients
	Blogs         *Blogs
	Announcements *Announcements
	FAQs          *FAQs
	Files         *Files
	Notifications *Notifications
	Health        *Health
}

// New wires the domain services around one mutation engine.
func New(d Deps) *Registry {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Mailer == nil {
		d.Mailer = NewLogMailer(d.Log)
	}
	engine := mutation.NewEngine(d.Sink, d.Log)
	limit := int64(d.Config.UploadLimitBytes())
	b := base{db: d.DB, engine: engine, log: d.Log, now: d.Now}

	return &Registry{
		Auth:          newAuth(b, d.Mailer, d.Config),
		Leads:         &Leads{base: b},
		Catalog:       &ServiceCatalog{base: b},
		Clients:       &Clients{base: b, files: d.Storage, limit: limit},
		Blogs:         &Blogs{base: b, files: d.Storage, limit: limit},
		Announcements: &Announcements{base: b, files: d.Storage, limit: limit},
		FAQs:          &FAQs{base: b},
		Files:         &Files{base: b, files: d.Storage, limit: limit},
		Notifications: &Notifications{feed: notify.NewFeed(d.DB)},
		Health:        &Health{db: d.DB, bucket: bucketOf(d.Storage), cfg: d.Config, log: d.Log},
	}
}

func bucketOf(l *storage.Lifecycle) storage.Bucket {
	if l == nil {
		return nil
	}
	return l.Bucket()
}

// base carries what every domain service needs.
type base struct {
	db     *gorm.DB
	engine *mutation.Engine
	log    zerolog.Logger
	now    func() time.Time
}

// first loads one row by id, mapping a missing row to a 404 with message.
func first[T any](ctx context.Context, db *gorm.DB, id types.ObjectID, message string) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFoundError("%s", message)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// all lists every row of T, newest first.
func all[T any](ctx context.Context, db *gorm.DB) ([]T, error) {
	rows := []T{}
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// exists reports whether a row of T matches the condition.
func exists[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(new(T)).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// parseIDs validates every id of a bulk request. Any malformed id fails the whole request.
func parseIDs(raw []string, message string) ([]types.ObjectID, error) {
	if len(raw) == 0 {
		return nil, types.ValidationError(message)
	}
	ids := make([]types.ObjectID, 0, len(raw))
	seen := make(map[types.ObjectID]bool, len(raw))
	for _, s := range raw {
		if !types.IsValidObjectID(s) {
			return nil, types.ValidationError(message)
		}
		id := types.ObjectID(s)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// optionalID turns an optional reference from a request into a stored reference.
func optionalID(s *string) *types.ObjectID {
	if s == nil || *s == "" {
		return nil
	}
	id := types.ObjectID(*s)
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// serviceMustExist reports a 404 when a referenced service is missing.
func serviceMustExist(ctx context.Context, db *gorm.DB, id *types.ObjectID) error {
	if id == nil {
		return nil
	}
	ok, err := exists[models.Service](ctx, db, "id = ?", *id)
	if err != nil {
		return err
	}
	if !ok {
		return types.NotFoundError("Service does not exist")
	}
	return nil
}

// updateVersioned writes fields to one row only while it still holds version, and bumps
// the version. A lost race is a conflict the caller retries after reloading.
func updateVersioned[T any](ctx context.Context, db *gorm.DB, id types.ObjectID, version uint64, fields map[string]any) error {
	fields["version"] = version + 1
	res := db.WithContext(ctx).Model(new(T)).Where("id = ? AND version = ?", id, version).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ConflictError("E_VERSION - Refresh and reconcile with current version and retry.")
	}
	return nil
}

// bulkDelete describes an all or nothing delete of many rows of T.
type bulkDelete[T any] struct {
	Name    string
	Invalid string
	Denied  string
	Noun    string
	Allowed func(actor *models.User, row *T) bool
	Cleanup []mutation.Step[[]T]
}

// runBulkDelete deletes the listed rows in one transaction once every one of them is
// found and allowed. Cleanup steps run after the commit.
func runBulkDelete[T any](ctx context.Context, b base, actor *models.User, raw []string, d bulkDelete[T]) (int, *mutation.Trace, error) {
	var ids []types.ObjectID
	var rows []T

	deleted, trace, err := mutation.Run(ctx, b.engine, mutation.Op[[]T]{
		Name: d.Name,
		Validate: func() []string {
			var err error
			if ids, err = parseIDs(raw, d.Invalid); err != nil {
				return []string{d.Invalid}
			}
			return nil
		},
		Load: func(ctx context.Context) error {
			return b.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
		},
		Authorize: func(context.Context) error {
			if len(rows) != len(ids) {
				return types.AuthorizationError(d.Denied)
			}
			for i := range rows {
				if !d.Allowed(actor, &rows[i]) {
					return types.AuthorizationError(d.Denied)
				}
			}
			return nil
		},
		Primary: func(ctx context.Context) ([]T, error) {
			err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				res := tx.Where("id IN ?", ids).Delete(new(T))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected != int64(len(ids)) {
					return types.ConflictError("Some %s were changed while deleting, nothing was deleted", d.Noun)
				}
				return nil
			})
			return rows, err
		},
		Dependents: d.Cleanup,
		Notify: func(rows []T) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("%d %s have been deleted successfully", len(rows), d.Noun),
				Type:      notify.TypeDelete,
				Ref:       notify.UserRef(actor.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return len(deleted), trace, err
}
