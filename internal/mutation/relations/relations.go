// Package relations keeps the two sides of a parent array / child reference pair in step.
//
// Every function writes the child side first and the parent array second, in separate
// statements. A failure between them is reported in SyncResult and left for Check to find;
// nothing is rolled back.
package relations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/types"
)

const maxAttempts = 3

// Edge names the tables and columns of one bidirectional reference.
type Edge struct {
	Name        string
	ParentTable string
	ArrayColumn string
	ChildTable  string
	RefColumn   string
}

var (
	// ServiceLeads pairs services.leads with leads.service.
	ServiceLeads = Edge{Name: "service-leads", ParentTable: "services", ArrayColumn: "leads", ChildTable: "leads", RefColumn: "service"}
	// ServiceClients pairs services.clients with clients.service.
	ServiceClients = Edge{Name: "service-clients", ParentTable: "services", ArrayColumn: "clients", ChildTable: "clients", RefColumn: "service"}
)

// Edges lists every known edge.
func Edges() []Edge {
	return []Edge{ServiceLeads, ServiceClients}
}

// SyncResult reports how far a sync got. PrimaryOK covers the child reference,
// DependentOK the parent array.
type SyncResult struct {
	PrimaryOK   bool
	DependentOK bool
	Err         error
}

// OK reports whether both sides were written.
func (r SyncResult) OK() bool {
	return r.PrimaryOK && r.DependentOK && r.Err == nil
}

// Link points child at parent and adds child to the parent array.
func Link(ctx context.Context, db *gorm.DB, edge Edge, parent, child types.ObjectID) SyncResult {
	if err := setRef(ctx, db, edge, child, parent.Ptr()); err != nil {
		return SyncResult{Err: err}
	}
	if err := mutateArray(ctx, db, edge, parent, func(refs models.JSONList[types.ObjectID]) models.JSONList[types.ObjectID] {
		if models.Contains(refs, child) {
			return refs
		}
		return append(refs, child)
	}); err != nil {
		return SyncResult{PrimaryOK: true, Err: err}
	}
	return SyncResult{PrimaryOK: true, DependentOK: true}
}

// Unlink clears the child reference, when the child still exists, and removes child from
// the parent array.
func Unlink(ctx context.Context, db *gorm.DB, edge Edge, parent, child types.ObjectID) SyncResult {
	if err := setRef(ctx, db, edge, child, nil); err != nil {
		return SyncResult{Err: err}
	}
	if err := mutateArray(ctx, db, edge, parent, func(refs models.JSONList[types.ObjectID]) models.JSONList[types.ObjectID] {
		return models.Without(refs, child)
	}); err != nil {
		return SyncResult{PrimaryOK: true, Err: err}
	}
	return SyncResult{PrimaryOK: true, DependentOK: true}
}

// Move repoints child from one parent to another. Either parent may be nil.
func Move(ctx context.Context, db *gorm.DB, edge Edge, from, to *types.ObjectID, child types.ObjectID) SyncResult {
	if sameParent(from, to) {
		return SyncResult{PrimaryOK: true, DependentOK: true}
	}
	if err := setRef(ctx, db, edge, child, to); err != nil {
		return SyncResult{Err: err}
	}
	if from != nil {
		if err := mutateArray(ctx, db, edge, *from, func(refs models.JSONList[types.ObjectID]) models.JSONList[types.ObjectID] {
			return models.Without(refs, child)
		}); err != nil {
			return SyncResult{PrimaryOK: true, Err: err}
		}
	}
	if to != nil {
		if err := mutateArray(ctx, db, edge, *to, func(refs models.JSONList[types.ObjectID]) models.JSONList[types.ObjectID] {
			if models.Contains(refs, child) {
				return refs
			}
			return append(refs, child)
		}); err != nil {
			return SyncResult{PrimaryOK: true, Err: err}
		}
	}
	return SyncResult{PrimaryOK: true, DependentOK: true}
}

func sameParent(a, b *types.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func setRef(ctx context.Context, db *gorm.DB, edge Edge, child types.ObjectID, parent *types.ObjectID) error {
	var value interface{}
	if parent != nil {
		value = *parent
	}
	return db.WithContext(ctx).Table(edge.ChildTable).
		Where("id = ?", child).
		Updates(map[string]interface{}{edge.RefColumn: value, "updated_at": time.Now()}).Error
}

type arrayRow struct {
	Refs    models.JSONList[types.ObjectID]
	Version uint64
}

// mutateArray applies fn to the parent array under the parent's version, retrying when a
// concurrent writer bumped it first.
func mutateArray(ctx context.Context, db *gorm.DB, edge Edge, parent types.ObjectID,
	fn func(models.JSONList[types.ObjectID]) models.JSONList[types.ObjectID]) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var row arrayRow
		err := db.WithContext(ctx).Table(edge.ParentTable).
			Select(fmt.Sprintf("%s AS refs, version", edge.ArrayColumn)).
			Where("id = ?", parent).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NotFoundError("%s %s not found", edge.ParentTable, parent)
		}
		if err != nil {
			return err
		}

		next := fn(row.Refs)
		if equalRefs(row.Refs, next) {
			return nil
		}

		res := db.WithContext(ctx).Table(edge.ParentTable).
			Where("id = ? AND version = ?", parent, row.Version).
			Updates(map[string]interface{}{
				edge.ArrayColumn: next,
				"version":        row.Version + 1,
				"updated_at":     time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return types.ConflictError("E_VERSION - %s %s changed concurrently, retry", edge.ParentTable, parent)
}

func equalRefs(a, b models.JSONList[types.ObjectID]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
