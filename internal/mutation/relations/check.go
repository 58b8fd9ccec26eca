package relations

import (
	"context"

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Dangling problems reported by Check
const (
	ReasonMissingChild  = "parent lists a child that does not exist"
	ReasonWrongParent   = "parent lists a child that points elsewhere"
	ReasonMissingParent = "child points at a parent that does not exist"
	ReasonNotListed     = "child points at a parent that does not list it"
)

// Dangling is one half-written relationship.
type Dangling struct {
	Edge   string         `json:"edge" yaml:"edge"`
	Parent types.ObjectID `json:"parent" yaml:"parent"`
	Child  types.ObjectID `json:"child" yaml:"child"`
	Reason string         `json:"reason" yaml:"reason"`
}

type parentRow struct {
	ID   types.ObjectID
	Refs models.JSONList[types.ObjectID]
}

type childRow struct {
	ID     types.ObjectID
	Parent *types.ObjectID
}

// Check scans both tables of edge and reports every mismatch. It reads everything and is
// meant for operators, not for request paths.
func Check(ctx context.Context, db *gorm.DB, edge Edge) ([]Dangling, error) {
	var parents []parentRow
	if err := db.WithContext(ctx).Table(edge.ParentTable).
		Select("id, " + edge.ArrayColumn + " AS refs").
		Order("id").
		Find(&parents).Error; err != nil {
		return nil, err
	}
	var children []childRow
	if err := db.WithContext(ctx).Table(edge.ChildTable).
		Select("id, " + edge.RefColumn + " AS parent").
		Order("id").
		Find(&children).Error; err != nil {
		return nil, err
	}

	childParent := make(map[types.ObjectID]*types.ObjectID, len(children))
	for _, c := range children {
		childParent[c.ID] = c.Parent
	}
	listed := make(map[types.ObjectID]map[types.ObjectID]bool, len(parents))

	var out []Dangling
	for _, p := range parents {
		listed[p.ID] = make(map[types.ObjectID]bool, len(p.Refs))
		for _, ref := range p.Refs {
			listed[p.ID][ref] = true
			parent, ok := childParent[ref]
			switch {
			case !ok:
				out = append(out, Dangling{Edge: edge.Name, Parent: p.ID, Child: ref, Reason: ReasonMissingChild})
			case parent == nil || *parent != p.ID:
				out = append(out, Dangling{Edge: edge.Name, Parent: p.ID, Child: ref, Reason: ReasonWrongParent})
			}
		}
	}
	for _, c := range children {
		if c.Parent == nil {
			continue
		}
		refs, ok := listed[*c.Parent]
		switch {
		case !ok:
			out = append(out, Dangling{Edge: edge.Name, Parent: *c.Parent, Child: c.ID, Reason: ReasonMissingParent})
		case !refs[c.ID]:
			out = append(out, Dangling{Edge: edge.Name, Parent: *c.Parent, Child: c.ID, Reason: ReasonNotListed})
		}
	}
	return out, nil
}
