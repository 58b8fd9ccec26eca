// sections.go
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
	"fmt"
	"strings"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// ItemInput is a request body that validates itself and builds one list item.
type ItemInput[T models.ServiceItem] interface {
	schema() *mutation.Schema
	item(id types.ObjectID) T
}

// Section edits one of the lists stored on a service row: details, requirements, prices
// or faqs. Every write goes through the service version, so two sections edited at once
// never overwrite each other.
type Section[T models.ServiceItem, In ItemInput[T]] struct {
	catalog *ServiceCatalog
	noun    string
	plural  string
	column  string
	list    func(*models.Service) *models.JSONList[T]
}

// Details returns the section behind /service/:ownerID/:serviceID/details.
func (s *ServiceCatalog) Details() *Section[models.ServiceDetail, ServiceDetailInput] {
	return &Section[models.ServiceDetail, ServiceDetailInput]{
		catalog: s, noun: "Detail", plural: "Details", column: "detail_items",
		list: func(svc *models.Service) *models.JSONList[models.ServiceDetail] { return &svc.DetailItems },
	}
}

// Requirements returns the section behind /service/:ownerID/:serviceID/requirement.
func (s *ServiceCatalog) Requirements() *Section[models.ServiceRequirement, ServiceRequirementInput] {
	return &Section[models.ServiceRequirement, ServiceRequirementInput]{
		catalog: s, noun: "Requirement", plural: "Requirements", column: "requirements",
		list: func(svc *models.Service) *models.JSONList[models.ServiceRequirement] { return &svc.Requirements },
	}
}

// Prices returns the section behind /service/:ownerID/:serviceID/price.
func (s *ServiceCatalog) Prices() *Section[models.ServicePrice, ServicePriceInput] {
	return &Section[models.ServicePrice, ServicePriceInput]{
		catalog: s, noun: "Price", plural: "Prices", column: "prices",
		list: func(svc *models.Service) *models.JSONList[models.ServicePrice] { return &svc.Prices },
	}
}

// FAQs returns the section behind /service/:ownerID/:serviceID/faq.
func (s *ServiceCatalog) FAQs() *Section[models.ServiceFAQ, ServiceFAQInput] {
	return &Section[models.ServiceFAQ, ServiceFAQInput]{
		catalog: s, noun: "FAQ", plural: "FAQs", column: "faqs",
		list: func(svc *models.Service) *models.JSONList[models.ServiceFAQ] { return &svc.FAQs },
	}
}

// Noun is the singular display name, e.g. "Price".
func (sec *Section[T, In]) Noun() string { return sec.noun }

// Plural is the plural display name, e.g. "Prices".
func (sec *Section[T, In]) Plural() string { return sec.plural }

// Add appends a new item with a fresh id.
func (sec *Section[T, In]) Add(ctx context.Context, actor *models.User, serviceID types.ObjectID, in In) (*models.Service, *mutation.Trace, error) {
	return sec.write(ctx, actor, serviceID, mutation.Op[*models.Service]{
		Name:     "service." + strings.ToLower(sec.noun) + ".add",
		Validate: in.schema().Validate,
	}, func(items models.JSONList[T]) (models.JSONList[T], error) {
		return append(items, in.item(types.NewObjectID())), nil
	}, notify.TypeAdd, func(svc *models.Service) string {
		return fmt.Sprintf("A new %s has been added to service %s", strings.ToLower(sec.noun), svc.Name)
	})
}

// Edit replaces the item with itemID, keeping its id and position.
func (sec *Section[T, In]) Edit(ctx context.Context, actor *models.User, serviceID, itemID types.ObjectID, in In) (*models.Service, *mutation.Trace, error) {
	return sec.write(ctx, actor, serviceID, mutation.Op[*models.Service]{
		Name:     "service." + strings.ToLower(sec.noun) + ".edit",
		Validate: in.schema().Validate,
	}, func(items models.JSONList[T]) (models.JSONList[T], error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, types.NotFoundError("%s not found", sec.noun)
		}
		items[i] = in.item(itemID)
		return items, nil
	}, notify.TypeEdit, func(svc *models.Service) string {
		return fmt.Sprintf("A %s of service %s has been updated", strings.ToLower(sec.noun), svc.Name)
	})
}

// Delete removes the item with itemID.
func (sec *Section[T, In]) Delete(ctx context.Context, actor *models.User, serviceID, itemID types.ObjectID) (*mutation.Trace, error) {
	_, trace, err := sec.write(ctx, actor, serviceID, mutation.Op[*models.Service]{
		Name: "service." + strings.ToLower(sec.noun) + ".delete",
	}, func(items models.JSONList[T]) (models.JSONList[T], error) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, types.NotFoundError("%s not found", sec.noun)
		}
		return append(items[:i], items[i+1:]...), nil
	}, notify.TypeRemove, func(svc *models.Service) string {
		return fmt.Sprintf("A %s has been removed from service %s", strings.ToLower(sec.noun), svc.Name)
	})
	return trace, err
}

// DeleteMany removes every listed item, or none when any of them is missing.
func (sec *Section[T, In]) DeleteMany(ctx context.Context, actor *models.User, serviceID types.ObjectID, raw []string) (int, *mutation.Trace, error) {
	var ids []types.ObjectID
	invalid := fmt.Sprintf("Invalid %s IDs", strings.ToLower(sec.noun))
	_, trace, err := sec.write(ctx, actor, serviceID, mutation.Op[*models.Service]{
		Name: "service." + strings.ToLower(sec.noun) + ".deletemany",
		Validate: func() []string {
			var err error
			if ids, err = parseIDs(raw, invalid); err != nil {
				return []string{invalid}
			}
			return nil
		},
	}, func(items models.JSONList[T]) (models.JSONList[T], error) {
		drop := make(map[types.ObjectID]bool, len(ids))
		for _, id := range ids {
			if indexOf(items, id) < 0 {
				return nil, types.NotFoundError("Some %s not found", strings.ToLower(sec.plural))
			}
			drop[id] = true
		}
		kept := make(models.JSONList[T], 0, len(items)-len(ids))
		for _, item := range items {
			if !drop[item.ItemID()] {
				kept = append(kept, item)
			}
		}
		return kept, nil
	}, notify.TypeRemove, func(svc *models.Service) string {
		return fmt.Sprintf("%d %s have been removed from service %s", len(ids), strings.ToLower(sec.plural), svc.Name)
	})
	return len(ids), trace, err
}

// write loads the service, applies change to a copy of the section list and stores the
// result under the service version. op carries the name and validation.
func (sec *Section[T, In]) write(
	ctx context.Context,
	actor *models.User,
	serviceID types.ObjectID,
	op mutation.Op[*models.Service],
	change func(models.JSONList[T]) (models.JSONList[T], error),
	kind notify.Type,
	details func(*models.Service) string,
) (*models.Service, *mutation.Trace, error) {
	s := sec.catalog
	var svc *models.Service
	var next models.JSONList[T]

	op.Load = func(ctx context.Context) (err error) {
		if svc, err = first[models.Service](ctx, s.db, serviceID, "Service not found"); err != nil {
			return err
		}
		current := *sec.list(svc)
		next, err = change(append(make(models.JSONList[T], 0, len(current)+1), current...))
		return err
	}
	op.Primary = func(ctx context.Context) (*models.Service, error) {
		err := updateVersioned[models.Service](ctx, s.db, svc.ID, svc.Version, map[string]any{sec.column: next})
		if err != nil {
			return nil, err
		}
		*sec.list(svc) = next
		svc.Version++
		return svc, nil
	}
	op.Notify = func(svc *models.Service) []notify.Entry {
		return []notify.Entry{{
			Details:   details(svc),
			Type:      kind,
			Ref:       notify.ServiceRef(svc.ID),
			CreatedBy: actor.ID,
		}}
	}
	return mutation.Run(ctx, s.engine, op)
}

func indexOf[T models.ServiceItem](items models.JSONList[T], id types.ObjectID) int {
	for i, item := range items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}
