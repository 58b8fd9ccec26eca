// catalog.go
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

	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// ServiceCatalog manages the services leads and clients are attached to.
type ServiceCatalog struct {
	base
}

// Create adds a service with empty lead and client lists.
func (s *ServiceCatalog) Create(ctx context.Context, actor *models.User, in ServiceInput) (*models.Service, *mutation.Trace, error) {
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Service]{
		Name:     "service.create",
		Validate: in.schema(true).Validate,
		Load: func(ctx context.Context) error {
			return s.uniqueName(ctx, "", in.Name)
		},
		Primary: func(ctx context.Context) (*models.Service, error) {
			svc := &models.Service{
				Name:         strings.TrimSpace(in.Name),
				Details:      strings.TrimSpace(in.Details),
				Leads:        models.JSONList[types.ObjectID]{},
				Clients:      models.JSONList[types.ObjectID]{},
				DetailItems:  models.JSONList[models.ServiceDetail]{},
				Requirements: models.JSONList[models.ServiceRequirement]{},
				Prices:       models.JSONList[models.ServicePrice]{},
				FAQs:         models.JSONList[models.ServiceFAQ]{},
			}
			if err := s.db.WithContext(ctx).Create(svc).Error; err != nil {
				return nil, err
			}
			return svc, nil
		},
		Notify: func(svc *models.Service) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("A new service %s has been created successfully", svc.Name),
				Type:      notify.TypeCreate,
				Ref:       notify.ServiceRef(svc.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Edit changes the name or details under the service's version, so a concurrent link
// or unlink is never overwritten.
func (s *ServiceCatalog) Edit(ctx context.Context, actor *models.User, id types.ObjectID, in ServiceInput) (*models.Service, *mutation.Trace, error) {
	var svc *models.Service
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Service]{
		Name:     "service.edit",
		Validate: in.schema(false).Validate,
		Load: func(ctx context.Context) (err error) {
			if svc, err = first[models.Service](ctx, s.db, id, "Service not found"); err != nil {
				return err
			}
			return s.uniqueName(ctx, svc.ID, in.Name)
		},
		Primary: func(ctx context.Context) (*models.Service, error) {
			name := pick(svc.Name, in.Name)
			details := pick(svc.Details, in.Details)
			err := updateVersioned[models.Service](ctx, s.db, svc.ID, svc.Version, map[string]any{"name": name, "details": details})
			if err != nil {
				return nil, err
			}
			svc.Name, svc.Details, svc.Version = name, details, svc.Version+1
			return svc, nil
		},
		Notify: func(svc *models.Service) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Service %s has been updated successfully", svc.Name),
				Type:      notify.TypeEdit,
				Ref:       notify.ServiceRef(svc.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// List returns every service, newest first.
func (s *ServiceCatalog) List(ctx context.Context) ([]models.Service, error) {
	return all[models.Service](ctx, s.db)
}

// Get returns one service.
func (s *ServiceCatalog) Get(ctx context.Context, id types.ObjectID) (*models.Service, error) {
	return first[models.Service](ctx, s.db, id, "Service not found")
}

// Delete removes a service that has no leads. Clients and FAQs pointing at it are
// detached afterwards.
func (s *ServiceCatalog) Delete(ctx context.Context, actor *models.User, id types.ObjectID) (*mutation.Trace, error) {
	var svc *models.Service
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[[]models.Service]{
		Name: "service.delete",
		Load: func(ctx context.Context) (err error) {
			svc, err = first[models.Service](ctx, s.db, id, "Service not found")
			return err
		},
		Authorize: func(context.Context) error {
			if len(svc.Leads) > 0 {
				return types.AuthorizationError("Cannot delete service with associated leads, you have to delete the leads first")
			}
			return nil
		},
		Primary: func(ctx context.Context) ([]models.Service, error) {
			return []models.Service{*svc}, s.deleteGuarded(ctx, []types.ObjectID{svc.ID})
		},
		Dependents: []mutation.Step[[]models.Service]{s.detachStep()},
		Notify: func([]models.Service) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Service %s has been deleted successfully", svc.Name),
				Type:      notify.TypeDelete,
				Ref:       notify.ServiceRef(svc.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// DeleteMany removes every listed service, or none when any is missing or still has leads.
func (s *ServiceCatalog) DeleteMany(ctx context.Context, actor *models.User, raw []string) (int, *mutation.Trace, error) {
	var ids []types.ObjectID
	var services []models.Service

	deleted, trace, err := mutation.Run(ctx, s.engine, mutation.Op[[]models.Service]{
		Name: "service.deletemany",
		Validate: func() []string {
			var err error
			if ids, err = parseIDs(raw, "Invalid service IDs"); err != nil {
				return []string{"Invalid service IDs"}
			}
			return nil
		},
		Load: func(ctx context.Context) error {
			return s.db.WithContext(ctx).Where("id IN ?", ids).Find(&services).Error
		},
		Authorize: func(context.Context) error {
			if len(services) != len(ids) {
				return types.AuthorizationError("You do not have permission to delete some or all of the selected services")
			}
			for _, svc := range services {
				if len(svc.Leads) > 0 {
					return types.AuthorizationError("Cannot delete services with associated leads, you have to delete the leads first")
				}
			}
			return nil
		},
		Primary: func(ctx context.Context) ([]models.Service, error) {
			return services, s.deleteGuarded(ctx, ids)
		},
		Dependents: []mutation.Step[[]models.Service]{s.detachStep()},
		Notify: func(services []models.Service) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("%d services have been deleted successfully", len(services)),
				Type:      notify.TypeDelete,
				Ref:       notify.UserRef(actor.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return len(deleted), trace, err
}

// deleteGuarded deletes the services in one transaction, failing without deleting
// anything when a lead was linked after the guard was checked.
func (s *ServiceCatalog) deleteGuarded(ctx context.Context, ids []types.ObjectID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var linked int64
		if err := tx.Model(&models.Lead{}).Where("service IN ?", ids).Count(&linked).Error; err != nil {
			return err
		}
		if linked > 0 {
			return types.AuthorizationError("Cannot delete service with associated leads, you have to delete the leads first")
		}
		return tx.Where("id IN ?", ids).Delete(&models.Service{}).Error
	})
}

func (s *ServiceCatalog) detachStep() mutation.Step[[]models.Service] {
	return mutation.Step[[]models.Service]{
		Name: "detaching clients and faqs",
		Run: func(ctx context.Context, services []models.Service) error {
			ids := make([]types.ObjectID, len(services))
			for i, svc := range services {
				ids[i] = svc.ID
			}
			detach := map[string]any{"service": nil}
			if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("service IN ?", ids).Updates(detach).Error; err != nil {
				return err
			}
			return s.db.WithContext(ctx).Model(&models.FAQ{}).Where("service IN ?", ids).Updates(detach).Error
		},
	}
}

func (s *ServiceCatalog) uniqueName(ctx context.Context, self types.ObjectID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	query := "name = ?"
	args := []any{name}
	if !self.IsZero() {
		query += " AND id <> ?"
		args = append(args, self)
	}
	taken, err := exists[models.Service](ctx, s.db, query, args...)
	if err != nil {
		return err
	}
	if taken {
		return types.ConflictError("Service with this name already exists")
	}
	return nil
}
