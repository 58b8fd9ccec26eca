// leads.go
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
	"strings"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/mutation/relations"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Leads manages prospective clients and their service links.
type Leads struct {
	base
}

// canManageLead reports whether actor may change a lead. Unowned leads, such as those
// posted from the website form, are open to every signed in user.
func canManageLead(actor *models.User, owner *types.ObjectID) bool {
	return owner == nil || *owner == actor.ID
}

// Create stores a lead and links it to its service. A nil actor is the public website
// form: the lead is unowned and no notification is written.
func (s *Leads) Create(ctx context.Context, actor *models.User, in LeadInput) (*models.Lead, *mutation.Trace, error) {
	svc := optionalID(in.Service)
	var owner *types.ObjectID
	if actor != nil {
		owner = actor.ID.Ptr()
	}

	op := mutation.Op[*models.Lead]{
		Name:     "lead.create",
		Validate: in.schema(true).Validate,
		Load: func(ctx context.Context) error {
			if err := s.unique(ctx, "", in.Fullname, in.Email); err != nil {
				return err
			}
			return serviceMustExist(ctx, s.db, svc)
		},
		Primary: func(ctx context.Context) (*models.Lead, error) {
			lead := &models.Lead{
				Owner:      owner,
				Fullname:   strings.TrimSpace(in.Fullname),
				Details:    strings.TrimSpace(in.Details),
				Email:      normalizeEmail(in.Email),
				Telephone:  strings.TrimSpace(in.Telephone),
				City:       strings.TrimSpace(in.City),
				Country:    strings.TrimSpace(in.Country),
				Company:    strings.TrimSpace(in.Company),
				LeadSource: strings.TrimSpace(in.LeadSource),
				Service:    svc,
			}
			if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
				return nil, err
			}
			return lead, nil
		},
		Dependents: []mutation.Step[*models.Lead]{{
			Name: "linking service",
			Run: func(ctx context.Context, lead *models.Lead) error {
				if lead.Service == nil {
					return nil
				}
				return relations.Link(ctx, s.db, relations.ServiceLeads, *lead.Service, lead.ID).Err
			},
		}},
	}
	if actor != nil {
		op.Notify = func(lead *models.Lead) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("A new lead %s has been created successfully", lead.Fullname),
				Type:      notify.TypeCreate,
				Ref:       notify.LeadRef(lead.ID),
				CreatedBy: actor.ID,
			}}
		}
	}
	return mutation.Run(ctx, s.engine, op)
}

// Edit updates the non empty fields of a lead and moves its service link when the
// service changes.
func (s *Leads) Edit(ctx context.Context, actor *models.User, id types.ObjectID, in LeadInput) (*models.Lead, *mutation.Trace, error) {
	var lead *models.Lead
	var previous *types.ObjectID

	return mutation.Run(ctx, s.engine, mutation.Op[*models.Lead]{
		Name:     "lead.edit",
		Validate: in.schema(false).Validate,
		Load: func(ctx context.Context) (err error) {
			lead, err = first[models.Lead](ctx, s.db, id, "Lead not found")
			if err != nil {
				return err
			}
			previous = lead.Service
			if in.Service != nil {
				return serviceMustExist(ctx, s.db, optionalID(in.Service))
			}
			return nil
		},
		Authorize: func(ctx context.Context) error {
			if !canManageLead(actor, lead.Owner) {
				return types.AuthorizationError("You are not authorized to edit this lead")
			}
			return s.unique(ctx, lead.ID, in.Fullname, in.Email)
		},
		Primary: func(ctx context.Context) (*models.Lead, error) {
			lead.Fullname = pick(lead.Fullname, in.Fullname)
			lead.Details = pick(lead.Details, in.Details)
			lead.Email = pick(lead.Email, normalizeEmail(in.Email))
			lead.Telephone = pick(lead.Telephone, in.Telephone)
			lead.City = pick(lead.City, in.City)
			lead.Country = pick(lead.Country, in.Country)
			lead.Company = pick(lead.Company, in.Company)
			lead.LeadSource = pick(lead.LeadSource, in.LeadSource)
			if in.Service != nil {
				lead.Service = optionalID(in.Service)
			}
			err := updateVersioned[models.Lead](ctx, s.db, lead.ID, lead.Version, map[string]any{
				"fullname":    lead.Fullname,
				"details":     lead.Details,
				"email":       lead.Email,
				"telephone":   lead.Telephone,
				"city":        lead.City,
				"country":     lead.Country,
				"company":     lead.Company,
				"lead_source": lead.LeadSource,
				"service":     lead.Service,
			})
			if err != nil {
				return nil, err
			}
			lead.Version++
			return lead, nil
		},
		Dependents: []mutation.Step[*models.Lead]{{
			Name: "moving service link",
			Run: func(ctx context.Context, lead *models.Lead) error {
				return relations.Move(ctx, s.db, relations.ServiceLeads, previous, lead.Service, lead.ID).Err
			},
		}},
		Notify: func(lead *models.Lead) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Lead %s has been edited successfully", lead.Fullname),
				Type:      notify.TypeEdit,
				Ref:       notify.LeadRef(lead.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// List returns every lead, newest first.
func (s *Leads) List(ctx context.Context) ([]models.Lead, error) {
	return all[models.Lead](ctx, s.db)
}

// Get returns one lead.
func (s *Leads) Get(ctx context.Context, id types.ObjectID) (*models.Lead, error) {
	return first[models.Lead](ctx, s.db, id, "Lead not found")
}

// Delete removes a lead and then its entry in the service's lead list.
func (s *Leads) Delete(ctx context.Context, actor *models.User, id types.ObjectID) (*mutation.Trace, error) {
	var lead *models.Lead
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[*models.Lead]{
		Name: "lead.delete",
		Load: func(ctx context.Context) (err error) {
			lead, err = first[models.Lead](ctx, s.db, id, "Lead not found")
			return err
		},
		Authorize: func(context.Context) error {
			if !canManageLead(actor, lead.Owner) {
				return types.AuthorizationError("You are not authorized to delete this lead")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.Lead, error) {
			return lead, s.db.WithContext(ctx).Delete(&models.Lead{}, "id = ?", lead.ID).Error
		},
		Dependents: []mutation.Step[*models.Lead]{{
			Name: "unlinking service",
			Run: func(ctx context.Context, lead *models.Lead) error {
				if lead.Service == nil {
					return nil
				}
				return relations.Unlink(ctx, s.db, relations.ServiceLeads, *lead.Service, lead.ID).Err
			},
		}},
		Notify: func(lead *models.Lead) []notify.Entry {
			return []notify.Entry{{
				Details:   "The lead has been deleted successfully",
				Type:      notify.TypeDelete,
				Ref:       notify.LeadRef(lead.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// DeleteMany removes every listed lead, or none of them when any is missing or not the
// actor's to delete.
func (s *Leads) DeleteMany(ctx context.Context, actor *models.User, raw []string) (int, *mutation.Trace, error) {
	return runBulkDelete(ctx, s.base, actor, raw, bulkDelete[models.Lead]{
		Name:    "lead.deletemany",
		Invalid: "Invalid lead IDs",
		Denied:  "Some leads not found or not authorized",
		Noun:    "leads",
		Allowed: func(actor *models.User, lead *models.Lead) bool {
			return canManageLead(actor, lead.Owner)
		},
		Cleanup: []mutation.Step[[]models.Lead]{{
			Name: "unlinking services",
			Run: func(ctx context.Context, leads []models.Lead) error {
				var errs []error
				for _, lead := range leads {
					if lead.Service == nil {
						continue
					}
					errs = append(errs, relations.Unlink(ctx, s.db, relations.ServiceLeads, *lead.Service, lead.ID).Err)
				}
				return errors.Join(errs...)
			},
		}},
	})
}

// unique rejects a fullname or email already used by any other lead, public ones
// included. Emails compare lower cased.
func (s *Leads) unique(ctx context.Context, self types.ObjectID, fullname, email string) error {
	check := func(column, value, message string) error {
		if value == "" {
			return nil
		}
		q := s.db.WithContext(ctx).Model(&models.Lead{}).Where(column+" = ?", value)
		if !self.IsZero() {
			q = q.Where("id <> ?", self)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.ConflictError("%s", message)
		}
		return nil
	}
	if err := check("fullname", strings.TrimSpace(fullname), "Lead with this fullname already exists"); err != nil {
		return err
	}
	return check("email", normalizeEmail(email), "Lead with this email already exists")
}
