// clients.go
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
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Clients manages converted leads and their attached files.
type Clients struct {
	base
	files *storage.Lifecycle
	limit int64
}

func (s *Clients) owned(actor *models.User, client *models.Client, action string) error {
	if client.Owner != actor.ID {
		return types.AuthorizationError(fmt.Sprintf("You are not authorized to %s this client", action))
	}
	return nil
}

// Convert turns a lead into a client owned by actor. The client is written first; the
// lead is deleted and the service link moved from the lead list to the client list after.
func (s *Clients) Convert(ctx context.Context, actor *models.User, leadID types.ObjectID) (*models.Client, *mutation.Trace, error) {
	var lead *models.Lead
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Client]{
		Name: "client.convert",
		Load: func(ctx context.Context) (err error) {
			lead, err = first[models.Lead](ctx, s.db, leadID, "Lead not found")
			return err
		},
		Authorize: func(context.Context) error {
			if !canManageLead(actor, lead.Owner) {
				return types.AuthorizationError("You are not authorized to convert this lead")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.Client, error) {
			client := &models.Client{
				Owner:      actor.ID,
				Fullname:   lead.Fullname,
				Details:    lead.Details,
				Email:      lead.Email,
				Telephone:  lead.Telephone,
				City:       lead.City,
				Country:    lead.Country,
				Company:    lead.Company,
				LeadSource: lead.LeadSource,
				Service:    lead.Service,
				Files:      models.JSONList[string]{},
			}
			if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
				return nil, err
			}
			return client, nil
		},
		Dependents: []mutation.Step[*models.Client]{
			{
				Name: "deleting converted lead",
				Run: func(ctx context.Context, _ *models.Client) error {
					return s.db.WithContext(ctx).Delete(&models.Lead{}, "id = ?", lead.ID).Error
				},
			},
			{
				Name: "moving service link",
				Run: func(ctx context.Context, client *models.Client) error {
					if lead.Service == nil {
						return nil
					}
					if res := relations.Unlink(ctx, s.db, relations.ServiceLeads, *lead.Service, lead.ID); !res.OK() {
						return res.Err
					}
					return relations.Link(ctx, s.db, relations.ServiceClients, *lead.Service, client.ID).Err
				},
			},
		},
		Notify: func(client *models.Client) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Lead %s has been successfully converted to client %s", lead.Fullname, client.Fullname),
				Type:      notify.TypeConvert,
				Ref:       notify.ClientRef(client.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Create adds a client owned by actor directly, attached to an optional service.
func (s *Clients) Create(ctx context.Context, actor *models.User, in ClientInput) (*models.Client, *mutation.Trace, error) {
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Client]{
		Name:     "client.create",
		Validate: in.schema(true).Validate,
		Load: func(ctx context.Context) error {
			taken, err := exists[models.Client](ctx, s.db, "owner = ? AND email = ?", actor.ID, normalizeEmail(in.Email))
			if err != nil {
				return err
			}
			if taken {
				return types.ConflictError("Client with this email already exists in your account")
			}
			return serviceMustExist(ctx, s.db, optionalID(in.Service))
		},
		Primary: func(ctx context.Context) (*models.Client, error) {
			client := &models.Client{
				Owner:      actor.ID,
				Fullname:   strings.TrimSpace(in.Fullname),
				Details:    strings.TrimSpace(in.Details),
				Email:      normalizeEmail(in.Email),
				Telephone:  strings.TrimSpace(in.Telephone),
				City:       strings.TrimSpace(in.City),
				Country:    strings.TrimSpace(in.Country),
				Company:    strings.TrimSpace(in.Company),
				LeadSource: strings.TrimSpace(in.LeadSource),
				Service:    optionalID(in.Service),
				Files:      models.JSONList[string]{},
			}
			if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
				return nil, err
			}
			return client, nil
		},
		Dependents: []mutation.Step[*models.Client]{{
			Name: "linking service",
			Run: func(ctx context.Context, client *models.Client) error {
				if client.Service == nil {
					return nil
				}
				return relations.Link(ctx, s.db, relations.ServiceClients, *client.Service, client.ID).Err
			},
		}},
		Notify: func(client *models.Client) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Client %s has been created successfully", client.Fullname),
				Type:      notify.TypeCreate,
				Ref:       notify.ClientRef(client.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Edit updates the non empty fields of a client and moves its service link when the
// service changes.
func (s *Clients) Edit(ctx context.Context, actor *models.User, id types.ObjectID, in ClientInput) (*models.Client, *mutation.Trace, error) {
	var client *models.Client
	var previous *types.ObjectID

	return mutation.Run(ctx, s.engine, mutation.Op[*models.Client]{
		Name:     "client.edit",
		Validate: in.schema(false).Validate,
		Load: func(ctx context.Context) (err error) {
			if client, err = first[models.Client](ctx, s.db, id, "Client not found"); err != nil {
				return err
			}
			previous = client.Service
			if in.Service != nil {
				return serviceMustExist(ctx, s.db, optionalID(in.Service))
			}
			return nil
		},
		Authorize: func(context.Context) error {
			return s.owned(actor, client, "edit")
		},
		Primary: func(ctx context.Context) (*models.Client, error) {
			client.Fullname = pick(client.Fullname, in.Fullname)
			client.Details = pick(client.Details, in.Details)
			client.Email = pick(client.Email, normalizeEmail(in.Email))
			client.Telephone = pick(client.Telephone, in.Telephone)
			client.City = pick(client.City, in.City)
			client.Country = pick(client.Country, in.Country)
			client.Company = pick(client.Company, in.Company)
			client.LeadSource = pick(client.LeadSource, in.LeadSource)
			if in.Service != nil {
				client.Service = optionalID(in.Service)
			}
			err := updateVersioned[models.Client](ctx, s.db, client.ID, client.Version, map[string]any{
				"fullname":    client.Fullname,
				"details":     client.Details,
				"email":       client.Email,
				"telephone":   client.Telephone,
				"city":        client.City,
				"country":     client.Country,
				"company":     client.Company,
				"lead_source": client.LeadSource,
				"service":     client.Service,
			})
			if err != nil {
				return nil, err
			}
			client.Version++
			return client, nil
		},
		Dependents: []mutation.Step[*models.Client]{{
			Name: "moving service link",
			Run: func(ctx context.Context, client *models.Client) error {
				return relations.Move(ctx, s.db, relations.ServiceClients, previous, client.Service, client.ID).Err
			},
		}},
		Notify: func(client *models.Client) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Client %s has been edited successfully", client.Fullname),
				Type:      notify.TypeEdit,
				Ref:       notify.ClientRef(client.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// List returns every client, newest first.
func (s *Clients) List(ctx context.Context) ([]models.Client, error) {
	return all[models.Client](ctx, s.db)
}

// Get returns one client.
func (s *Clients) Get(ctx context.Context, id types.ObjectID) (*models.Client, error) {
	return first[models.Client](ctx, s.db, id, "Client not found")
}

// AddFile stores f and appends its URL to the client's files. When the client row cannot
// be updated the stored object is removed again.
func (s *Clients) AddFile(ctx context.Context, actor *models.User, id types.ObjectID, f *storage.File) (*models.Client, *mutation.Trace, error) {
	var client *models.Client
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Client]{
		Name: "client.addfile",
		Validate: func() []string {
			if f == nil || f.Data == nil {
				return []string{"No file provided"}
			}
			return storage.ValidateUpload(f.Name, int64(len(f.Data)), s.limit)
		},
		Load: func(ctx context.Context) (err error) {
			client, err = first[models.Client](ctx, s.db, id, "Client not found")
			return err
		},
		Authorize: func(context.Context) error {
			return s.owned(actor, client, "edit")
		},
		Primary: func(ctx context.Context) (*models.Client, error) {
			url, err := s.files.Store(ctx, f)
			if err != nil {
				return nil, err
			}
			files := append(models.JSONList[string]{}, client.Files...)
			files = append(files, url)
			if err := updateVersioned[models.Client](ctx, s.db, client.ID, client.Version, map[string]any{"files": files}); err != nil {
				s.files.RemoveQuietly(ctx, url)
				return nil, err
			}
			client.Files = files
			client.Version++
			return client, nil
		},
		Notify: func(client *models.Client) []notify.Entry {
			return []notify.Entry{{
				Details:   "File was added to client sucessfully",
				Type:      notify.TypeAdd,
				Ref:       notify.ClientRef(client.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// RemoveFile drops fileURL from the client's files and then deletes the stored object.
// A failed object delete is logged; the client no longer references the file either way.
func (s *Clients) RemoveFile(ctx context.Context, actor *models.User, id types.ObjectID, fileURL string) (*models.Client, *mutation.Trace, error) {
	var client *models.Client
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Client]{
		Name: "client.removefile",
		Validate: mutation.NewSchema().
			Field("fileUrl", fileURL, mutation.Required("No fileUrl provided")).
			Validate,
		Load: func(ctx context.Context) (err error) {
			client, err = first[models.Client](ctx, s.db, id, "Client not found")
			return err
		},
		Authorize: func(context.Context) error {
			if err := s.owned(actor, client, "edit"); err != nil {
				return err
			}
			if !models.Contains(client.Files, fileURL) {
				return types.NotFoundError("File not found in client")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.Client, error) {
			files := models.Without(client.Files, fileURL)
			if err := updateVersioned[models.Client](ctx, s.db, client.ID, client.Version, map[string]any{"files": files}); err != nil {
				return nil, err
			}
			client.Files = files
			client.Version++
			return client, nil
		},
		Dependents: []mutation.Step[*models.Client]{{
			Name:       "removing stored file",
			BestEffort: true,
			Run: func(ctx context.Context, _ *models.Client) error {
				return s.files.Remove(ctx, fileURL)
			},
		}},
		Notify: func(client *models.Client) []notify.Entry {
			return []notify.Entry{{
				Details:   "File was removed from client sucessfully",
				Type:      notify.TypeRemove,
				Ref:       notify.ClientRef(client.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Delete removes a client, then its stored files and its service link.
func (s *Clients) Delete(ctx context.Context, actor *models.User, id types.ObjectID) (*mutation.Trace, error) {
	var client *models.Client
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[[]models.Client]{
		Name: "client.delete",
		Load: func(ctx context.Context) (err error) {
			client, err = first[models.Client](ctx, s.db, id, "Client not found")
			return err
		},
		Authorize: func(context.Context) error {
			return s.owned(actor, client, "delete")
		},
		Primary: func(ctx context.Context) ([]models.Client, error) {
			return []models.Client{*client}, s.db.WithContext(ctx).Delete(&models.Client{}, "id = ?", client.ID).Error
		},
		Dependents: s.cleanupSteps(),
		Notify: func([]models.Client) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Client %s has been deleted successfully", client.Fullname),
				Type:      notify.TypeDelete,
				Ref:       notify.ClientRef(client.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// DeleteMany removes every listed client, or none when any is missing or owned by
// someone else.
func (s *Clients) DeleteMany(ctx context.Context, actor *models.User, raw []string) (int, *mutation.Trace, error) {
	return runBulkDelete(ctx, s.base, actor, raw, bulkDelete[models.Client]{
		Name:    "client.deletemany",
		Invalid: "Invalid client IDs",
		Denied:  "Some clients not found or not authorized",
		Noun:    "clients",
		Allowed: func(actor *models.User, client *models.Client) bool {
			return client.Owner == actor.ID
		},
		Cleanup: s.cleanupSteps(),
	})
}

// cleanupSteps run after clients are deleted. Stored files go best effort; the service
// link must be removed.
func (s *Clients) cleanupSteps() []mutation.Step[[]models.Client] {
	return []mutation.Step[[]models.Client]{
		{
			Name:       "removing stored files",
			BestEffort: true,
			Run: func(ctx context.Context, clients []models.Client) error {
				var errs []error
				for _, client := range clients {
					for _, url := range client.Files {
						if err := s.files.Remove(ctx, url); err != nil {
							errs = append(errs, err)
						}
					}
				}
				return errors.Join(errs...)
			},
		},
		{
			Name: "unlinking services",
			Run: func(ctx context.Context, clients []models.Client) error {
				var errs []error
				for _, client := range clients {
					if client.Service == nil {
						continue
					}
					errs = append(errs, relations.Unlink(ctx, s.db, relations.ServiceClients, *client.Service, client.ID).Err)
				}
				return errors.Join(errs...)
			},
		},
	}
}
