// content.go
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
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// uploads validates every non nil file and returns the collected messages.
func uploads(limit int64, files ...*storage.File) []string {
	var msgs []string
	for _, f := range files {
		if f == nil {
			continue
		}
		msgs = append(msgs, storage.ValidateUpload(f.Name, int64(len(f.Data)), limit)...)
	}
	return msgs
}

// removeAll deletes every reference and joins the failures.
func removeAll(ctx context.Context, files *storage.Lifecycle, refs []string) error {
	var errs []error
	for _, ref := range refs {
		if err := files.Remove(ctx, ref); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// appendRef adds a non empty asset reference.
func appendRef(refs []string, ref string) []string {
	if ref == "" {
		return refs
	}
	return append(refs, ref)
}

// Blogs manages blog posts and their images.
type Blogs struct {
	base
	files *storage.Lifecycle
	limit int64
}

func (s *Blogs) validate(in BlogInput, create bool) func() []string {
	return func() []string {
		msgs := in.schema(create).Validate()
		return append(msgs, uploads(s.limit, append([]*storage.File{in.Thumbnail}, in.Images...)...)...)
	}
}

// Create stores the thumbnail and block images, then the post. When the post cannot be
// written the stored images are removed again.
func (s *Blogs) Create(ctx context.Context, actor *models.User, in BlogInput) (*models.Blog, *mutation.Trace, error) {
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Blog]{
		Name:     "blog.create",
		Validate: s.validate(in, true),
		Primary: func(ctx context.Context) (*models.Blog, error) {
			var stored []string
			fail := func(err error) (*models.Blog, error) {
				s.files.RemoveQuietly(ctx, stored...)
				return nil, err
			}

			thumbnail, err := s.files.Store(ctx, in.Thumbnail)
			if err != nil {
				return fail(err)
			}
			stored = append(stored, thumbnail)

			blocks := make(models.JSONList[models.ContentBlock], len(in.ContentBlocks))
			for i, block := range in.ContentBlocks {
				block.Image = ""
				if i < len(in.Images) && in.Images[i] != nil {
					if block.Image, err = s.files.Store(ctx, in.Images[i]); err != nil {
						return fail(err)
					}
					stored = append(stored, block.Image)
				}
				blocks[i] = block
			}

			blog := &models.Blog{
				Author:           actor.ID,
				Title:            strings.TrimSpace(in.Title),
				IntroDescription: strings.TrimSpace(in.IntroDescription),
				Thumbnail:        thumbnail,
				ContentBlocks:    blocks,
				Tags:             models.JSONList[string](in.Tags),
			}
			if err := s.db.WithContext(ctx).Create(blog).Error; err != nil {
				return fail(err)
			}
			return blog, nil
		},
		Notify: func(blog *models.Blog) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Blog %s was created successfully", blog.Title),
				Type:      notify.TypeCreate,
				Ref:       notify.BlogRef(blog.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Edit rewrites the post. New files are stored for the thumbnail and the image of the block
// at the same index. The images they supersede, and those of blocks that no longer exist, are
// removed only after the post is written.
func (s *Blogs) Edit(ctx context.Context, actor *models.User, id types.ObjectID, in BlogInput) (*models.Blog, *mutation.Trace, error) {
	var blog *models.Blog
	var superseded []string

	return mutation.Run(ctx, s.engine, mutation.Op[*models.Blog]{
		Name:     "blog.edit",
		Validate: s.validate(in, false),
		Load: func(ctx context.Context) (err error) {
			blog, err = first[models.Blog](ctx, s.db, id, "Blog not found")
			return err
		},
		Authorize: func(context.Context) error {
			if blog.Author != actor.ID {
				return types.AuthorizationError("Unauthorized to edit this blog")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.Blog, error) {
			var stored, replaced []string
			fail := func(err error) (*models.Blog, error) {
				s.files.RemoveQuietly(ctx, stored...)
				return nil, err
			}

			thumbnail := blog.Thumbnail
			if in.Thumbnail != nil {
				url, err := s.files.Store(ctx, in.Thumbnail)
				if err != nil {
					return fail(err)
				}
				stored = append(stored, url)
				replaced = appendRef(replaced, blog.Thumbnail)
				thumbnail = url
			}

			blocks := make(models.JSONList[models.ContentBlock], len(in.ContentBlocks))
			for i, block := range in.ContentBlocks {
				existing := ""
				if i < len(blog.ContentBlocks) {
					existing = blog.ContentBlocks[i].Image
				}
				block.Image = existing
				if i < len(in.Images) && in.Images[i] != nil {
					url, err := s.files.Store(ctx, in.Images[i])
					if err != nil {
						return fail(err)
					}
					stored = append(stored, url)
					replaced = appendRef(replaced, existing)
					block.Image = url
				}
				blocks[i] = block
			}
			for i := len(in.ContentBlocks); i < len(blog.ContentBlocks); i++ {
				replaced = appendRef(replaced, blog.ContentBlocks[i].Image)
			}

			fields := map[string]any{
				"title":             pick(blog.Title, in.Title),
				"intro_description": pick(blog.IntroDescription, in.IntroDescription),
				"thumbnail":         thumbnail,
				"content_blocks":    blocks,
			}
			tags := blog.Tags
			if in.Tags != nil {
				tags = models.JSONList[string](in.Tags)
				fields["tags"] = tags
			}
			if err := updateVersioned[models.Blog](ctx, s.db, blog.ID, blog.Version, fields); err != nil {
				return fail(err)
			}
			superseded = replaced
			blog.Title = fields["title"].(string)
			blog.IntroDescription = fields["intro_description"].(string)
			blog.Thumbnail = thumbnail
			blog.ContentBlocks = blocks
			blog.Tags = tags
			blog.Version++
			return blog, nil
		},
		Dependents: []mutation.Step[*models.Blog]{{
			Name:       "removing superseded blog images",
			BestEffort: true,
			Run: func(ctx context.Context, _ *models.Blog) error {
				return removeAll(ctx, s.files, superseded)
			},
		}},
		Notify: func(blog *models.Blog) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Blog %s was edited successfully", blog.Title),
				Type:      notify.TypeEdit,
				Ref:       notify.BlogRef(blog.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// List returns every post, newest first.
func (s *Blogs) List(ctx context.Context) ([]models.Blog, error) {
	return all[models.Blog](ctx, s.db)
}

// Get returns one post.
func (s *Blogs) Get(ctx context.Context, id types.ObjectID) (*models.Blog, error) {
	return first[models.Blog](ctx, s.db, id, "Blog not found")
}

// Delete removes a post and then, best effort, its images.
func (s *Blogs) Delete(ctx context.Context, actor *models.User, id types.ObjectID) (*mutation.Trace, error) {
	var blog *models.Blog
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[[]models.Blog]{
		Name: "blog.delete",
		Load: func(ctx context.Context) (err error) {
			blog, err = first[models.Blog](ctx, s.db, id, "Blog not found")
			return err
		},
		Authorize: func(context.Context) error {
			if blog.Author != actor.ID {
				return types.AuthorizationError("Unauthorized to delete this blog")
			}
			return nil
		},
		Primary: func(ctx context.Context) ([]models.Blog, error) {
			return []models.Blog{*blog}, s.db.WithContext(ctx).Delete(&models.Blog{}, "id = ?", blog.ID).Error
		},
		Dependents: s.cleanupSteps(),
		Notify: func([]models.Blog) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Blog %s deleted successfully", blog.Title),
				Type:      notify.TypeDelete,
				Ref:       notify.BlogRef(blog.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// DeleteMany removes every listed post written by actor, or none.
func (s *Blogs) DeleteMany(ctx context.Context, actor *models.User, raw []string) (int, *mutation.Trace, error) {
	return runBulkDelete(ctx, s.base, actor, raw, bulkDelete[models.Blog]{
		Name:    "blog.deletemany",
		Invalid: "Invalid blog IDs",
		Denied:  "Some blogs not found or not authorized",
		Noun:    "blogs",
		Allowed: func(actor *models.User, blog *models.Blog) bool {
			return blog.Author == actor.ID
		},
		Cleanup: s.cleanupSteps(),
	})
}

func (s *Blogs) cleanupSteps() []mutation.Step[[]models.Blog] {
	return []mutation.Step[[]models.Blog]{{
		Name:       "removing blog images",
		BestEffort: true,
		Run: func(ctx context.Context, blogs []models.Blog) error {
			var refs []string
			for i := range blogs {
				refs = append(refs, blogs[i].Assets()...)
			}
			return removeAll(ctx, s.files, refs)
		},
	}}
}

// Announcements manages short notices.
type Announcements struct {
	base
	files *storage.Lifecycle
	limit int64
}

// Create stores the optional image, then the announcement.
func (s *Announcements) Create(ctx context.Context, actor *models.User, in AnnouncementInput) (*models.Announcement, *mutation.Trace, error) {
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Announcement]{
		Name: "announcement.create",
		Validate: func() []string {
			return append(in.schema(true).Validate(), uploads(s.limit, in.Image)...)
		},
		Primary: func(ctx context.Context) (*models.Announcement, error) {
			a := &models.Announcement{
				UploadedBy:  actor.ID,
				Title:       strings.TrimSpace(in.Title),
				Description: strings.TrimSpace(in.Description),
				Active:      in.Active == nil || *in.Active,
			}
			if in.Image != nil {
				url, err := s.files.Store(ctx, in.Image)
				if err != nil {
					return nil, err
				}
				a.Image = url
			}
			if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
				s.files.RemoveQuietly(ctx, a.Image)
				return nil, err
			}
			return a, nil
		},
		Notify: func(a *models.Announcement) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("New announcement: %s", a.Title),
				Type:      notify.TypeCreate,
				Ref:       notify.AnnouncementRef(a.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Edit updates the non empty fields and stores a new image when one is sent. The old image
// is removed once the row points at the new one.
func (s *Announcements) Edit(ctx context.Context, actor *models.User, id types.ObjectID, in AnnouncementInput) (*models.Announcement, *mutation.Trace, error) {
	var a *models.Announcement
	var superseded []string
	return mutation.Run(ctx, s.engine, mutation.Op[*models.Announcement]{
		Name: "announcement.edit",
		Validate: func() []string {
			return append(in.schema(false).Validate(), uploads(s.limit, in.Image)...)
		},
		Load: func(ctx context.Context) (err error) {
			a, err = first[models.Announcement](ctx, s.db, id, "Announcement not found")
			return err
		},
		Authorize: func(context.Context) error {
			if a.UploadedBy != actor.ID {
				return types.AuthorizationError("You are not authorized to edit this announcement")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.Announcement, error) {
			image := a.Image
			if in.Image != nil {
				url, err := s.files.Store(ctx, in.Image)
				if err != nil {
					return nil, err
				}
				image = url
			}
			active := a.Active
			if in.Active != nil {
				active = *in.Active
			}
			title, description := pick(a.Title, in.Title), pick(a.Description, in.Description)
			err := updateVersioned[models.Announcement](ctx, s.db, a.ID, a.Version, map[string]any{
				"title":       title,
				"description": description,
				"image":       image,
				"active":      active,
			})
			if err != nil {
				if image != a.Image {
					s.files.RemoveQuietly(ctx, image)
				}
				return nil, err
			}
			if image != a.Image {
				superseded = appendRef(superseded, a.Image)
			}
			a.Title, a.Description, a.Image, a.Active = title, description, image, active
			a.Version++
			return a, nil
		},
		Dependents: []mutation.Step[*models.Announcement]{{
			Name:       "removing superseded announcement image",
			BestEffort: true,
			Run: func(ctx context.Context, _ *models.Announcement) error {
				return removeAll(ctx, s.files, superseded)
			},
		}},
		Notify: func(a *models.Announcement) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("Announcement %s was edited successfully", a.Title),
				Type:      notify.TypeEdit,
				Ref:       notify.AnnouncementRef(a.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// List returns every announcement, newest first.
func (s *Announcements) List(ctx context.Context) ([]models.Announcement, error) {
	return all[models.Announcement](ctx, s.db)
}

// Get returns one announcement.
func (s *Announcements) Get(ctx context.Context, id types.ObjectID) (*models.Announcement, error) {
	return first[models.Announcement](ctx, s.db, id, "Announcement not found")
}

// Delete removes an announcement and then, best effort, its image.
func (s *Announcements) Delete(ctx context.Context, actor *models.User, id types.ObjectID) (*mutation.Trace, error) {
	var a *models.Announcement
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[[]models.Announcement]{
		Name: "announcement.delete",
		Load: func(ctx context.Context) (err error) {
			a, err = first[models.Announcement](ctx, s.db, id, "Announcement not found")
			return err
		},
		Authorize: func(context.Context) error {
			if a.UploadedBy != actor.ID {
				return types.AuthorizationError("You are not authorized to delete this announcement")
			}
			return nil
		},
		Primary: func(ctx context.Context) ([]models.Announcement, error) {
			return []models.Announcement{*a}, s.db.WithContext(ctx).Delete(&models.Announcement{}, "id = ?", a.ID).Error
		},
		Dependents: s.cleanupSteps(),
		Notify: func([]models.Announcement) []notify.Entry {
			return []notify.Entry{{
				Details:   "The announcement has been deleted successfully",
				Type:      notify.TypeDelete,
				Ref:       notify.AnnouncementRef(a.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// DeleteMany removes every listed announcement uploaded by actor, or none.
func (s *Announcements) DeleteMany(ctx context.Context, actor *models.User, raw []string) (int, *mutation.Trace, error) {
	return runBulkDelete(ctx, s.base, actor, raw, bulkDelete[models.Announcement]{
		Name:    "announcement.deletemany",
		Invalid: "Invalid Announcement IDs",
		Denied:  "Some announcements not found or not authorized",
		Noun:    "announcements",
		Allowed: func(actor *models.User, a *models.Announcement) bool {
			return a.UploadedBy == actor.ID
		},
		Cleanup: s.cleanupSteps(),
	})
}

func (s *Announcements) cleanupSteps() []mutation.Step[[]models.Announcement] {
	return []mutation.Step[[]models.Announcement]{{
		Name:       "removing announcement images",
		BestEffort: true,
		Run: func(ctx context.Context, rows []models.Announcement) error {
			var refs []string
			for _, a := range rows {
				if a.Image != "" {
					refs = append(refs, a.Image)
				}
			}
			return removeAll(ctx, s.files, refs)
		},
	}}
}

// FAQs manages questions and answers.
type FAQs struct {
	base
}

// Create adds a question, optionally scoped to an existing service.
func (s *FAQs) Create(ctx context.Context, actor *models.User, in FAQInput) (*models.FAQ, *mutation.Trace, error) {
	svc := optionalID(in.Service)
	return mutation.Run(ctx, s.engine, mutation.Op[*models.FAQ]{
		Name:     "faq.create",
		Validate: in.schema(true).Validate,
		Load: func(ctx context.Context) error {
			return serviceMustExist(ctx, s.db, svc)
		},
		Primary: func(ctx context.Context) (*models.FAQ, error) {
			faq := &models.FAQ{
				CreatedBy: actor.ID,
				Question:  strings.TrimSpace(in.Question),
				Answer:    strings.TrimSpace(in.Answer),
				Service:   svc,
			}
			if err := s.db.WithContext(ctx).Create(faq).Error; err != nil {
				return nil, err
			}
			return faq, nil
		},
		Notify: func(faq *models.FAQ) []notify.Entry {
			return []notify.Entry{{
				Details:   fmt.Sprintf("A new faq %s has been created successfully", faq.Question),
				Type:      notify.TypeCreate,
				Ref:       notify.FAQRef(faq.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Edit updates the non empty fields of a question.
func (s *FAQs) Edit(ctx context.Context, actor *models.User, id types.ObjectID, in FAQInput) (*models.FAQ, *mutation.Trace, error) {
	var faq *models.FAQ
	return mutation.Run(ctx, s.engine, mutation.Op[*models.FAQ]{
		Name:     "faq.edit",
		Validate: in.schema(false).Validate,
		Load: func(ctx context.Context) (err error) {
			if faq, err = first[models.FAQ](ctx, s.db, id, "FAQ not found"); err != nil {
				return err
			}
			if in.Service != nil {
				return serviceMustExist(ctx, s.db, optionalID(in.Service))
			}
			return nil
		},
		Authorize: func(context.Context) error {
			if faq.CreatedBy != actor.ID {
				return types.AuthorizationError("You are not authorized to edit this faq")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.FAQ, error) {
			faq.Question = pick(faq.Question, in.Question)
			faq.Answer = pick(faq.Answer, in.Answer)
			if in.Service != nil {
				faq.Service = optionalID(in.Service)
			}
			err := updateVersioned[models.FAQ](ctx, s.db, faq.ID, faq.Version, map[string]any{
				"question": faq.Question,
				"answer":   faq.Answer,
				"service":  faq.Service,
			})
			if err != nil {
				return nil, err
			}
			faq.Version++
			return faq, nil
		},
		Notify: func(faq *models.FAQ) []notify.Entry {
			return []notify.Entry{{
				Details:   "FAQ has been edited successfully",
				Type:      notify.TypeEdit,
				Ref:       notify.FAQRef(faq.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// List returns every question, newest first.
func (s *FAQs) List(ctx context.Context) ([]models.FAQ, error) {
	return all[models.FAQ](ctx, s.db)
}

// Get returns one question.
func (s *FAQs) Get(ctx context.Context, id types.ObjectID) (*models.FAQ, error) {
	return first[models.FAQ](ctx, s.db, id, "FAQ not found")
}

// Delete removes one question.
func (s *FAQs) Delete(ctx context.Context, actor *models.User, id types.ObjectID) (*mutation.Trace, error) {
	var faq *models.FAQ
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[*models.FAQ]{
		Name: "faq.delete",
		Load: func(ctx context.Context) (err error) {
			faq, err = first[models.FAQ](ctx, s.db, id, "FAQ not found")
			return err
		},
		Authorize: func(context.Context) error {
			if faq.CreatedBy != actor.ID {
				return types.AuthorizationError("You are not authorized to delete this faq")
			}
			return nil
		},
		Primary: func(ctx context.Context) (*models.FAQ, error) {
			return faq, s.db.WithContext(ctx).Delete(&models.FAQ{}, "id = ?", faq.ID).Error
		},
		Notify: func(faq *models.FAQ) []notify.Entry {
			return []notify.Entry{{
				Details:   "The faq has been deleted successfully",
				Type:      notify.TypeDelete,
				Ref:       notify.FAQRef(faq.ID),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// DeleteMany removes every listed question created by actor, or none.
func (s *FAQs) DeleteMany(ctx context.Context, actor *models.User, raw []string) (int, *mutation.Trace, error) {
	return runBulkDelete(ctx, s.base, actor, raw, bulkDelete[models.FAQ]{
		Name:    "faq.deletemany",
		Invalid: "Invalid faq IDs",
		Denied:  "Some faqs not found or not authorized",
		Noun:    "faqs",
		Allowed: func(actor *models.User, faq *models.FAQ) bool {
			return faq.CreatedBy == actor.ID
		},
	})
}
