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

package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-crm/internal/middleware"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// BlogHandler handles blog routes
type BlogHandler struct {
	Blogs *services.Blogs
}

// blogInput reads the multipart blog form. contentBlocks and tags are JSON encoded fields;
// contentImages[i] belongs to contentBlocks[i].
func blogInput(c *fiber.Ctx) (services.BlogInput, error) {
	in := services.BlogInput{
		Title:            c.FormValue("title"),
		IntroDescription: c.FormValue("introDescription"),
		Tags:             formList(c, "tags"),
	}
	var blocks []models.ContentBlock
	if err := formJSON(c, "contentBlocks", &blocks); err != nil {
		return in, err
	}
	in.ContentBlocks = blocks

	var err error
	if in.Thumbnail, err = formFile(c, "thumbnail"); err != nil {
		return in, err
	}
	in.Images, err = formFiles(c, "contentImages")
	return in, err
}

// Create handles POST /api/blog/:ownerID/new
// @Summary Create a blog post
// @Tags Blog
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param title formData string true "Title"
// @Param introDescription formData string true "Intro description"
// @Param contentBlocks formData string true "JSON array of content blocks"
// @Param tags formData string false "JSON array or comma separated tags"
// @Param thumbnail formData file true "Thumbnail"
// @Param contentImages formData file false "Content block images, by block index"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /blog/{ownerID}/new [post]
func (h *BlogHandler) Create(c *fiber.Ctx) error {
	in, err := blogInput(c)
	if err != nil {
		return err
	}
	blog, trace, err := h.Blogs.Create(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "Blog created successfully", blog)
}

// Edit handles PUT /api/blog/:ownerID/edit/:id
// @Summary Edit a blog post
// @Description New files replace the stored thumbnail and block images
// @Tags Blog
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Blog ID"
// @Param title formData string false "Title"
// @Param introDescription formData string false "Intro description"
// @Param contentBlocks formData string true "JSON array of content blocks"
// @Param tags formData string false "JSON array or comma separated tags"
// @Param thumbnail formData file false "Thumbnail"
// @Param contentImages formData file false "Content block images, by block index"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /blog/{ownerID}/edit/{id} [put]
func (h *BlogHandler) Edit(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Blog ID")
	if err != nil {
		return err
	}
	in, err := blogInput(c)
	if err != nil {
		return err
	}
	blog, trace, err := h.Blogs.Edit(c.UserContext(), middleware.Actor(c), id, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Blog edited successfully", blog)
}

// List handles GET /api/blog/fetch/all
// @Summary List blog posts
// @Tags Blog
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /blog/fetch/all [get]
func (h *BlogHandler) List(c *fiber.Ctx) error {
	list, err := h.Blogs.List(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// Get handles GET /api/blog/fetch/single/:id
// @Summary Get a blog post
// @Tags Blog
// @Produce json
// @Param id path string true "Blog ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /blog/fetch/single/{id} [get]
func (h *BlogHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Blog ID")
	if err != nil {
		return err
	}
	blog, err := h.Blogs.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", blog)
}

// Delete handles DELETE /api/blog/:ownerID/delete/single/:id
// @Summary Delete a blog post
// @Tags Blog
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Blog ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /blog/{ownerID}/delete/single/{id} [delete]
func (h *BlogHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Blog ID")
	if err != nil {
		return err
	}
	trace, err := h.Blogs.Delete(c.UserContext(), middleware.Actor(c), id)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Blog has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/blog/:ownerID/delete/many
// @Summary Delete blog posts
// @Tags Blog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"blogIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /blog/{ownerID}/delete/many [delete]
func (h *BlogHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "blogIDs")
	if err != nil {
		return err
	}
	n, trace, err := h.Blogs.DeleteMany(c.UserContext(), middleware.Actor(c), ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, fmt.Sprintf("%d blogs have deleted successfully", n), deleted)
}

// AnnouncementHandler handles announcement routes
type AnnouncementHandler struct {
	Announcements *services.Announcements
}

func announcementInput(c *fiber.Ctx) (services.AnnouncementInput, error) {
	in := services.AnnouncementInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}
	var err error
	if in.Active, err = formBool(c, "active"); err != nil {
		return in, err
	}
	in.Image, err = formFile(c, "image")
	return in, err
}

// Create handles POST /api/announcement/:ownerID/new
// @Summary Create an announcement
// @Tags Announcement
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param active formData boolean false "Shown on the site, default true"
// @Param image formData file false "Image"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /announcement/{ownerID}/new [post]
func (h *AnnouncementHandler) Create(c *fiber.Ctx) error {
	in, err := announcementInput(c)
	if err != nil {
		return err
	}
	a, trace, err := h.Announcements.Create(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "Announcement created successfully", a)
}

// Edit handles PUT /api/announcement/:ownerID/edit/:id
// @Summary Edit an announcement
// @Tags Announcement
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Announcement ID"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param active formData boolean false "Shown on the site"
// @Param image formData file false "Replacement image"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /announcement/{ownerID}/edit/{id} [put]
func (h *AnnouncementHandler) Edit(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Announcement ID")
	if err != nil {
		return err
	}
	in, err := announcementInput(c)
	if err != nil {
		return err
	}
	a, trace, err := h.Announcements.Edit(c.UserContext(), middleware.Actor(c), id, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Announcement edited successfully", a)
}

// List handles GET /api/announcement/fetch/all
// @Summary List announcements
// @Tags Announcement
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /announcement/fetch/all [get]
func (h *AnnouncementHandler) List(c *fiber.Ctx) error {
	list, err := h.Announcements.List(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// Get handles GET /api/announcement/fetch/single/:id
// @Summary Get an announcement
// @Tags Announcement
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /announcement/fetch/single/{id} [get]
func (h *AnnouncementHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Announcement ID")
	if err != nil {
		return err
	}
	a, err := h.Announcements.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", a)
}

// Delete handles DELETE /api/announcement/:ownerID/delete/single/:id
// @Summary Delete an announcement
// @Tags Announcement
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Announcement ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /announcement/{ownerID}/delete/single/{id} [delete]
func (h *AnnouncementHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Announcement ID")
	if err != nil {
		return err
	}
	trace, err := h.Announcements.Delete(c.UserContext(), middleware.Actor(c), id)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Announcement has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/announcement/:ownerID/delete/many
// @Summary Delete announcements
// @Tags Announcement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"announcementIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /announcement/{ownerID}/delete/many [delete]
func (h *AnnouncementHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "announcementIDs")
	if err != nil {
		return err
	}
	n, trace, err := h.Announcements.DeleteMany(c.UserContext(), middleware.Actor(c), ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, fmt.Sprintf("%d announcements have deleted successfully", n), deleted)
}

// FAQHandler handles faq routes
type FAQHandler struct {
	FAQs *services.FAQs
}

// Create handles POST /api/faq/:ownerID/new
// @Summary Create a faq
// @Tags FAQ
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body services.FAQInput true "FAQ"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /faq/{ownerID}/new [post]
func (h *FAQHandler) Create(c *fiber.Ctx) error {
	var in services.FAQInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	faq, trace, err := h.FAQs.Create(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "FAQ created successfully", faq)
}

// Edit handles PUT /api/faq/:ownerID/edit/:id
// @Summary Edit a faq
// @Tags FAQ
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "FAQ ID"
// @Param body body services.FAQInput true "Changed fields"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /faq/{ownerID}/edit/{id} [put]
func (h *FAQHandler) Edit(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "FAQ ID")
	if err != nil {
		return err
	}
	var in services.FAQInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	faq, trace, err := h.FAQs.Edit(c.UserContext(), middleware.Actor(c), id, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "FAQ edited successfully", faq)
}

// List handles GET /api/faq/fetch/all
// @Summary List faqs
// @Tags FAQ
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /faq/fetch/all [get]
func (h *FAQHandler) List(c *fiber.Ctx) error {
	list, err := h.FAQs.List(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// Get handles GET /api/faq/fetch/single/:id
// @Summary Get a faq
// @Tags FAQ
// @Produce json
// @Param id path string true "FAQ ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /faq/fetch/single/{id} [get]
func (h *FAQHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "FAQ ID")
	if err != nil {
		return err
	}
	faq, err := h.FAQs.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", faq)
}

// Delete handles DELETE /api/faq/:ownerID/delete/single/:id
// @Summary Delete a faq
// @Tags FAQ
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "FAQ ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /faq/{ownerID}/delete/single/{id} [delete]
func (h *FAQHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "FAQ ID")
	if err != nil {
		return err
	}
	trace, err := h.FAQs.Delete(c.UserContext(), middleware.Actor(c), id)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "FAQ has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/faq/:ownerID/delete/many
// @Summary Delete faqs
// @Tags FAQ
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"faqIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /faq/{ownerID}/delete/many [delete]
func (h *FAQHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "faqIDs")
	if err != nil {
		return err
	}
	n, trace, err := h.FAQs.DeleteMany(c.UserContext(), middleware.Actor(c), ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, fmt.Sprintf("%d faqs have deleted successfully", n), deleted)
}
