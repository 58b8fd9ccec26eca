// lead.go
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
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// LeadHandler handles lead routes
type LeadHandler struct {
	Leads *services.Leads
}

// Post handles POST /api/lead/post, the public website form
// @Summary Submit a lead
// @Description Create an unowned lead from the public website form
// @Tags Lead
// @Accept json
// @Produce json
// @Param body body services.LeadInput true "Lead"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /lead/post [post]
func (h *LeadHandler) Post(c *fiber.Ctx) error {
	return h.create(c)
}

// Create handles POST /api/lead/:ownerID/new
// @Summary Create a lead
// @Description Create a lead owned by the caller, attached to an optional service
// @Tags Lead
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body services.LeadInput true "Lead"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /lead/{ownerID}/new [post]
func (h *LeadHandler) Create(c *fiber.Ctx) error {
	return h.create(c)
}

func (h *LeadHandler) create(c *fiber.Ctx) error {
	var in services.LeadInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	lead, trace, err := h.Leads.Create(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "Lead created successfully", lead)
}

// Edit handles PUT /api/lead/:ownerID/edit/:id
// @Summary Edit a lead
// @Description Update the given fields; a changed service moves the lead between services
// @Tags Lead
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Lead ID"
// @Param body body services.LeadInput true "Changed fields"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /lead/{ownerID}/edit/{id} [put]
func (h *LeadHandler) Edit(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Lead ID")
	if err != nil {
		return err
	}
	var in services.LeadInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	lead, trace, err := h.Leads.Edit(c.UserContext(), middleware.Actor(c), id, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Lead edited successfully", lead)
}

// List handles GET /api/lead/fetch/all
// @Summary List leads
// @Tags Lead
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /lead/fetch/all [get]
func (h *LeadHandler) List(c *fiber.Ctx) error {
	leads, err := h.Leads.List(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, leads, len(leads))
}

// Get handles GET /api/lead/fetch/single/:id
// @Summary Get a lead
// @Tags Lead
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /lead/fetch/single/{id} [get]
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Lead ID")
	if err != nil {
		return err
	}
	lead, err := h.Leads.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", lead)
}

// Delete handles DELETE /api/lead/:ownerID/delete/single/:id
// @Summary Delete a lead
// @Tags Lead
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Lead ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /lead/{ownerID}/delete/single/{id} [delete]
func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Lead ID")
	if err != nil {
		return err
	}
	trace, err := h.Leads.Delete(c.UserContext(), middleware.Actor(c), id)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Lead has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/lead/:ownerID/delete/many
// @Summary Delete leads
// @Description Delete every listed lead or none of them
// @Tags Lead
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"leadIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /lead/{ownerID}/delete/many [delete]
func (h *LeadHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "leadIDs")
	if err != nil {
		return err
	}
	n, trace, err := h.Leads.DeleteMany(c.UserContext(), middleware.Actor(c), ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, fmt.Sprintf("%d leads have deleted successfully", n), deleted)
}
