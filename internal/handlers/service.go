// service.go
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

// ServiceHandler handles service catalog routes
type ServiceHandler struct {
	Catalog *services.ServiceCatalog
}

// Create handles POST /api/service/:ownerID/new
// @Summary Create a service
// @Tags Service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body services.ServiceInput true "Service"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/new [post]
func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	var in services.ServiceInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	service, trace, err := h.Catalog.Create(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "Service created successfully", service)
}

// Edit handles PUT /api/service/:ownerID/edit/:id
// @Summary Edit a service
// @Description Update name and details. Lead and client links are kept.
// @Tags Service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Service ID"
// @Param body body services.ServiceInput true "Changed fields"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/edit/{id} [put]
func (h *ServiceHandler) Edit(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Service ID")
	if err != nil {
		return err
	}
	var in services.ServiceInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	service, trace, err := h.Catalog.Edit(c.UserContext(), middleware.Actor(c), id, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Service edited successfully", service)
}

// List handles GET /api/service/fetch/all
// @Summary List services
// @Tags Service
// @Produce json
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /service/fetch/all [get]
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	list, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// Get handles GET /api/service/fetch/single/:id
// @Summary Get a service
// @Tags Service
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/fetch/single/{id} [get]
func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Service ID")
	if err != nil {
		return err
	}
	service, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", service)
}

// Delete handles DELETE /api/service/:ownerID/delete/single/:id
// @Summary Delete a service
// @Description Refused while leads reference the service
// @Tags Service
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Service ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/delete/single/{id} [delete]
func (h *ServiceHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Service ID")
	if err != nil {
		return err
	}
	trace, err := h.Catalog.Delete(c.UserContext(), middleware.Actor(c), id)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Service has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/service/:ownerID/delete/many
// @Summary Delete services
// @Description Delete every listed service or none of them
// @Tags Service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"serviceIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/delete/many [delete]
func (h *ServiceHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "serviceIDs")
	if err != nil {
		return err
	}
	n, trace, err := h.Catalog.DeleteMany(c.UserContext(), middleware.Actor(c), ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, fmt.Sprintf("%d services have deleted successfully", n), deleted)
}
