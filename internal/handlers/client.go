// client.go
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

// ClientHandler handles client routes
type ClientHandler struct {
	Clients *services.Clients
}

type removeFileRequest struct {
	FileURL string `json:"fileUrl"`
}

// Create handles POST /api/client/:ownerID/new
// @Summary Create a client
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body services.ClientInput true "Client"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/new [post]
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var in services.ClientInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	client, trace, err := h.Clients.Create(c.UserContext(), middleware.Actor(c), in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "Client created successfully", client)
}

// Convert handles POST /api/client/:ownerID/convert/lead/:leadID
// @Summary Convert a lead
// @Description Create a client from the lead, delete the lead and move its service link
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param leadID path string true "Lead ID"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/convert/lead/{leadID} [post]
func (h *ClientHandler) Convert(c *fiber.Ctx) error {
	leadID, err := pathID(c, "leadID", "Lead ID")
	if err != nil {
		return err
	}
	client, trace, err := h.Clients.Convert(c.UserContext(), middleware.Actor(c), leadID)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "Lead converted to client successfully", client)
}

// Edit handles PUT /api/client/:ownerID/edit/:id
// @Summary Edit a client
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Client ID"
// @Param body body services.ClientInput true "Changed fields"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/edit/{id} [put]
func (h *ClientHandler) Edit(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Client ID")
	if err != nil {
		return err
	}
	var in services.ClientInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	client, trace, err := h.Clients.Edit(c.UserContext(), middleware.Actor(c), id, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Client edited successfully", client)
}

// AddFile handles PUT /api/client/:ownerID/edit/:id/addfile
// @Summary Attach a file to a client
// @Tags Client
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Client ID"
// @Param file formData file true "File"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/edit/{id}/addfile [put]
func (h *ClientHandler) AddFile(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Client ID")
	if err != nil {
		return err
	}
	file, err := formFile(c, "file")
	if err != nil {
		return err
	}
	client, trace, err := h.Clients.AddFile(c.UserContext(), middleware.Actor(c), id, file)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "File was added to client sucessfully", client)
}

// RemoveFile handles PUT /api/client/:ownerID/edit/:id/removefile
// @Summary Detach a file from a client
// @Description The reference is removed even when the stored object cannot be deleted
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Client ID"
// @Param body body removeFileRequest true "File URL"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/edit/{id}/removefile [put]
func (h *ClientHandler) RemoveFile(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Client ID")
	if err != nil {
		return err
	}
	var in removeFileRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	client, trace, err := h.Clients.RemoveFile(c.UserContext(), middleware.Actor(c), id, in.FileURL)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "File was removed from client successfully", client)
}

// List handles GET /api/client/fetch/all
// @Summary List clients
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /client/fetch/all [get]
func (h *ClientHandler) List(c *fiber.Ctx) error {
	list, err := h.Clients.List(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// Get handles GET /api/client/fetch/single/:id
// @Summary Get a client
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /client/fetch/single/{id} [get]
func (h *ClientHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Client ID")
	if err != nil {
		return err
	}
	client, err := h.Clients.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", client)
}

// Delete handles DELETE /api/client/:ownerID/delete/single/:id
// @Summary Delete a client
// @Description Stored files are removed best effort and the service link is dropped
// @Tags Client
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Client ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/delete/single/{id} [delete]
func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Client ID")
	if err != nil {
		return err
	}
	trace, err := h.Clients.Delete(c.UserContext(), middleware.Actor(c), id)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "Client has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/client/:ownerID/delete/many
// @Summary Delete clients
// @Description Delete every listed client or none of them
// @Tags Client
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"clientIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /client/{ownerID}/delete/many [delete]
func (h *ClientHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "clientIDs")
	if err != nil {
		return err
	}
	n, trace, err := h.Clients.DeleteMany(c.UserContext(), middleware.Actor(c), ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, fmt.Sprintf("%d clients have deleted successfully", n), deleted)
}
