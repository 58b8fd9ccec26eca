// notification.go
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

// NotificationHandler handles the activity feed routes
type NotificationHandler struct {
	Notifications *services.Notifications
}

// ListMine handles GET /api/notification/:ownerID/fetch/all
// @Summary List the caller's notifications
// @Tags Notification
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Router /notification/{ownerID}/fetch/all [get]
func (h *NotificationHandler) ListMine(c *fiber.Ctx) error {
	list, err := h.Notifications.ListForUser(c.UserContext(), middleware.Actor(c).ID)
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// ListAll handles GET /api/notification/fetch/all
// @Summary List every notification
// @Description Admin only
// @Tags Notification
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /notification/fetch/all [get]
func (h *NotificationHandler) ListAll(c *fiber.Ctx) error {
	list, err := h.Notifications.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return utils.ListResponse(c, list, len(list))
}

// Get handles GET /api/notification/:ownerID/fetch/single/:id
// @Summary Get a notification
// @Tags Notification
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Notification ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notification/{ownerID}/fetch/single/{id} [get]
func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Notification ID")
	if err != nil {
		return err
	}
	n, err := h.Notifications.Get(c.UserContext(), middleware.Actor(c).ID, id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", n)
}

// MarkRead handles PUT /api/notification/:ownerID/read/:id
// @Summary Mark a notification read
// @Tags Notification
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Notification ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notification/{ownerID}/read/{id} [put]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Notification ID")
	if err != nil {
		return err
	}
	n, err := h.Notifications.MarkRead(c.UserContext(), middleware.Actor(c).ID, id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Notification marked as read", n)
}

// Delete handles DELETE /api/notification/:ownerID/delete/single/:id
// @Summary Delete a notification
// @Tags Notification
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param id path string true "Notification ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notification/{ownerID}/delete/single/{id} [delete]
func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id", "Notification ID")
	if err != nil {
		return err
	}
	if err := h.Notifications.Delete(c.UserContext(), middleware.Actor(c).ID, id); err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Notification has deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/notification/:ownerID/delete/many
// @Summary Delete notifications
// @Description Delete every listed notification or none of them
// @Tags Notification
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param body body object true "{\"notificationIDs\": [\"...\"]}"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /notification/{ownerID}/delete/many [delete]
func (h *NotificationHandler) DeleteMany(c *fiber.Ctx) error {
	ids, err := bulkIDs(c, "notificationIDs")
	if err != nil {
		return err
	}
	n, err := h.Notifications.DeleteMany(c.UserContext(), middleware.Actor(c).ID, ids)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fmt.Sprintf("%d notifications have deleted successfully", n), deleted)
}
