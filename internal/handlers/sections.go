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

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-crm/internal/middleware"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/services"
)

// SectionHandler handles the item routes of one list stored on a service:
// details, requirement, price or faq.
type SectionHandler[T models.ServiceItem, In services.ItemInput[T]] struct {
	Section *services.Section[T, In]
	// BulkKey is the body key of delete many, e.g. "priceIDs".
	BulkKey string
}

// mountSection registers the four item routes of section under /:ownerID/:serviceID/name.
func mountSection[T models.ServiceItem, In services.ItemInput[T]](r fiber.Router, name string, h *SectionHandler[T, In], guards ...fiber.Handler) {
	prefix := "/:ownerID/:serviceID/" + name
	r.Put(prefix+"/add", append(guards, h.Add)...)
	r.Put(prefix+"/edit/:itemID", append(guards, h.Edit)...)
	r.Delete(prefix+"/delete/single/:itemID", append(guards, h.Delete)...)
	r.Delete(prefix+"/delete/many", append(guards, h.DeleteMany)...)
}

// Add handles PUT /api/service/:ownerID/:serviceID/{section}/add
// @Summary Add a service item
// @Tags Service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param serviceID path string true "Service ID"
// @Param section path string true "details, requirement, price or faq"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/{serviceID}/{section}/add [put]
func (h *SectionHandler[T, In]) Add(c *fiber.Ctx) error {
	serviceID, err := pathID(c, "serviceID", "Service ID")
	if err != nil {
		return err
	}
	var in In
	if err := parseBody(c, &in); err != nil {
		return err
	}
	service, trace, err := h.Section.Add(c.UserContext(), middleware.Actor(c), serviceID, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, h.Section.Noun()+" added successfully", service)
}

// Edit handles PUT /api/service/:ownerID/:serviceID/{section}/edit/:itemID
// @Summary Replace a service item
// @Tags Service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param serviceID path string true "Service ID"
// @Param section path string true "details, requirement, price or faq"
// @Param itemID path string true "Item ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/{serviceID}/{section}/edit/{itemID} [put]
func (h *SectionHandler[T, In]) Edit(c *fiber.Ctx) error {
	serviceID, err := pathID(c, "serviceID", "Service ID")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemID", h.Section.Noun()+" ID")
	if err != nil {
		return err
	}
	var in In
	if err := parseBody(c, &in); err != nil {
		return err
	}
	service, trace, err := h.Section.Edit(c.UserContext(), middleware.Actor(c), serviceID, itemID, in)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, h.Section.Noun()+" edited successfully", service)
}

// Delete handles DELETE /api/service/:ownerID/:serviceID/{section}/delete/single/:itemID
// @Summary Delete a service item
// @Tags Service
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param serviceID path string true "Service ID"
// @Param section path string true "details, requirement, price or faq"
// @Param itemID path string true "Item ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/{serviceID}/{section}/delete/single/{itemID} [delete]
func (h *SectionHandler[T, In]) Delete(c *fiber.Ctx) error {
	serviceID, err := pathID(c, "serviceID", "Service ID")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemID", h.Section.Noun()+" ID")
	if err != nil {
		return err
	}
	trace, err := h.Section.Delete(c.UserContext(), middleware.Actor(c), serviceID, itemID)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, h.Section.Noun()+" deleted successfully", deleted)
}

// DeleteMany handles DELETE /api/service/:ownerID/:serviceID/{section}/delete/many
// @Summary Delete service items
// @Description Delete every listed item or none of them
// @Tags Service
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param serviceID path string true "Service ID"
// @Param section path string true "details, requirement, price or faq"
// @Param body body object true "{\"priceIDs\": [\"...\"]}, keyed by section"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /service/{ownerID}/{serviceID}/{section}/delete/many [delete]
func (h *SectionHandler[T, In]) DeleteMany(c *fiber.Ctx) error {
	serviceID, err := pathID(c, "serviceID", "Service ID")
	if err != nil {
		return err
	}
	ids, err := bulkIDs(c, h.BulkKey)
	if err != nil {
		return err
	}
	_, trace, err := h.Section.DeleteMany(c.UserContext(), middleware.Actor(c), serviceID, ids)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, h.Section.Plural()+" deleted successfully", deleted)
}
