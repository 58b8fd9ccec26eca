// errors.go
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
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/types"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// ErrorHandler is the terminal error translator. Every error leaves as
// {"success": false, "error": "..."}; causes are logged, never sent.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := translate(err)

		event := log.Debug()
		if code >= fiber.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")

		return utils.ErrorResponse(c, code, message)
	}
}

func translate(err error) (int, string) {
	var ce *types.CustomError
	var fe *fiber.Error

	switch {
	case errors.As(err, &ce):
		if ce.Type == types.KindInternal {
			return ce.Code, "Internal Server Error"
		}
		return ce.Code, ce.Message
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, "Resource not found"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.StatusBadRequest, "Duplicate field value entered"
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}
