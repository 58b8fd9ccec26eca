// auth.go
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

package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/types"
)

const (
	localClaims = "claims"
	localOwner  = "owner"
)

// Bearer validates the Authorization header and stores the token claims in context.
func Bearer(tokens *services.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return types.AuthenticationError("Not authorized to access this route")
		}

		scheme, raw, found := strings.Cut(header, " ")
		raw = strings.TrimSpace(raw)
		if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			return types.AuthenticationError("You are not authorized")
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			return err
		}

		c.Locals(localClaims, claims)
		return c.Next()
	}
}

// Role admits only tokens carrying one of roles. It must run after Bearer.
func Role(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return types.AuthenticationError("Not authorized to access this route")
		}
		if !slices.Contains(roles, claims.Role) {
			return types.AuthorizationError("You do not have permission to perform this action")
		}
		return c.Next()
	}
}

// Owner loads the user named by the :ownerID route parameter and requires it to be
// the token subject. It must run after Bearer.
func Owner(auth *services.Auth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("ownerID")
		if raw == "" {
			return types.ValidationError("User ID is required")
		}
		if !types.IsValidObjectID(raw) {
			return types.ValidationError("Invalid user ID")
		}

		owner, err := auth.User(c.UserContext(), types.ObjectID(raw))
		if err != nil {
			return err
		}

		claims := Claims(c)
		if claims == nil || claims.UserID() != owner.ID {
			return types.AuthorizationError("You are not authorized to access this account")
		}

		c.Locals(localOwner, owner)
		return c.Next()
	}
}

// Claims returns the verified token claims, or nil outside Bearer.
func Claims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(localClaims).(*services.Claims)
	return claims
}

// Actor returns the user loaded by Owner, or nil outside it.
func Actor(c *fiber.Ctx) *models.User {
	owner, _ := c.Locals(localOwner).(*models.User)
	return owner
}
