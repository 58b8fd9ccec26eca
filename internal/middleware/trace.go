// trace.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/localnerve/jam-build-crm/internal/mutation"
)

const localTrace = "trace"

// SetTrace hands a mutation trace to TraceLogger.
func SetTrace(c *fiber.Ctx, trace *mutation.Trace) {
	if trace != nil {
		c.Locals(localTrace, trace)
	}
}

// GetTrace returns the trace set by the handler, if any.
func GetTrace(c *fiber.Ctx) *mutation.Trace {
	trace, _ := c.Locals(localTrace).(*mutation.Trace)
	return trace
}

// TraceLogger logs the phase timings of a mutating request once the handler has
// returned. It never alters the response or the handler error.
func TraceLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		trace := GetTrace(c)
		if trace == nil {
			return err
		}

		func() {
			defer func() { _ = recover() }()

			event := log.Info()
			if err != nil || trace.Outcome != mutation.OutcomeOK {
				event = log.Warn()
			}
			event.
				Str("requestid", RequestID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Object("trace", trace).
				Msg("mutation")
		}()

		return err
	}
}

// RequestID returns the id the requestid middleware assigned, or "".
func RequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
