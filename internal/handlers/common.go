// common.go
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
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/jam-build-crm/internal/middleware"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// pathID reads an ObjectID route parameter. field names it in the error message.
func pathID(c *fiber.Ctx, param, field string) (types.ObjectID, error) {
	return types.ParseObjectID(field, c.Params(param))
}

// parseBody decodes a JSON or form body into out. An empty body leaves out untouched so
// the schema reports the missing fields.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return types.ValidationError("Invalid request body")
	}
	return nil
}

// bulkIDs reads the id list of a bulk delete body. The first present key among keys wins,
// then "ids". A single string is accepted in place of an array.
func bulkIDs(c *fiber.Ctx, keys ...string) ([]string, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return nil, types.ValidationError("Invalid request body")
	}

	for _, key := range append(keys, "ids") {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var list types.FlexList[string]
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, types.ValidationError("Invalid request body")
		}
		return list.Slice(), nil
	}
	return nil, nil
}

// formFiles reads every uploaded file under field. A request without a multipart body
// yields no files; a multipart body that does not parse is a validation error.
func formFiles(c *fiber.Ctx, field string) ([]*storage.File, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, types.ValidationError("Invalid request body")
	}

	headers := form.File[field]
	files := make([]*storage.File, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return nil, types.ValidationError("Unable to read uploaded file " + fh.Filename)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, types.ValidationError("Unable to read uploaded file " + fh.Filename)
		}
		files = append(files, &storage.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
	}
	return files, nil
}

// formFile reads the first file under field, or nil.
func formFile(c *fiber.Ctx, field string) (*storage.File, error) {
	files, err := formFiles(c, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}

// formBool parses an optional boolean form value.
func formBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, types.ValidationError(key + " must be true or false")
	}
	return &v, nil
}

// formJSON decodes an optional JSON encoded form value into out.
func formJSON(c *fiber.Ctx, key string, out interface{}) error {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return types.ValidationError(key + " is not valid JSON")
	}
	return nil
}

// formList reads a list given as a JSON array or a comma separated string.
func formList(c *fiber.Ctx, key string) []string {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return nil
	}
	var list []string
	if json.Unmarshal([]byte(raw), &list) == nil {
		return list
	}
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

// respond hands the trace to the trace logger and sends the success envelope, timing
// the responding phase.
func respond(c *fiber.Ctx, trace *mutation.Trace, status int, message string, data interface{}) error {
	middleware.SetTrace(c, trace)
	if trace == nil {
		return utils.SuccessResponse(c, status, message, data)
	}
	done := trace.Begin(mutation.PhaseResponding)
	err := utils.SuccessResponse(c, status, message, data)
	done(err)
	return err
}

// fail hands the trace of a rejected mutation to the trace logger and returns err to the
// error handler.
func fail(c *fiber.Ctx, trace *mutation.Trace, err error) error {
	middleware.SetTrace(c, trace)
	return err
}

// deleted is the empty data object of delete responses
var deleted = fiber.Map{}
