// storage.go
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
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/localnerve/jam-build-crm/internal/middleware"
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/types"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// StorageHandler handles bucket routes
type StorageHandler struct {
	Files *services.Files
	Log   zerolog.Logger
}

// streamLogger reports read errors on a download body. The body is read after the
// handler returns and the status is sent, so nothing else would see them.
type streamLogger struct {
	io.ReadCloser
	log       zerolog.Logger
	key       string
	requestID string
	sent      int64
}

func (s *streamLogger) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	s.sent += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		s.log.Error().Err(err).
			Str("requestid", s.requestID).
			Str("key", s.key).
			Int64("sent", s.sent).
			Msg("download interrupted")
	}
	return n, err
}

func filename(c *fiber.Ctx) (string, error) {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return "", types.ValidationError("Invalid file name")
	}
	return name, nil
}

// Usage handles GET /api/storage/:ownerID/fetch
// @Summary Storage usage
// @Description Every stored object grouped by top level folder with per folder sizes
// @Tags Storage
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /storage/{ownerID}/fetch [get]
func (h *StorageHandler) Usage(c *fiber.Ctx) error {
	report, err := h.Files.Usage(c.UserContext())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "", report)
}

// Upload handles POST /api/storage/:ownerID/new
// @Summary Upload a file
// @Tags Storage
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param file formData file true "File"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /storage/{ownerID}/new [post]
func (h *StorageHandler) Upload(c *fiber.Ctx) error {
	file, err := formFile(c, "file")
	if err != nil {
		return err
	}
	link, trace, err := h.Files.Upload(c.UserContext(), middleware.Actor(c), file)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusCreated, "File uploaded successfully", fiber.Map{"url": link})
}

// Delete handles DELETE /api/storage/:ownerID/delete/:filename
// @Summary Delete a file
// @Tags Storage
// @Produce json
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param filename path string true "File name, key or URL"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /storage/{ownerID}/delete/{filename} [delete]
func (h *StorageHandler) Delete(c *fiber.Ctx) error {
	name, err := filename(c)
	if err != nil {
		return err
	}
	trace, err := h.Files.Delete(c.UserContext(), middleware.Actor(c), name)
	if err != nil {
		return fail(c, trace, err)
	}
	return respond(c, trace, fiber.StatusOK, "File deleted successfully", deleted)
}

// Download handles GET /api/storage/:ownerID/download/:filename
// @Summary Download a file
// @Tags Storage
// @Produce octet-stream
// @Security BearerAuth
// @Param ownerID path string true "User ID"
// @Param filename path string true "File name, key or URL"
// @Success 200 {file} file
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /storage/{ownerID}/download/{filename} [get]
func (h *StorageHandler) Download(c *fiber.Ctx) error {
	name, err := filename(c)
	if err != nil {
		return err
	}
	key, body, err := h.Files.Download(c.UserContext(), name)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	c.Type(path.Ext(key))
	return c.SendStream(&streamLogger{ReadCloser: body, log: h.Log, key: key, requestID: middleware.RequestID(c)})
}
