// health.go
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

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Storage      string            `json:"storage"`
	Mail         string            `json:"mail"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// Health probes the datastore, the bucket and the mail relay.
type Health struct {
	db     *gorm.DB
	bucket storage.Bucket
	cfg    *config.Config
	log    zerolog.Logger
}

// NewHealth creates a Health probe outside a Registry, for the healthcheck command.
func NewHealth(db *gorm.DB, bucket storage.Bucket, cfg *config.Config, log zerolog.Logger) *Health {
	return &Health{db: db, bucket: bucket, cfg: cfg, log: log}
}

func (r *HealthCheckResult) fail(component, state, format string, args ...any) {
	r.Status = "unhealthy"
	msg := fmt.Sprintf(format, args...)
	r.Details[component+"_error"] = msg
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
	switch component {
	case "database":
		r.Database = state
	case "storage":
		r.Storage = state
	case "mail":
		r.Mail = state
	}
}

// Check performs a comprehensive health check of the service
func (h *Health) Check(ctx context.Context) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := h.db.DB()
	if err != nil {
		result.fail("database", "error", "Database connection error: %v", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.fail("database", "unreachable", "Database ping failed: %v", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = h.cfg.DBType
		result.Details["database_name"] = h.cfg.DBDatabase
	}

	// Check the bucket by listing it, dialing a custom endpoint first
	if h.bucket == nil {
		result.fail("storage", "error", "Storage is not configured")
	} else if h.cfg.StorageEndpoint != "" && h.cfg.StorageDriver != "memory" {
		if err := utils.PingService(ctx, h.cfg.StorageEndpoint, 1500*time.Millisecond); err != nil {
			result.fail("storage", "unreachable", "Storage endpoint ping failed: %v", err)
		}
	}
	if h.bucket != nil && result.Storage == "" {
		h.listBucket(ctx, &result)
	}

	// The mail relay is optional; without one mail is logged
	if h.cfg.SMTPHost == "" {
		result.Mail = "disabled"
	} else if err := utils.PingSMTP(ctx, h.cfg.SMTPHost, h.cfg.SMTPPort); err != nil {
		result.fail("mail", "unreachable", "SMTP ping failed: %v", err)
	} else {
		result.Mail = "ok"
	}

	if result.Status == "healthy" {
		h.log.Debug().Msg("Health check passed - all systems operational")
	} else {
		h.log.Warn().Str("error", result.ErrorMessage).Msg("Health check failed")
	}

	return result
}

func (h *Health) listBucket(ctx context.Context, result *HealthCheckResult) {
	if _, err := h.bucket.List(ctx); err != nil {
		result.fail("storage", "unreachable", "Bucket list failed: %v", err)
		return
	}
	result.Storage = "ok"
	result.Details["storage_bucket"] = h.bucket.Name()
}
