// routes.go
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
	"github.com/rs/zerolog"

	"github.com/localnerve/jam-build-crm/internal/middleware"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/services"
)

// HealthHandler reports dependency health
type HealthHandler struct {
	Health *services.Health
}

// Check handles GET /api/health
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	result := h.Health.Check(c.UserContext())
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

// Register mounts every CRM route on api, normally the /api group.
func Register(api fiber.Router, reg *services.Registry, log zerolog.Logger) {
	api.Use(middleware.VersionMiddleware())
	api.Use(middleware.TraceLogger(log))

	auth := middleware.Bearer(reg.Auth.Tokens())
	owner := middleware.Owner(reg.Auth)

	health := &HealthHandler{Health: reg.Health}
	api.Get("/health", health.Check)

	userHandler := &UserHandler{Auth: reg.Auth}
	user := api.Group("/user")
	user.Post("/register", userHandler.Register)
	user.Post("/login", userHandler.Login)
	user.Post("/otp", userHandler.VerifyOTP)
	user.Post("/forgotpassword", userHandler.ForgotPassword)
	user.Post("/resetpassword/:resetToken", userHandler.ResetPassword)
	user.Get("/fetch/me", auth, userHandler.Me)
	user.Put("/:ownerID/edit", auth, owner, userHandler.Edit)

	leadHandler := &LeadHandler{Leads: reg.Leads}
	lead := api.Group("/lead")
	lead.Post("/post", leadHandler.Post)
	lead.Post("/:ownerID/new", auth, owner, leadHandler.Create)
	lead.Put("/:ownerID/edit/:id", auth, owner, leadHandler.Edit)
	lead.Get("/fetch/all", auth, leadHandler.List)
	lead.Get("/fetch/single/:id", auth, leadHandler.Get)
	lead.Delete("/:ownerID/delete/single/:id", auth, owner, leadHandler.Delete)
	lead.Delete("/:ownerID/delete/many", auth, owner, leadHandler.DeleteMany)

	serviceHandler := &ServiceHandler{Catalog: reg.Catalog}
	service := api.Group("/service")
	service.Post("/:ownerID/new", auth, owner, serviceHandler.Create)
	service.Put("/:ownerID/edit/:id", auth, owner, serviceHandler.Edit)
	service.Get("/fetch/all", serviceHandler.List)
	service.Get("/fetch/single/:id", serviceHandler.Get)
	service.Delete("/:ownerID/delete/single/:id", auth, owner, serviceHandler.Delete)
	service.Delete("/:ownerID/delete/many", auth, owner, serviceHandler.DeleteMany)
	mountSection(service, "details", &SectionHandler[models.ServiceDetail, services.ServiceDetailInput]{
		Section: reg.Catalog.Details(), BulkKey: "detailIDs",
	}, auth, owner)
	mountSection(service, "requirement", &SectionHandler[models.ServiceRequirement, services.ServiceRequirementInput]{
		Section: reg.Catalog.Requirements(), BulkKey: "requirementIDs",
	}, auth, owner)
	mountSection(service, "price", &SectionHandler[models.ServicePrice, services.ServicePriceInput]{
		Section: reg.Catalog.Prices(), BulkKey: "priceIDs",
	}, auth, owner)
	mountSection(service, "faq", &SectionHandler[models.ServiceFAQ, services.ServiceFAQInput]{
		Section: reg.Catalog.FAQs(), BulkKey: "faqIDs",
	}, auth, owner)

	clientHandler := &ClientHandler{Clients: reg.Clients}
	client := api.Group("/client")
	client.Post("/:ownerID/new", auth, owner, clientHandler.Create)
	client.Post("/:ownerID/convert/lead/:leadID", auth, owner, clientHandler.Convert)
	client.Put("/:ownerID/edit/:id/addfile", auth, owner, clientHandler.AddFile)
	client.Put("/:ownerID/edit/:id/removefile", auth, owner, clientHandler.RemoveFile)
	client.Put("/:ownerID/edit/:id", auth, owner, clientHandler.Edit)
	client.Get("/fetch/all", auth, clientHandler.List)
	client.Get("/fetch/single/:id", auth, clientHandler.Get)
	client.Delete("/:ownerID/delete/single/:id", auth, owner, clientHandler.Delete)
	client.Delete("/:ownerID/delete/many", auth, owner, clientHandler.DeleteMany)

	blogHandler := &BlogHandler{Blogs: reg.Blogs}
	blog := api.Group("/blog")
	blog.Post("/:ownerID/new", auth, owner, blogHandler.Create)
	blog.Put("/:ownerID/edit/:id", auth, owner, blogHandler.Edit)
	blog.Get("/fetch/all", blogHandler.List)
	blog.Get("/fetch/single/:id", blogHandler.Get)
	blog.Delete("/:ownerID/delete/single/:id", auth, owner, blogHandler.Delete)
	blog.Delete("/:ownerID/delete/many", auth, owner, blogHandler.DeleteMany)

	announcementHandler := &AnnouncementHandler{Announcements: reg.Announcements}
	announcement := api.Group("/announcement")
	announcement.Post("/:ownerID/new", auth, owner, announcementHandler.Create)
	announcement.Put("/:ownerID/edit/:id", auth, owner, announcementHandler.Edit)
	announcement.Get("/fetch/all", announcementHandler.List)
	announcement.Get("/fetch/single/:id", announcementHandler.Get)
	announcement.Delete("/:ownerID/delete/single/:id", auth, owner, announcementHandler.Delete)
	announcement.Delete("/:ownerID/delete/many", auth, owner, announcementHandler.DeleteMany)

	faqHandler := &FAQHandler{FAQs: reg.FAQs}
	faq := api.Group("/faq")
	faq.Post("/:ownerID/new", auth, owner, faqHandler.Create)
	faq.Put("/:ownerID/edit/:id", auth, owner, faqHandler.Edit)
	faq.Get("/fetch/all", faqHandler.List)
	faq.Get("/fetch/single/:id", faqHandler.Get)
	faq.Delete("/:ownerID/delete/single/:id", auth, owner, faqHandler.Delete)
	faq.Delete("/:ownerID/delete/many", auth, owner, faqHandler.DeleteMany)

	storageHandler := &StorageHandler{Files: reg.Files, Log: log}
	store := api.Group("/storage", auth)
	store.Get("/:ownerID/fetch", owner, storageHandler.Usage)
	store.Post("/:ownerID/new", owner, storageHandler.Upload)
	store.Delete("/:ownerID/delete/:filename", owner, storageHandler.Delete)
	store.Get("/:ownerID/download/:filename", owner, storageHandler.Download)

	notificationHandler := &NotificationHandler{Notifications: reg.Notifications}
	notification := api.Group("/notification", auth)
	notification.Get("/fetch/all", middleware.Role(models.RoleAdmin), notificationHandler.ListAll)
	notification.Get("/:ownerID/fetch/all", owner, notificationHandler.ListMine)
	notification.Get("/:ownerID/fetch/single/:id", owner, notificationHandler.Get)
	notification.Put("/:ownerID/read/:id", owner, notificationHandler.MarkRead)
	notification.Delete("/:ownerID/delete/single/:id", owner, notificationHandler.Delete)
	notification.Delete("/:ownerID/delete/many", owner, notificationHandler.DeleteMany)
}
