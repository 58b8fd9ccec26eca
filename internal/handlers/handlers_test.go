package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/database"
	"github.com/localnerve/jam-build-crm/internal/handlers"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/utils"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

type harness struct {
	app    *fiber.App
	db     *gorm.DB
	reg    *services.Registry
	bucket *storage.MemoryBucket
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) *harness {
	t.Helper()
	db, err := database.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	cfg := &config.Config{
		AppEnv:                        "test",
		JWTSecret:                     "test-secret",
		UserTokenExpiry:               time.Hour,
		UploadLimitMB:                 1,
		MaxNotificationsBeforeCleanup: 1000,
		NotificationRetentionDays:     30,
	}
	bucket := storage.NewMemoryBucket("crm-test")
	sink := notify.NewGormSink(db, notify.RetentionPolicy{Ceiling: 1000, Window: cfg.RetentionWindow()}, zerolog.Nop())
	reg := services.New(services.Deps{
		DB:      db,
		Sink:    sink,
		Storage: storage.NewLifecycle(bucket, "storage.googleapis.com", zerolog.Nop()),
		Mailer:  nopMailer{},
		Config:  cfg,
		Log:     zerolog.Nop(),
	})

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	handlers.Register(app.Group("/api"), reg, zerolog.Nop())
	app.Use(utils.NotFoundResponse)

	return &harness{app: app, db: db, reg: reg, bucket: bucket}
}

func (h *harness) user(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	u := &models.User{Fullname: "User " + email, Email: email, Role: role, PasswordHash: "x"}
	require.NoError(t, h.db.Create(u).Error)
	token, _, err := h.reg.Auth.Tokens().Issue(u.ID, u.Role)
	require.NoError(t, err)
	return u, token
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (h *harness) createService(t *testing.T, owner *models.User, token, name string) models.Service {
	t.Helper()
	resp, env := h.do(t, http.MethodPost, "/api/service/"+owner.ID.String()+"/new", token, map[string]string{
		"name":    name,
		"details": "Design and build of marketing websites",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	return decode[models.Service](t, env.Data)
}

func TestCreateLeadAttachesService(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	svc := h.createService(t, owner, token, "Web design")

	resp, env := h.do(t, http.MethodPost, "/api/lead/"+owner.ID.String()+"/new", token, map[string]string{
		"fullname": "Jane Doe",
		"email":    "jane@x.com",
		"country":  "Kenya",
		"service":  svc.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	assert.True(t, env.Success)
	assert.Equal(t, "Lead created successfully", env.Message)
	lead := decode[models.Lead](t, env.Data)

	resp, env = h.do(t, http.MethodGet, "/api/service/fetch/single/"+svc.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Service](t, env.Data)
	assert.Contains(t, got.Leads, lead.ID)
}

func TestCreateLeadBatchesValidationMessages(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)

	resp, env := h.do(t, http.MethodPost, "/api/lead/"+owner.ID.String()+"/new", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "Lead fullname is required")
	assert.Contains(t, env.Error, "Lead email is required")
	assert.Contains(t, env.Error, "Lead country is required")
}

func TestPublicLeadPost(t *testing.T) {
	h := setup(t)

	resp, env := h.do(t, http.MethodPost, "/api/lead/post", "", map[string]string{
		"fullname": "Website Visitor",
		"email":    "visitor@x.com",
		"country":  "Ghana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	lead := decode[models.Lead](t, env.Data)
	assert.Nil(t, lead.Owner)
}

func TestDeleteServiceWithLeadsIsRefused(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	svc := h.createService(t, owner, token, "Web design")

	resp, env := h.do(t, http.MethodPost, "/api/lead/"+owner.ID.String()+"/new", token, map[string]string{
		"fullname": "Jane Doe",
		"email":    "jane@x.com",
		"country":  "Kenya",
		"service":  svc.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)

	resp, env = h.do(t, http.MethodDelete, "/api/service/"+owner.ID.String()+"/delete/single/"+svc.ID.String(), token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Cannot delete service with associated leads, you have to delete the leads first", env.Error)

	resp, _ = h.do(t, http.MethodGet, "/api/service/fetch/single/"+svc.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBulkDeleteIsAllOrNothing(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	other, otherToken := h.user(t, "other@x.com", models.RoleUser)

	var ids []string
	for _, email := range []string{"a@x.com", "b@x.com"} {
		resp, env := h.do(t, http.MethodPost, "/api/lead/"+owner.ID.String()+"/new", token, map[string]string{
			"fullname": "Lead " + email,
			"email":    email,
			"country":  "Kenya",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
		ids = append(ids, decode[models.Lead](t, env.Data).ID.String())
	}
	resp, env := h.do(t, http.MethodPost, "/api/lead/"+other.ID.String()+"/new", otherToken, map[string]string{
		"fullname": "Someone Else",
		"email":    "c@x.com",
		"country":  "Kenya",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	foreign := decode[models.Lead](t, env.Data).ID.String()

	resp, env = h.do(t, http.MethodDelete, "/api/lead/"+owner.ID.String()+"/delete/many", token, map[string][]string{
		"leadIDs": append(ids, foreign),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Some leads not found or not authorized", env.Error)

	var count int64
	require.NoError(t, h.db.Model(&models.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	resp, env = h.do(t, http.MethodDelete, "/api/lead/"+owner.ID.String()+"/delete/many", token, map[string][]string{
		"leadIDs": ids,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	require.NoError(t, h.db.Model(&models.Lead{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBulkDeleteAcceptsSingleID(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	svc := h.createService(t, owner, token, "Web design")

	resp, env := h.do(t, http.MethodDelete, "/api/service/"+owner.ID.String()+"/delete/many", token, map[string]string{
		"serviceIDs": svc.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.Equal(t, "1 services have deleted successfully", env.Message)
}

func TestBearerErrors(t *testing.T) {
	h := setup(t)
	owner, _ := h.user(t, "owner@x.com", models.RoleUser)
	path := "/api/lead/" + owner.ID.String() + "/new"

	resp, env := h.do(t, http.MethodPost, path, "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authorized to access this route", env.Error)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Token abc")
	resp, env = h.send(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "You are not authorized", env.Error)

	resp, env = h.do(t, http.MethodPost, path, "not.a.jwt", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid Token", env.Error)

	expired, _, err := services.NewTokens("test-secret", -time.Minute, nil).Issue(owner.ID, owner.Role)
	require.NoError(t, err)
	resp, env = h.do(t, http.MethodPost, path, expired, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has expired", env.Error)

	forged, _, err := services.NewTokens("other-secret", time.Hour, nil).Issue(owner.ID, owner.Role)
	require.NoError(t, err)
	resp, env = h.do(t, http.MethodPost, path, forged, map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid Token", env.Error)
}

func TestOwnerMustMatchToken(t *testing.T) {
	h := setup(t)
	owner, _ := h.user(t, "owner@x.com", models.RoleUser)
	_, otherToken := h.user(t, "other@x.com", models.RoleUser)

	resp, env := h.do(t, http.MethodPost, "/api/lead/"+owner.ID.String()+"/new", otherToken, map[string]string{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, env.Success)

	resp, env = h.do(t, http.MethodPost, "/api/lead/not-an-id/new", otherToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid user ID", env.Error)

	resp, env = h.do(t, http.MethodPost, "/api/lead/"+strings.Repeat("a", 24)+"/new", otherToken, map[string]string{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found", env.Error)
}

func TestListAllNotificationsRequiresAdmin(t *testing.T) {
	h := setup(t)
	_, userToken := h.user(t, "user@x.com", models.RoleUser)
	_, adminToken := h.user(t, "admin@x.com", models.RoleAdmin)

	resp, _ := h.do(t, http.MethodGet, "/api/notification/fetch/all", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := h.do(t, http.MethodGet, "/api/notification/fetch/all", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Count)
}

func TestNotificationFeedFollowsMutations(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	h.createService(t, owner, token, "Web design")

	resp, env := h.do(t, http.MethodGet, "/api/notification/"+owner.ID.String()+"/fetch/all", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	list := decode[[]notify.Notification](t, env.Data)
	resp, env = h.do(t, http.MethodPut, "/api/notification/"+owner.ID.String()+"/read/"+list[0].ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.True(t, decode[notify.Notification](t, env.Data).IsRead)
}

func TestStorageUploadAndUsage(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "brochure.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 brochure"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/storage/"+owner.ID.String()+"/new", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, env := h.send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	link := decode[map[string]string](t, env.Data)["url"]
	assert.Contains(t, link, "https://storage.googleapis.com/crm-test/")

	resp, env = h.do(t, http.MethodGet, "/api/storage/"+owner.ID.String()+"/fetch", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	report := decode[storage.UsageReport](t, env.Data)
	assert.EqualValues(t, len("%PDF-1.4 brochure"), report.TotalSize())
}

func TestMalformedBody(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/api/lead/"+owner.ID.String()+"/new", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, env := h.send(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", env.Error)
}

func TestUnknownRoute(t *testing.T) {
	h := setup(t)

	resp, env := h.do(t, http.MethodGet, "/api/nothing/here", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "/api/nothing/here")
}

func TestUnsupportedAPIVersion(t *testing.T) {
	h := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/service/fetch/all", nil)
	req.Header.Set("X-Api-Version", "2.0")
	resp, env := h.send(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported API version 2.0.0", env.Error)
}

func TestDuplicateKeyFromStoreIsBadRequest(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	h.createService(t, owner, token, "Web Design")

	// Writes straight to the table, as a concurrent request that passed the name check would.
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	app.Post("/services", func(c *fiber.Ctx) error {
		return h.db.WithContext(c.UserContext()).Create(&models.Service{Name: "Web Design"}).Error
	})
	app.Post("/leads", func(c *fiber.Ctx) error {
		return h.db.WithContext(c.UserContext()).Create(&models.Lead{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"}).Error
	})

	_, _, err := h.reg.Leads.Create(context.Background(), owner, services.LeadInput{Fullname: "Janet Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)

	for _, path := range []string{"/services", "/leads"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil), -1)
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Duplicate field value entered", env.Error, path)
	}

	var count int64
	require.NoError(t, h.db.Model(&models.Service{}).Where("name = ?", "Web Design").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUploadWithBrokenMultipartBody(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/api/storage/"+owner.ID.String()+"/new", strings.NewReader("not a multipart body"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEMultipartForm+"; boundary=xyz")
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, env := h.send(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", env.Error)
}

func TestDownloadStreamsStoredFile(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("meeting notes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/storage/"+owner.ID.String()+"/new", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, env := h.send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	link := decode[map[string]string](t, env.Data)["url"]

	req = httptest.NewRequest(http.MethodGet, "/api/storage/"+owner.ID.String()+"/download/"+link[strings.LastIndex(link, "/")+1:], nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", string(got))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
}

func TestServiceSectionRoutes(t *testing.T) {
	h := setup(t)
	owner, token := h.user(t, "owner@x.com", models.RoleUser)
	svc := h.createService(t, owner, token, "Web Design")
	base := "/api/service/" + owner.ID.String() + "/" + svc.ID.String()

	resp, env := h.do(t, http.MethodPut, base+"/price/add", token, map[string]interface{}{
		"title":     "Basic",
		"listItems": []string{"Landing page"},
		"price":     map[string]interface{}{"amount": 100, "currency": "USD"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	assert.Equal(t, "Price added successfully", env.Message)
	priceID := decode[models.Service](t, env.Data).Prices[0].ID.String()

	resp, env = h.do(t, http.MethodPut, base+"/faq/add", token, map[string]string{"question": "Do you host?"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error, "FAQ answer is required")

	resp, env = h.do(t, http.MethodPut, base+"/price/edit/"+priceID, token, map[string]interface{}{
		"title":     "Starter",
		"listItems": []string{"Landing page"},
		"price":     map[string]interface{}{"amount": 120, "currency": "USD"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.Equal(t, "Starter", decode[models.Service](t, env.Data).Prices[0].Title)

	resp, env = h.do(t, http.MethodDelete, base+"/details/delete/single/"+priceID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Detail not found", env.Error)

	resp, env = h.do(t, http.MethodDelete, base+"/price/delete/many", token, map[string][]string{"priceIDs": {priceID}})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.Equal(t, "Prices deleted successfully", env.Message)

	resp, env = h.do(t, http.MethodGet, "/api/service/fetch/single/"+svc.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	stored := decode[models.Service](t, env.Data)
	assert.Empty(t, stored.Prices)
	assert.Equal(t, "Web Design", stored.Name)
}
