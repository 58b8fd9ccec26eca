package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/database"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: html})
	return nil
}

type fixture struct {
	db     *gorm.DB
	reg    *Registry
	bucket *storage.MemoryBucket
	mailer *fakeMailer
}

// tickingClock advances one millisecond per call so stored keys never collide.
func tickingClock() func() time.Time {
	var ms atomic.Int64
	ms.Store(1700000000000)
	return func() time.Time { return time.UnixMilli(ms.Add(1)) }
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                        "test",
		ClientURL:                     "http://localhost:5173/",
		JWTSecret:                     "test-secret",
		UserTokenExpiry:               time.Hour,
		UploadLimitMB:                 1,
		MaxNotificationsBeforeCleanup: 1000,
		NotificationRetentionDays:     30,
		DBType:                        "sqlite-nocgo",
		DBDatabase:                    ":memory:",
	}
}

// failingSink refuses every notification.
type failingSink struct{}

func (failingSink) Append(context.Context, notify.Entry) (types.ObjectID, error) {
	return "", errors.New("notification store down")
}

func setup(t *testing.T) *fixture {
	return setupWithSink(t, nil)
}

// setupWithSink builds the fixture around sink, or a GormSink on the test database when nil.
func setupWithSink(t *testing.T, sink notify.Sink) *fixture {
	t.Helper()
	db, err := database.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	cfg := testConfig()
	bucket := storage.NewMemoryBucket("crm-test")
	lc := storage.NewLifecycle(bucket, "storage.googleapis.com", zerolog.Nop()).WithClock(tickingClock())
	if sink == nil {
		sink = notify.NewGormSink(db, notify.RetentionPolicy{Ceiling: 1000, Window: cfg.RetentionWindow()}, zerolog.Nop())
	}
	mailer := &fakeMailer{}

	reg := New(Deps{DB: db, Sink: sink, Storage: lc, Mailer: mailer, Config: cfg, Log: zerolog.Nop()})
	return &fixture{db: db, reg: reg, bucket: bucket, mailer: mailer}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Fullname: "Owner " + email, Email: email, Role: models.RoleUser, PasswordHash: "x"}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) service(t *testing.T, actor *models.User, name string) *models.Service {
	t.Helper()
	svc, _, err := f.reg.Catalog.Create(context.Background(), actor, ServiceInput{
		Name:    name,
		Details: "Design and build of marketing websites",
	})
	require.NoError(t, err)
	return svc
}

func (f *fixture) reloadService(t *testing.T, id types.ObjectID) *models.Service {
	t.Helper()
	svc, err := f.reg.Catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return svc
}

func (f *fixture) notifications(t *testing.T, user types.ObjectID) []notify.Notification {
	t.Helper()
	list, err := f.reg.Notifications.ListForUser(context.Background(), user)
	require.NoError(t, err)
	return list
}

func strptr(s string) *string { return &s }

func codeOf(t *testing.T, err error) int {
	t.Helper()
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	return ce.Code
}

func TestLeadCreateWithoutService(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")

	lead, trace, err := f.reg.Leads.Create(context.Background(), owner, LeadInput{
		Fullname: "Jane Doe",
		Email:    "jane@x.com",
		Country:  "Kenya",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", lead.Fullname)
	assert.Nil(t, lead.Service)
	assert.Equal(t, owner.ID, *lead.Owner)
	assert.Empty(t, trace.Warnings)

	list := f.notifications(t, owner.ID)
	require.Len(t, list, 1)
	assert.Equal(t, "A new lead Jane Doe has been created successfully", list[0].Details)
	assert.Equal(t, notify.DomainLead, list[0].RelatedModel)
}

func TestLeadCreateBatchesValidation(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")

	_, _, err := f.reg.Leads.Create(context.Background(), owner, LeadInput{Service: strptr("nope")})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.Code)
	assert.Equal(t, []string{
		"Lead fullname is required",
		"Lead email is required",
		"Lead country is required",
		"Service ID is invalid",
	}, ce.Messages)
}

func TestLeadDuplicateEmail(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	_, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)

	_, _, err = f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Janet Doe", Email: "jane@x.com", Country: "Kenya"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))
	assert.Contains(t, err.Error(), "already exists")

	leads, err := f.reg.Leads.List(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestLeadEmailUniqueAcrossOwnersAndCase(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	other := f.user(t, "other@x.com")
	ctx := context.Background()

	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: " Jane@X.com ", Country: "Kenya"})
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", lead.Email)

	attempts := []struct {
		name  string
		actor *models.User
		email string
	}{
		{"other owner", other, "jane@x.com"},
		{"case differs", owner, "JANE@x.com"},
		{"public form", nil, "jane@X.COM"},
	}
	for _, tc := range attempts {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.reg.Leads.Create(ctx, tc.actor, LeadInput{Fullname: "Someone " + tc.name, Email: tc.email, Country: "Kenya"})
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, codeOf(t, err))
			assert.Contains(t, err.Error(), "Lead with this email already exists")
		})
	}

	leads, err := f.reg.Leads.List(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestClientEmailStoredLowerCase(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	client, _, err := f.reg.Clients.Create(ctx, owner, ClientInput{Fullname: "Jane Doe", Email: "Jane@X.com", Country: "Kenya"})
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", client.Email)

	_, _, err = f.reg.Clients.Create(ctx, owner, ClientInput{Fullname: "Janet Doe", Email: "JANE@x.com", Country: "Kenya"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))
}

func TestLeadMissingServiceIsNotFound(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")

	_, _, err := f.reg.Leads.Create(context.Background(), owner, LeadInput{
		Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya",
		Service: strptr(types.NewObjectID().String()),
	})
	assert.Equal(t, http.StatusNotFound, codeOf(t, err))
}

func TestLeadServiceLinkFollowsLead(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	web := f.service(t, owner, "Web Design")
	seo := f.service(t, owner, "Search Engine Optimisation")

	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{
		Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya",
		Service: strptr(web.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, models.JSONList[types.ObjectID]{lead.ID}, f.reloadService(t, web.ID).Leads)

	edited, _, err := f.reg.Leads.Edit(ctx, owner, lead.ID, LeadInput{City: "Nairobi", Service: strptr(seo.ID.String())})
	require.NoError(t, err)
	assert.Equal(t, "Nairobi", edited.City)
	assert.Equal(t, "Jane Doe", edited.Fullname)
	assert.Empty(t, f.reloadService(t, web.ID).Leads)
	assert.Equal(t, models.JSONList[types.ObjectID]{lead.ID}, f.reloadService(t, seo.ID).Leads)

	_, err = f.reg.Leads.Delete(ctx, owner, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, f.reloadService(t, seo.ID).Leads)
	_, err = f.reg.Leads.Get(ctx, lead.ID)
	assert.Equal(t, http.StatusNotFound, codeOf(t, err))
}

func TestLeadEditByOtherOwnerIsForbidden(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	other := f.user(t, "other@x.com")
	ctx := context.Background()

	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)

	_, _, err = f.reg.Leads.Edit(ctx, other, lead.ID, LeadInput{City: "Mombasa"})
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	got, err := f.reg.Leads.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, got.City)
}

func TestPublicLeadHasNoOwnerAndNoNotification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	lead, _, err := f.reg.Leads.Create(ctx, nil, LeadInput{Fullname: "Web Visitor", Email: "visitor@x.com", Country: "Kenya"})
	require.NoError(t, err)
	assert.Nil(t, lead.Owner)

	all, err := f.reg.Notifications.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	anyone := f.user(t, "staff@x.com")
	_, _, err = f.reg.Leads.Edit(ctx, anyone, lead.ID, LeadInput{Company: "Visitor Ltd"})
	assert.NoError(t, err)
}

func TestLeadDeleteManyIsAllOrNothing(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	other := f.user(t, "other@x.com")
	ctx := context.Background()

	mine, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)
	theirs, _, err := f.reg.Leads.Create(ctx, other, LeadInput{Fullname: "John Roe", Email: "john@x.com", Country: "Kenya"})
	require.NoError(t, err)

	_, _, err = f.reg.Leads.DeleteMany(ctx, owner, []string{mine.ID.String(), theirs.ID.String()})
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	_, _, err = f.reg.Leads.DeleteMany(ctx, owner, []string{mine.ID.String(), types.NewObjectID().String()})
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	_, _, err = f.reg.Leads.DeleteMany(ctx, owner, []string{"bad"})
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))

	leads, err := f.reg.Leads.List(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 2)

	n, _, err := f.reg.Leads.DeleteMany(ctx, owner, []string{mine.ID.String(), mine.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServiceDeleteWithLeadsIsForbidden(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	svc := f.service(t, owner, "Web Design")

	for _, email := range []string{"a@x.com", "b@x.com"} {
		_, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{
			Fullname: "Lead " + email, Email: email, Country: "Kenya", Service: strptr(svc.ID.String()),
		})
		require.NoError(t, err)
	}
	before := f.reloadService(t, svc.ID)
	require.Len(t, before.Leads, 2)

	_, err := f.reg.Catalog.Delete(ctx, owner, svc.ID)
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	after := f.reloadService(t, svc.ID)
	assert.Equal(t, before.Leads, after.Leads)
	assert.Equal(t, before.Version, after.Version)

	_, _, err = f.reg.Catalog.DeleteMany(ctx, owner, []string{svc.ID.String()})
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))
}

func TestServiceDeleteDetachesClients(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	svc := f.service(t, owner, "Web Design")

	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{
		Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya", Service: strptr(svc.ID.String()),
	})
	require.NoError(t, err)
	client, _, err := f.reg.Clients.Convert(ctx, owner, lead.ID)
	require.NoError(t, err)

	_, err = f.reg.Catalog.Delete(ctx, owner, svc.ID)
	require.NoError(t, err)

	got, err := f.reg.Clients.Get(ctx, client.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Service)
}

func TestServiceDuplicateName(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	f.service(t, owner, "Web Design")

	_, _, err := f.reg.Catalog.Create(context.Background(), owner, ServiceInput{
		Name: "Web Design", Details: "Another description long enough",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Service with this name already exists")
}

func TestServiceEditKeepsLinks(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	svc := f.service(t, owner, "Web Design")
	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{
		Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya", Service: strptr(svc.ID.String()),
	})
	require.NoError(t, err)

	edited, _, err := f.reg.Catalog.Edit(ctx, owner, svc.ID, ServiceInput{Name: "Web Development"})
	require.NoError(t, err)
	assert.Equal(t, "Web Development", edited.Name)

	got := f.reloadService(t, svc.ID)
	assert.Equal(t, "Web Development", got.Name)
	assert.Equal(t, models.JSONList[types.ObjectID]{lead.ID}, got.Leads)
}

func TestConvertLeadMovesServiceLink(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	svc := f.service(t, owner, "Web Design")
	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{
		Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya", Service: strptr(svc.ID.String()),
	})
	require.NoError(t, err)

	client, _, err := f.reg.Clients.Convert(ctx, owner, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", client.Fullname)
	assert.Equal(t, owner.ID, client.Owner)

	_, err = f.reg.Leads.Get(ctx, lead.ID)
	assert.Equal(t, http.StatusNotFound, codeOf(t, err))

	got := f.reloadService(t, svc.ID)
	assert.Empty(t, got.Leads)
	assert.Equal(t, models.JSONList[types.ObjectID]{client.ID}, got.Clients)

	list := f.notifications(t, owner.ID)
	require.NotEmpty(t, list)
	assert.Equal(t, notify.TypeConvert, list[0].Type)
	assert.Equal(t, "Lead Jane Doe has been successfully converted to client Jane Doe", list[0].Details)

	_, _, err = f.reg.Clients.Convert(ctx, owner, lead.ID)
	assert.Equal(t, http.StatusNotFound, codeOf(t, err))
}

func TestClientFiles(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	other := f.user(t, "other@x.com")
	ctx := context.Background()
	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)
	client, _, err := f.reg.Clients.Convert(ctx, owner, lead.ID)
	require.NoError(t, err)

	_, _, err = f.reg.Clients.AddFile(ctx, owner, client.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No file provided")

	_, _, err = f.reg.Clients.AddFile(ctx, other, client.ID, &storage.File{Name: "contract.pdf", Data: []byte("%PDF")})
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	updated, _, err := f.reg.Clients.AddFile(ctx, owner, client.ID, &storage.File{Name: "contract.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	require.Len(t, updated.Files, 1)
	url := updated.Files[0]
	assert.True(t, strings.HasPrefix(url, "https://storage.googleapis.com/crm-test/documents/"))
	found, err := f.bucket.Exists(ctx, storage.ResolveKey(url))
	require.NoError(t, err)
	assert.True(t, found)

	_, _, err = f.reg.Clients.RemoveFile(ctx, owner, client.ID, "https://storage.googleapis.com/crm-test/documents/1-missing.pdf")
	assert.Equal(t, http.StatusNotFound, codeOf(t, err))

	updated, _, err = f.reg.Clients.RemoveFile(ctx, owner, client.ID, url)
	require.NoError(t, err)
	assert.Empty(t, updated.Files)
	found, err = f.bucket.Exists(ctx, storage.ResolveKey(url))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClientRemoveFileToleratesBucketFailure(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)
	client, _, err := f.reg.Clients.Convert(ctx, owner, lead.ID)
	require.NoError(t, err)
	client, _, err = f.reg.Clients.AddFile(ctx, owner, client.ID, &storage.File{Name: "contract.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)

	f.bucket.Fail(storage.OpDelete, errors.New("bucket unavailable"))
	updated, trace, err := f.reg.Clients.RemoveFile(ctx, owner, client.ID, client.Files[0])
	require.NoError(t, err)
	assert.Empty(t, updated.Files)
	assert.Contains(t, trace.Warnings, "removing stored file")
}

func TestClientDeleteRemovesFilesAndLink(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()
	svc := f.service(t, owner, "Web Design")
	lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{
		Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya", Service: strptr(svc.ID.String()),
	})
	require.NoError(t, err)
	client, _, err := f.reg.Clients.Convert(ctx, owner, lead.ID)
	require.NoError(t, err)
	client, _, err = f.reg.Clients.AddFile(ctx, owner, client.ID, &storage.File{Name: "brief.docx", Data: []byte("doc")})
	require.NoError(t, err)

	_, err = f.reg.Clients.Delete(ctx, owner, client.ID)
	require.NoError(t, err)

	objects, err := f.bucket.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
	assert.Empty(t, f.reloadService(t, svc.ID).Clients)
}

func TestBlogAssetsLifecycle(t *testing.T) {
	f := setup(t)
	author := f.user(t, "author@x.com")
	other := f.user(t, "other@x.com")
	ctx := context.Background()

	block := func(title string) models.ContentBlock {
		return models.ContentBlock{Title: title, Details: "A content block long enough to pass"}
	}

	_, _, err := f.reg.Blogs.Create(ctx, author, BlogInput{Title: "Launch", IntroDescription: "Intro", ContentBlocks: []models.ContentBlock{block("First")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Thumbnail is required")

	blog, _, err := f.reg.Blogs.Create(ctx, author, BlogInput{
		Title:            "Launch",
		IntroDescription: "Our new product",
		ContentBlocks:    []models.ContentBlock{block("First"), block("Second")},
		Tags:             []string{"news"},
		Thumbnail:        &storage.File{Name: "cover.png", Data: []byte("png")},
		Images:           []*storage.File{nil, {Name: "diagram.jpg", Data: []byte("jpg")}},
	})
	require.NoError(t, err)
	assert.Contains(t, blog.Thumbnail, "/images/")
	assert.Empty(t, blog.ContentBlocks[0].Image)
	assert.Contains(t, blog.ContentBlocks[1].Image, "diagram.jpg")
	oldThumb := blog.Thumbnail
	oldDiagram := blog.ContentBlocks[1].Image

	_, _, err = f.reg.Blogs.Edit(ctx, other, blog.ID, BlogInput{Title: "Hijack", IntroDescription: "Nope", ContentBlocks: []models.ContentBlock{block("First")}})
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	edited, _, err := f.reg.Blogs.Edit(ctx, author, blog.ID, BlogInput{
		Title:            "Launch day",
		IntroDescription: "Our new product",
		ContentBlocks:    []models.ContentBlock{block("First")},
		Thumbnail:        &storage.File{Name: "cover2.png", Data: []byte("png2")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Launch day", edited.Title)
	assert.NotEqual(t, oldThumb, edited.Thumbnail)
	assert.Equal(t, []string{"news"}, []string(edited.Tags))

	for _, gone := range []string{oldThumb, oldDiagram} {
		found, err := f.bucket.Exists(ctx, storage.ResolveKey(gone))
		require.NoError(t, err)
		assert.False(t, found, gone)
	}

	_, err = f.reg.Blogs.Delete(ctx, author, blog.ID)
	require.NoError(t, err)
	objects, err := f.bucket.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestBlogCreateCleansUpWhenStoreFails(t *testing.T) {
	f := setup(t)
	author := f.user(t, "author@x.com")
	ctx := context.Background()

	f.bucket.Fail(storage.OpMakePublic, errors.New("acl denied"))
	_, _, err := f.reg.Blogs.Create(ctx, author, BlogInput{
		Title:            "Launch",
		IntroDescription: "Our new product",
		ContentBlocks:    []models.ContentBlock{{Title: "First", Details: "A content block long enough to pass"}},
		Thumbnail:        &storage.File{Name: "cover.png", Data: []byte("png")},
	})
	require.Error(t, err)

	blogs, err := f.reg.Blogs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, blogs)
	objects, err := f.bucket.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

// failUpdates makes every UPDATE on table return an error.
func failUpdates(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(errors.New("db down"))
		}
	})
	require.NoError(t, err)
}

func assertStored(t *testing.T, f *fixture, url string, want bool) {
	t.Helper()
	found, err := f.bucket.Exists(context.Background(), storage.ResolveKey(url))
	require.NoError(t, err)
	assert.Equal(t, want, found, url)
}

func TestBlogEditKeepsAssetsWhenWriteFails(t *testing.T) {
	f := setup(t)
	author := f.user(t, "author@x.com")
	ctx := context.Background()
	blocks := []models.ContentBlock{{Title: "First", Details: "A content block long enough to pass"}}

	blog, _, err := f.reg.Blogs.Create(ctx, author, BlogInput{
		Title:            "Launch",
		IntroDescription: "Our new product",
		ContentBlocks:    blocks,
		Thumbnail:        &storage.File{Name: "cover.png", Data: []byte("png")},
		Images:           []*storage.File{{Name: "diagram.jpg", Data: []byte("jpg")}},
	})
	require.NoError(t, err)

	failUpdates(t, f.db, "blogs")
	_, _, err = f.reg.Blogs.Edit(ctx, author, blog.ID, BlogInput{
		Title:            "Launch day",
		IntroDescription: "Our new product",
		ContentBlocks:    blocks,
		Thumbnail:        &storage.File{Name: "cover2.png", Data: []byte("png2")},
		Images:           []*storage.File{{Name: "diagram2.jpg", Data: []byte("jpg2")}},
	})
	require.Error(t, err)

	got, err := f.reg.Blogs.Get(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, blog.Thumbnail, got.Thumbnail)
	assertStored(t, f, got.Thumbnail, true)
	assertStored(t, f, got.ContentBlocks[0].Image, true)

	objects, err := f.bucket.List(ctx)
	require.NoError(t, err)
	assert.Len(t, objects, 2, "only the original assets remain")
}

func TestBlogEditKeepsAssetsWhenSecondStoreFails(t *testing.T) {
	f := setup(t)
	author := f.user(t, "author@x.com")
	ctx := context.Background()
	blocks := []models.ContentBlock{{Title: "First", Details: "A content block long enough to pass"}}

	blog, _, err := f.reg.Blogs.Create(ctx, author, BlogInput{
		Title:            "Launch",
		IntroDescription: "Our new product",
		ContentBlocks:    blocks,
		Thumbnail:        &storage.File{Name: "cover.png", Data: []byte("png")},
		Images:           []*storage.File{{Name: "diagram.jpg", Data: []byte("jpg")}},
	})
	require.NoError(t, err)

	// the thumbnail is written, the block image upload is rejected
	f.bucket.FailAfter(storage.OpPut, 1, errors.New("bucket full"))
	_, _, err = f.reg.Blogs.Edit(ctx, author, blog.ID, BlogInput{
		Title:            "Launch day",
		IntroDescription: "Our new product",
		ContentBlocks:    blocks,
		Thumbnail:        &storage.File{Name: "cover2.png", Data: []byte("png2")},
		Images:           []*storage.File{{Name: "diagram2.jpg", Data: []byte("jpg2")}},
	})
	require.Error(t, err)

	got, err := f.reg.Blogs.Get(ctx, blog.ID)
	require.NoError(t, err)
	assertStored(t, f, got.Thumbnail, true)
	assertStored(t, f, got.ContentBlocks[0].Image, true)
	objects, err := f.bucket.List(ctx)
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}

func TestAnnouncementEditKeepsImageWhenWriteFails(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	a, _, err := f.reg.Announcements.Create(ctx, owner, AnnouncementInput{
		Title: "Holiday hours", Description: "Closed on Monday",
		Image: &storage.File{Name: "banner.png", Data: []byte("png")},
	})
	require.NoError(t, err)

	failUpdates(t, f.db, "announcements")
	_, _, err = f.reg.Announcements.Edit(ctx, owner, a.ID, AnnouncementInput{
		Image: &storage.File{Name: "banner2.png", Data: []byte("png2")},
	})
	require.Error(t, err)

	got, err := f.reg.Announcements.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Image, got.Image)
	assertStored(t, f, got.Image, true)
	objects, err := f.bucket.List(ctx)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestAnnouncementEditRemovesSupersededImage(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	a, _, err := f.reg.Announcements.Create(ctx, owner, AnnouncementInput{
		Title: "Holiday hours", Description: "Closed on Monday",
		Image: &storage.File{Name: "banner.png", Data: []byte("png")},
	})
	require.NoError(t, err)
	old := a.Image

	edited, _, err := f.reg.Announcements.Edit(ctx, owner, a.ID, AnnouncementInput{
		Image: &storage.File{Name: "banner2.png", Data: []byte("png2")},
	})
	require.NoError(t, err)
	assert.NotEqual(t, old, edited.Image)
	assertStored(t, f, edited.Image, true)
	assertStored(t, f, old, false)
}

func TestDeleteManyReportsSuccessWhenNotificationFails(t *testing.T) {
	f := setupWithSink(t, failingSink{})
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	var ids []string
	for _, email := range []string{"a@x.com", "b@x.com"} {
		lead, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Lead " + email, Email: email, Country: "Kenya"})
		require.NoError(t, err)
		ids = append(ids, lead.ID.String())
	}

	n, trace, err := f.reg.Leads.DeleteMany(ctx, owner, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, trace.Warnings, "persisting-notification")

	leads, err := f.reg.Leads.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestAnnouncementAndFAQ(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	inactive := false
	a, _, err := f.reg.Announcements.Create(ctx, owner, AnnouncementInput{
		Title: "Holiday hours", Description: "Closed on Monday", Active: &inactive,
		Image: &storage.File{Name: "banner.png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.False(t, a.Active)
	assert.Contains(t, a.Image, "/images/")

	edited, _, err := f.reg.Announcements.Edit(ctx, owner, a.ID, AnnouncementInput{Title: "Holiday opening hours"})
	require.NoError(t, err)
	assert.Equal(t, "Holiday opening hours", edited.Title)
	assert.False(t, edited.Active)

	_, err = f.reg.Announcements.Delete(ctx, owner, a.ID)
	require.NoError(t, err)

	svc := f.service(t, owner, "Web Design")
	faq, _, err := f.reg.FAQs.Create(ctx, owner, FAQInput{
		Question: "How long does a site take?", Answer: "About four weeks", Service: strptr(svc.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, svc.ID, *faq.Service)

	_, _, err = f.reg.FAQs.Create(ctx, owner, FAQInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Question is required")

	n, _, err := f.reg.FAQs.DeleteMany(ctx, owner, []string{faq.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFilesUploadUsageDelete(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	ctx := context.Background()

	_, _, err := f.reg.Files.Upload(ctx, owner, &storage.File{Name: "tool.exe", Data: []byte("MZ")})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))

	_, _, err = f.reg.Files.Upload(ctx, owner, &storage.File{Name: "big.pdf", Data: make([]byte, 2*1024*1024)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File too large")

	url, _, err := f.reg.Files.Upload(ctx, owner, &storage.File{Name: "report.PDF", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(storage.ResolveKey(url), "documents/"))

	report, err := f.reg.Files.Usage(ctx)
	require.NoError(t, err)
	require.Contains(t, report, "documents")
	assert.Equal(t, int64(4), report.TotalSize())

	key, rc, err := f.reg.Files.Download(ctx, url)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, storage.ResolveKey(url), key)

	list := f.notifications(t, owner.ID)
	require.Len(t, list, 1)
	assert.Equal(t, notify.DomainFile, list[0].RelatedModel)
	assert.Nil(t, list[0].RelatedModelID)

	_, err = f.reg.Files.Delete(ctx, owner, url)
	require.NoError(t, err)
	_, err = f.reg.Files.Delete(ctx, owner, url)
	assert.Equal(t, http.StatusNotFound, codeOf(t, err))
}

var otpPattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)
var resetPattern = regexp.MustCompile(`/auth/resetpassword/([0-9a-f]+)"`)

func register(t *testing.T, f *fixture) *Session {
	t.Helper()
	s, _, err := f.reg.Auth.Register(context.Background(), RegisterInput{
		Fullname: "Alice Admin", Email: "alice@x.com", Country: "Kenya", Role: models.RoleAdmin, Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return s
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	s := register(t, f)
	assert.NotEmpty(t, s.Token)
	assert.False(t, s.User.Verified)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "Account Activation Code", f.mailer.sent[0].subject)
	code := otpPattern.FindStringSubmatch(f.mailer.sent[0].body)[1]

	_, _, err := f.reg.Auth.Register(ctx, RegisterInput{
		Fullname: "Alice Again", Email: "alice@x.com", Country: "Kenya", Role: models.RoleUser, Password: "pw",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already exists")

	_, _, err = f.reg.Auth.VerifyOTP(ctx, "alice@x.com", "000000x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OTP.")

	user, _, err := f.reg.Auth.VerifyOTP(ctx, "alice@x.com", code)
	require.NoError(t, err)
	assert.True(t, user.Verified)

	_, err = f.reg.Auth.Login(ctx, "alice@x.com", "wrong")
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))
	_, err = f.reg.Auth.Login(ctx, "nobody@x.com", "s3cret-pass")
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))

	session, err := f.reg.Auth.Login(ctx, "alice@x.com", "s3cret-pass")
	require.NoError(t, err)
	claims, err := f.reg.Auth.Tokens().Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	_, _, err := f.reg.Auth.Register(context.Background(), RegisterInput{})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{
		"Fullname is required",
		"Email is required",
		"User's role is required",
		"Password is required",
		"Country is required",
	}, ce.Messages)
}

func TestRegisterMailFailureClearsOTP(t *testing.T) {
	f := setup(t)
	f.mailer.err = errors.New("relay down")

	_, _, err := f.reg.Auth.Register(context.Background(), RegisterInput{
		Fullname: "Alice Admin", Email: "alice@x.com", Country: "Kenya", Role: models.RoleUser, Password: "pw",
	})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusInternalServerError, ce.Code)
	assert.Equal(t, "Error sending email", ce.Message)

	var user models.User
	require.NoError(t, f.db.Where("email = ?", "alice@x.com").Take(&user).Error)
	assert.Empty(t, user.OTPCode)
	assert.Nil(t, user.OTPExpiry)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	register(t, f)

	msg, err := f.reg.Auth.ForgotPassword(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgResetUnknown, msg)

	_, err = f.reg.Auth.ForgotPassword(ctx, "not-an-email")
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))

	msg, err = f.reg.Auth.ForgotPassword(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgResetSent, msg)
	last := f.mailer.sent[len(f.mailer.sent)-1]
	assert.Contains(t, last.body, "http://localhost:5173/auth/resetpassword/")
	token := resetPattern.FindStringSubmatch(last.body)[1]

	var user models.User
	require.NoError(t, f.db.Where("email = ?", "alice@x.com").Take(&user).Error)
	assert.NotEqual(t, token, user.ResetPasswordToken)
	assert.Equal(t, hashToken(token), user.ResetPasswordToken)

	_, err = f.reg.Auth.ResetPassword(ctx, "deadbeef", "new-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token or token expired.")

	_, err = f.reg.Auth.ResetPassword(ctx, token, "new-pass")
	require.NoError(t, err)

	_, err = f.reg.Auth.Login(ctx, "alice@x.com", "new-pass")
	assert.NoError(t, err)
	_, err = f.reg.Auth.ResetPassword(ctx, token, "again")
	assert.Error(t, err)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	register(t, f)
	f.mailer.err = errors.New("relay down")

	_, err := f.reg.Auth.ForgotPassword(ctx, "alice@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to send reset email. Please try again later.")

	var user models.User
	require.NoError(t, f.db.Where("email = ?", "alice@x.com").Take(&user).Error)
	assert.Empty(t, user.ResetPasswordToken)
}

func TestTokens(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tokens := NewTokens("secret", time.Hour, clock)
	id := types.NewObjectID()

	raw, expires, err := tokens.Issue(id, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Unix(), expires.Unix())

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID())

	forged := NewTokens("other-secret", time.Hour, clock)
	_, err = forged.Verify(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Token")

	later := NewTokens("secret", time.Hour, func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Verify(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token has expired")

	_, err = tokens.Verify("not.a.token")
	assert.Contains(t, err.Error(), "Invalid Token")
}

func TestNotificationFeedOwnership(t *testing.T) {
	f := setup(t)
	owner := f.user(t, "owner@x.com")
	other := f.user(t, "other@x.com")
	ctx := context.Background()
	_, _, err := f.reg.Leads.Create(ctx, owner, LeadInput{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"})
	require.NoError(t, err)

	list := f.notifications(t, owner.ID)
	require.Len(t, list, 1)
	id := list[0].ID

	_, err = f.reg.Notifications.MarkRead(ctx, other.ID, id)
	assert.Equal(t, http.StatusForbidden, codeOf(t, err))

	read, err := f.reg.Notifications.MarkRead(ctx, owner.ID, id)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = f.reg.Notifications.DeleteMany(ctx, owner.ID, []string{"zzz"})
	assert.Equal(t, http.StatusBadRequest, codeOf(t, err))

	n, err := f.reg.Notifications.DeleteMany(ctx, owner.ID, []string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHealthCheck(t *testing.T) {
	f := setup(t)
	result := f.reg.Health.Check(context.Background())
	assert.Equal(t, "healthy", result.Status, result.ErrorMessage)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "ok", result.Storage)
	assert.Equal(t, "disabled", result.Mail)

	f.bucket.Fail(storage.OpList, errors.New("bucket gone"))
	result = f.reg.Health.Check(context.Background())
	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "unreachable", result.Storage)
	assert.Contains(t, result.ErrorMessage, "bucket gone")
}

func TestHealthCheckUnreachableStorageEndpoint(t *testing.T) {
	f := setup(t)
	cfg := testConfig()
	cfg.StorageDriver = "s3"
	cfg.StorageEndpoint = "http://127.0.0.1:1"

	result := NewHealth(f.db, f.bucket, cfg, zerolog.Nop()).Check(context.Background())
	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "unreachable", result.Storage)
	assert.Contains(t, result.Details["storage_error"], "Storage endpoint ping failed")
	assert.Equal(t, "ok", result.Database)
}
