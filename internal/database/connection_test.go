package database

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/types"
)

func TestConnectUnsupported(t *testing.T) {
	_, err := Connect(&config.Config{DBType: "oracle"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestConnectSQLiteNoCGO(t *testing.T) {
	db, err := Connect(&config.Config{DBType: "sqlite-nocgo", DBDatabase: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{"users", "services", "leads", "clients", "blogs", "announcements", "faqs", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestDocumentsRoundTrip(t *testing.T) {
	db, err := OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	defer Close(db)

	leadID := types.NewObjectID()
	svc := &models.Service{Name: "Web Design", Leads: models.JSONList[types.ObjectID]{leadID}}
	require.NoError(t, db.Create(svc).Error)
	assert.True(t, types.IsValidObjectID(svc.ID.String()))
	assert.Equal(t, uint64(1), svc.Version)

	var loaded models.Service
	require.NoError(t, db.First(&loaded, "id = ?", svc.ID).Error)
	assert.Equal(t, models.JSONList[types.ObjectID]{leadID}, loaded.Leads)
	assert.NotNil(t, loaded.Clients)
	assert.Empty(t, loaded.Clients)

	blog := &models.Blog{
		Author:    types.NewObjectID(),
		Title:     "Launch notes",
		Thumbnail: "https://h/b/images/1-a.png",
		ContentBlocks: models.JSONList[models.ContentBlock]{
			{Title: "Intro", Details: "Twenty characters or more", Image: "https://h/b/images/2-b.png", List: []string{"x"}},
			{Title: "Outro", Details: "Twenty characters or more"},
		},
		Tags: models.JSONList[string]{"news"},
	}
	require.NoError(t, db.Create(blog).Error)

	var b models.Blog
	require.NoError(t, db.First(&b, "id = ?", blog.ID).Error)
	assert.Equal(t, []string{"https://h/b/images/1-a.png", "https://h/b/images/2-b.png"}, b.Assets())
	assert.Equal(t, "Intro", b.ContentBlocks[0].Title)

	lead := &models.Lead{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"}
	require.NoError(t, db.Create(lead).Error)
	var l models.Lead
	require.NoError(t, db.First(&l, "id = ?", lead.ID).Error)
	assert.Nil(t, l.Service)
	assert.Nil(t, l.Owner)
}

func TestJSONListHelpers(t *testing.T) {
	a, b := types.NewObjectID(), types.NewObjectID()
	list := models.JSONList[types.ObjectID]{a, b, a}
	assert.True(t, models.Contains(list, b))
	assert.Equal(t, models.JSONList[types.ObjectID]{b}, models.Without(list, a))

	var empty models.JSONList[string]
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestUniqueIndexesRejectDuplicates(t *testing.T) {
	db, err := OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.Create(&models.Service{Name: "Web Design"}).Error)
	err = db.Create(&models.Service{Name: "Web Design"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, db.Create(&models.Lead{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya"}).Error)
	err = db.Create(&models.Lead{Fullname: "Janet Doe", Email: "jane@x.com", Country: "Kenya"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
