package relations

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/database"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/types"
)

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newService(t *testing.T, db *gorm.DB, name string) *models.Service {
	t.Helper()
	svc := &models.Service{Name: name}
	require.NoError(t, db.Create(svc).Error)
	return svc
}

func newLead(t *testing.T, db *gorm.DB, service *types.ObjectID) *models.Lead {
	t.Helper()
	lead := &models.Lead{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya", Service: service}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func reload(t *testing.T, db *gorm.DB, id types.ObjectID) models.Service {
	t.Helper()
	var svc models.Service
	require.NoError(t, db.First(&svc, "id = ?", id).Error)
	return svc
}

func TestLinkWritesBothSides(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	svc := newService(t, db, "Web Design")
	lead := newLead(t, db, nil)

	res := Link(ctx, db, ServiceLeads, svc.ID, lead.ID)
	require.True(t, res.OK(), "%v", res.Err)

	got := reload(t, db, svc.ID)
	assert.Equal(t, models.JSONList[types.ObjectID]{lead.ID}, got.Leads)
	assert.Equal(t, uint64(2), got.Version)

	var l models.Lead
	require.NoError(t, db.First(&l, "id = ?", lead.ID).Error)
	require.NotNil(t, l.Service)
	assert.Equal(t, svc.ID, *l.Service)

	again := Link(ctx, db, ServiceLeads, svc.ID, lead.ID)
	assert.True(t, again.OK())
	assert.Len(t, reload(t, db, svc.ID).Leads, 1)
}

func TestLinkMissingParentReportsPrimaryOnly(t *testing.T) {
	db := setup(t)
	lead := newLead(t, db, nil)

	res := Link(context.Background(), db, ServiceLeads, types.NewObjectID(), lead.ID)
	assert.True(t, res.PrimaryOK)
	assert.False(t, res.DependentOK)
	assert.True(t, types.IsKind(res.Err, types.KindNotFound))

	dangling, err := Check(context.Background(), db, ServiceLeads)
	require.NoError(t, err)
	require.Len(t, dangling, 1)
	assert.Equal(t, ReasonMissingParent, dangling[0].Reason)
	assert.Equal(t, lead.ID, dangling[0].Child)
}

func TestUnlinkAfterChildDeleted(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	svc := newService(t, db, "Web Design")
	lead := newLead(t, db, nil)
	require.True(t, Link(ctx, db, ServiceLeads, svc.ID, lead.ID).OK())

	require.NoError(t, db.Delete(&models.Lead{}, "id = ?", lead.ID).Error)
	dangling, err := Check(ctx, db, ServiceLeads)
	require.NoError(t, err)
	require.Len(t, dangling, 1)
	assert.Equal(t, ReasonMissingChild, dangling[0].Reason)

	res := Unlink(ctx, db, ServiceLeads, svc.ID, lead.ID)
	require.True(t, res.OK())
	assert.Empty(t, reload(t, db, svc.ID).Leads)

	dangling, err = Check(ctx, db, ServiceLeads)
	require.NoError(t, err)
	assert.Empty(t, dangling)
}

func TestMoveBetweenParents(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	a := newService(t, db, "Web Design")
	b := newService(t, db, "Hosting")
	lead := newLead(t, db, nil)
	require.True(t, Link(ctx, db, ServiceLeads, a.ID, lead.ID).OK())

	res := Move(ctx, db, ServiceLeads, &a.ID, &b.ID, lead.ID)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Empty(t, reload(t, db, a.ID).Leads)
	assert.Equal(t, models.JSONList[types.ObjectID]{lead.ID}, reload(t, db, b.ID).Leads)

	res = Move(ctx, db, ServiceLeads, &b.ID, nil, lead.ID)
	require.True(t, res.OK())
	assert.Empty(t, reload(t, db, b.ID).Leads)

	var l models.Lead
	require.NoError(t, db.First(&l, "id = ?", lead.ID).Error)
	assert.Nil(t, l.Service)

	assert.True(t, Move(ctx, db, ServiceLeads, nil, nil, lead.ID).OK())
}

func TestCheckWrongParent(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	a := newService(t, db, "Web Design")
	b := newService(t, db, "Hosting")
	lead := newLead(t, db, &b.ID)
	require.NoError(t, db.Model(a).Update("leads", models.JSONList[types.ObjectID]{lead.ID}).Error)

	dangling, err := Check(ctx, db, ServiceLeads)
	require.NoError(t, err)
	reasons := map[string]bool{}
	for _, d := range dangling {
		reasons[d.Reason] = true
	}
	assert.True(t, reasons[ReasonWrongParent])
	assert.True(t, reasons[ReasonNotListed])
}
