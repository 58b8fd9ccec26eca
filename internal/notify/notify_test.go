package notify

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/localnerve/jam-build-crm/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Notification{}))
	return db
}

func entry(details string, by types.ObjectID) Entry {
	return Entry{Details: details, Type: TypeCreate, Ref: LeadRef(types.NewObjectID()), CreatedBy: by}
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("Lead")
	require.NoError(t, err)
	assert.Equal(t, DomainLead, d)

	_, err = ParseDomain("Project")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindValidation))

	_, err = DomainRef("Nope")
	assert.Error(t, err)
}

func TestDomainScanRejectsUnknown(t *testing.T) {
	var d Domain
	require.NoError(t, d.Scan("Service"))
	assert.Equal(t, DomainService, d)
	assert.Error(t, d.Scan("Project"))
	assert.Error(t, d.Scan(42))

	_, err := Domain("Project").Value()
	assert.Error(t, err)
}

func TestTypeScan(t *testing.T) {
	var ty Type
	require.NoError(t, ty.Scan([]byte("convert")))
	assert.Equal(t, TypeConvert, ty)
	assert.Error(t, ty.Scan("archive"))
}

func TestRetentionPolicy(t *testing.T) {
	p := RetentionPolicy{Ceiling: 1000, Window: 30 * 24 * time.Hour}
	assert.False(t, p.ShouldSweep(999))
	assert.True(t, p.ShouldSweep(1000))
	assert.True(t, p.ShouldSweep(1001))

	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), p.Cutoff(now))

	assert.False(t, RetentionPolicy{}.ShouldSweep(5))
}

func TestEntryValidateBatchesMessages(t *testing.T) {
	msgs := Entry{Details: "hi"}.Validate()
	assert.Len(t, msgs, 4)

	long := Entry{Details: strings.Repeat("x", 201), Type: TypeEdit, Ref: FileRef(), CreatedBy: types.NewObjectID()}
	assert.Len(t, long.Validate(), 1)
}

func TestAppendSweepsWhenCeilingReached(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := types.NewObjectID()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	sink := NewGormSink(db, RetentionPolicy{Ceiling: 3, Window: 30 * 24 * time.Hour}, zerolog.Nop())

	sink.WithClock(func() time.Time { return now.AddDate(0, 0, -40) })
	_, err := sink.Append(ctx, entry("old lead one", owner))
	require.NoError(t, err)
	_, err = sink.Append(ctx, entry("old lead two", owner))
	require.NoError(t, err)
	sink.WithClock(func() time.Time { return now.AddDate(0, 0, -1) })
	_, err = sink.Append(ctx, entry("recent lead", owner))
	require.NoError(t, err)

	sink.WithClock(func() time.Time { return now })
	id, err := sink.Append(ctx, entry("newest lead", owner))
	require.NoError(t, err)
	assert.True(t, types.IsValidObjectID(id.String()))

	var rows []Notification
	require.NoError(t, db.Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "recent lead", rows[0].Details)
	assert.Equal(t, "newest lead", rows[1].Details)
	assert.Equal(t, DomainLead, rows[1].RelatedModel)
}

func TestAppendBelowCeilingKeepsOldRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := types.NewObjectID()
	sink := NewGormSink(db, RetentionPolicy{Ceiling: 10, Window: time.Hour}, zerolog.Nop()).
		WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })

	_, err := sink.Append(ctx, entry("ancient entry", owner))
	require.NoError(t, err)
	sink.WithClock(time.Now)
	_, err = sink.Append(ctx, Entry{Details: "bulk delete", Type: TypeDelete, Ref: FileRef(), CreatedBy: owner})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var file Notification
	require.NoError(t, db.Where("related_model = ?", "File").First(&file).Error)
	assert.Nil(t, file.RelatedModelID)
	assert.Equal(t, DomainFile, file.Ref().Domain())
}

func TestAppendRejectsInvalidEntry(t *testing.T) {
	sink := NewGormSink(newTestDB(t), RetentionPolicy{Ceiling: 10}, zerolog.Nop())
	_, err := sink.Append(context.Background(), Entry{Details: "x"})
	var ce *types.CustomError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.Code)
	assert.Len(t, ce.Messages, 4)
}

func TestSweepNow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := types.NewObjectID()
	sink := NewGormSink(db, RetentionPolicy{Ceiling: 1000, Window: 24 * time.Hour}, zerolog.Nop()).
		WithClock(func() time.Time { return time.Now().Add(-72 * time.Hour) })
	_, err := sink.Append(ctx, entry("stale entry", owner))
	require.NoError(t, err)

	sink.WithClock(time.Now)
	deleted, err := sink.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestFeedOwnership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice, bob := types.NewObjectID(), types.NewObjectID()
	sink := NewGormSink(db, RetentionPolicy{Ceiling: 100, Window: time.Hour}, zerolog.Nop())
	feed := NewFeed(db)

	a1, err := sink.Append(ctx, entry("alice one", alice))
	require.NoError(t, err)
	a2, err := sink.Append(ctx, entry("alice two", alice))
	require.NoError(t, err)
	b1, err := sink.Append(ctx, entry("bob one", bob))
	require.NoError(t, err)

	list, err := feed.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := feed.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = feed.Get(ctx, alice, b1)
	assert.True(t, types.IsKind(err, types.KindAuthorization))
	_, err = feed.Get(ctx, alice, types.NewObjectID())
	assert.True(t, types.IsKind(err, types.KindNotFound))

	n, err := feed.MarkRead(ctx, alice, a1)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	_, err = feed.DeleteMany(ctx, alice, []types.ObjectID{a1, b1})
	assert.True(t, types.IsKind(err, types.KindAuthorization))
	_, err = feed.DeleteMany(ctx, alice, []types.ObjectID{a1, types.NewObjectID()})
	assert.True(t, types.IsKind(err, types.KindNotFound))

	all, err = feed.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := feed.DeleteMany(ctx, alice, []types.ObjectID{a1, a2, a1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	require.NoError(t, feed.DeleteOne(ctx, bob, b1))
	all, err = feed.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
