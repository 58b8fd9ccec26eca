package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/localnerve/jam-build-crm/internal/database"
	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation/relations"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

func TestWriteUsageGroupsByFolder(t *testing.T) {
	ctx := context.Background()
	bucket := storage.NewMemoryBucket("crm-test")
	require.NoError(t, bucket.Put(ctx, "clients/1-contract.pdf", []byte("12345"), "application/pdf"))
	require.NoError(t, bucket.Put(ctx, "blogs/2-cover.png", []byte("123"), "image/png"))
	require.NoError(t, bucket.Put(ctx, "loose.txt", []byte("1"), "text/plain"))

	var out bytes.Buffer
	require.NoError(t, writeUsage(ctx, &out, storage.NewLifecycle(bucket, "cdn.example.com", zerolog.Nop())))

	var doc struct {
		Bucket    string `yaml:"bucket"`
		TotalSize int64  `yaml:"totalSize"`
		Folders   map[string]struct {
			Size  int64 `yaml:"size"`
			Files []struct {
				Name string `yaml:"name"`
				URL  string `yaml:"url"`
			} `yaml:"files"`
		} `yaml:"folders"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "crm-test", doc.Bucket)
	assert.Equal(t, int64(9), doc.TotalSize)
	require.Contains(t, doc.Folders, "clients")
	assert.Equal(t, int64(5), doc.Folders["clients"].Size)
	assert.Equal(t, "https://cdn.example.com/crm-test/clients/1-contract.pdf", doc.Folders["clients"].Files[0].URL)
	assert.Contains(t, doc.Folders, storage.OthersFolder)
}

func TestWriteLinks(t *testing.T) {
	ctx := context.Background()
	conn, err := database.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(conn) })

	svc := &models.Service{Name: "Web Design"}
	require.NoError(t, conn.Create(svc).Error)

	var out bytes.Buffer
	n, err := writeLinks(ctx, &out, conn)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, out.String(), "no dangling references")

	lead := &models.Lead{Fullname: "Jane Doe", Email: "jane@x.com", Country: "Kenya", Service: types.NewObjectID().Ptr()}
	require.NoError(t, conn.Create(lead).Error)

	out.Reset()
	n, err = writeLinks(ctx, &out, conn)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "service-leads")
	assert.Contains(t, out.String(), relations.ReasonMissingParent)
	assert.Contains(t, out.String(), lead.ID.String())
}
