package services

import (
	"context"
	"io"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// Files is the storage domain: direct uploads, deletes, downloads and the usage report.
type Files struct {
	base
	files *storage.Lifecycle
	limit int64
}

// Usage lists the bucket grouped by folder.
func (s *Files) Usage(ctx context.Context) (storage.UsageReport, error) {
	return s.files.Usage(ctx)
}

// Upload stores one file and returns its public URL.
func (s *Files) Upload(ctx context.Context, actor *models.User, f *storage.File) (string, *mutation.Trace, error) {
	return mutation.Run(ctx, s.engine, mutation.Op[string]{
		Name: "storage.upload",
		Validate: func() []string {
			if f == nil || f.Data == nil {
				return []string{"No file provided"}
			}
			return storage.ValidateUpload(f.Name, int64(len(f.Data)), s.limit)
		},
		Primary: func(ctx context.Context) (string, error) {
			return s.files.Store(ctx, f)
		},
		Notify: func(string) []notify.Entry {
			return []notify.Entry{{
				Details:   "File was added to storage sucessfully",
				Type:      notify.TypeAdd,
				Ref:       notify.FileRef(),
				CreatedBy: actor.ID,
			}}
		},
	})
}

// Delete removes a stored file by name, URL or key.
func (s *Files) Delete(ctx context.Context, actor *models.User, name string) (*mutation.Trace, error) {
	key := storage.ResolveKey(name)
	_, trace, err := mutation.Run(ctx, s.engine, mutation.Op[string]{
		Name: "storage.delete",
		Validate: mutation.NewSchema().
			Field("filename", name, mutation.Required("File name is required")).
			Validate,
		Load: func(ctx context.Context) error {
			found, err := s.files.Bucket().Exists(ctx, key)
			if err != nil {
				return types.StorageError("Unable to read "+key, err)
			}
			if !found {
				return types.NotFoundError("File not found")
			}
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			return key, s.files.Remove(ctx, key)
		},
		Notify: func(string) []notify.Entry {
			return []notify.Entry{{
				Details:   "File was removed sucessfully",
				Type:      notify.TypeRemove,
				Ref:       notify.FileRef(),
				CreatedBy: actor.ID,
			}}
		},
	})
	return trace, err
}

// Download opens a stored file. The caller closes the reader.
func (s *Files) Download(ctx context.Context, name string) (string, io.ReadCloser, error) {
	if name == "" {
		return "", nil, types.ValidationError("File name is required")
	}
	return s.files.Fetch(ctx, name)
}
