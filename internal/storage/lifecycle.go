// lifecycle.go
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

package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// File is an upload held in memory, already accepted by ValidateUpload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Lifecycle moves uploads between request memory and the bucket and derives the
// public URL stored on documents.
//
// Stored URLs and bucket contents are never updated atomically. Two concurrent Replace
// calls on one asset slot may interleave so that an earlier remove deletes the object the
// later write left in the document.
type Lifecycle struct {
	bucket Bucket
	host   string
	log    zerolog.Logger
	now    func() time.Time
}

// NewLifecycle binds a bucket to the public host used in URLs.
func NewLifecycle(bucket Bucket, host string, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		bucket: bucket,
		host:   host,
		log:    log.With().Str("component", "storage").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the upload timestamp source.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// Bucket exposes the underlying store for health probes and tools.
func (l *Lifecycle) Bucket() Bucket {
	return l.bucket
}

// URL is the public address of key: https://<host>/<bucket>/<key>.
func (l *Lifecycle) URL(key string) string {
	return fmt.Sprintf("https://%s/%s/%s", l.host, l.bucket.Name(), key)
}

// Store writes f under <folder>/<epoch-ms>-<name>, makes it public and returns its URL.
// When the object cannot be made public it is deleted again and the call fails.
func (l *Lifecycle) Store(ctx context.Context, f *File) (string, error) {
	if f == nil || f.Data == nil {
		observe(OpPut, errMissingBuffer)
		return "", types.StorageError("No file provided", errMissingBuffer)
	}
	name := baseName(f.Name)
	if name == "" {
		observe(OpPut, errMissingName)
		return "", types.StorageError("No file name provided", errMissingName)
	}

	key := fmt.Sprintf("%s/%d-%s", FolderFor(name), l.now().UnixMilli(), name)

	err := l.bucket.Put(ctx, key, f.Data, f.ContentType)
	observe(OpPut, err)
	if err != nil {
		return "", types.StorageError(fmt.Sprintf("Unable to upload %s", name), err)
	}

	err = l.bucket.MakePublic(ctx, key)
	observe(OpMakePublic, err)
	if err != nil {
		if delErr := l.bucket.Delete(ctx, key); delErr != nil {
			l.log.Warn().Err(delErr).Str("key", key).Msg("failed to delete private object after makePublic failure")
		}
		return "", types.StorageError(fmt.Sprintf("Failed to make %s public", name), err)
	}

	l.log.Debug().Str("key", key).Int("size", len(f.Data)).Msg("stored object")
	return l.URL(key), nil
}

// Replace stores f and then removes the object old points at. A failed store leaves the
// old object untouched. A failed remove is logged and the new URL is still returned.
// An empty old behaves as Store.
func (l *Lifecycle) Replace(ctx context.Context, old string, f *File) (string, error) {
	url, err := l.Store(ctx, f)
	if err != nil {
		return "", err
	}
	if old == "" || ResolveKey(old) == ResolveKey(url) {
		return url, nil
	}
	if err := l.Remove(ctx, old); err != nil {
		l.log.Warn().Err(err).Str("old", old).Str("new", url).Msg("replace kept the new object but could not remove the old one")
	}
	return url, nil
}

// Remove deletes the object a URL, key or bare file name refers to.
func (l *Lifecycle) Remove(ctx context.Context, ref string) error {
	key := ResolveKey(ref)
	if key == "" {
		return types.StorageError("No filename provided", errMissingName)
	}
	err := l.bucket.Delete(ctx, key)
	observe(OpDelete, err)
	if err != nil {
		return types.StorageError(fmt.Sprintf("Unable to delete %s", key), err)
	}
	return nil
}

// RemoveQuietly is Remove for cleanup paths: failures are logged, never returned.
func (l *Lifecycle) RemoveQuietly(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := l.Remove(ctx, ref); err != nil {
			l.log.Warn().Err(err).Str("ref", ref).Msg("best effort object removal failed")
		}
	}
}

// Fetch checks that the object exists before opening it. Errors while streaming surface
// from the returned reader.
func (l *Lifecycle) Fetch(ctx context.Context, ref string) (string, io.ReadCloser, error) {
	key := ResolveKey(ref)
	if key == "" {
		return "", nil, types.StorageError("No filename provided", errMissingName)
	}
	ok, err := l.bucket.Exists(ctx, key)
	observe(OpExists, err)
	if err != nil {
		return "", nil, types.StorageError(fmt.Sprintf("Unable to check %s", key), err)
	}
	if !ok {
		return "", nil, types.StorageError(fmt.Sprintf("File %s not found", baseName(key)),
			types.NotFoundError("object %s not found", key))
	}
	rc, err := l.bucket.Open(ctx, key)
	observe(OpOpen, err)
	if err != nil {
		return "", nil, types.StorageError(fmt.Sprintf("Unable to read %s", key), err)
	}
	return key, rc, nil
}

// Usage lists the bucket and aggregates it per folder.
func (l *Lifecycle) Usage(ctx context.Context) (UsageReport, error) {
	objects, err := l.bucket.List(ctx)
	observe(OpList, err)
	if err != nil {
		return nil, types.StorageError("Unable to list storage", err)
	}
	return Aggregate(objects, l.URL), nil
}
