package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// Op names one Bucket method, used to inject failures into MemoryBucket.
type Op string

const (
	OpPut        Op = "put"
	OpMakePublic Op = "makePublic"
	OpDelete     Op = "delete"
	OpExists     Op = "exists"
	OpList       Op = "list"
	OpOpen       Op = "open"
)

type memoryObject struct {
	info        ObjectInfo
	data        []byte
	contentType string
	public      bool
}

// MemoryBucket keeps objects in process memory. It backs STORAGE_DRIVER=memory and the
// tests, which use Fail to simulate bucket outages.
type MemoryBucket struct {
	mu   sync.RWMutex
	name string
	objs map[string]memoryObject
	now  func() time.Time

	faultMu sync.Mutex
	faults  map[Op]error
	grace   map[Op]int
}

// NewMemoryBucket returns an empty bucket with the given name.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:   name,
		objs:   make(map[string]memoryObject),
		now:    func() time.Time { return time.Now().UTC() },
		faults: make(map[Op]error),
		grace:  make(map[Op]int),
	}
}

// Fail makes every later call of op return err. A nil err clears the fault.
func (b *MemoryBucket) Fail(op Op, err error) {
	b.FailAfter(op, 0, err)
}

// FailAfter lets the next n calls of op succeed and fails every call after them with err.
func (b *MemoryBucket) FailAfter(op Op, n int, err error) {
	b.faultMu.Lock()
	defer b.faultMu.Unlock()
	if err == nil {
		delete(b.faults, op)
		delete(b.grace, op)
		return
	}
	b.faults[op] = err
	b.grace[op] = n
}

func (b *MemoryBucket) fault(op Op) error {
	b.faultMu.Lock()
	defer b.faultMu.Unlock()
	err, ok := b.faults[op]
	if !ok {
		return nil
	}
	if b.grace[op] > 0 {
		b.grace[op]--
		return nil
	}
	return err
}

func (b *MemoryBucket) Name() string { return b.name }

func (b *MemoryBucket) Put(_ context.Context, key string, body []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fault(OpPut); err != nil {
		return err
	}
	data := make([]byte, len(body))
	copy(data, body)
	b.objs[key] = memoryObject{
		info:        ObjectInfo{Key: key, Size: int64(len(data)), CreatedAt: b.now()},
		data:        data,
		contentType: contentType,
	}
	return nil
}

func (b *MemoryBucket) MakePublic(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fault(OpMakePublic); err != nil {
		return err
	}
	obj, ok := b.objs[key]
	if !ok {
		return types.NotFoundError("object %s not found", key)
	}
	obj.public = true
	b.objs[key] = obj
	return nil
}

// IsPublic reports whether MakePublic succeeded for key.
func (b *MemoryBucket) IsPublic(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.objs[key].public
}

func (b *MemoryBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fault(OpDelete); err != nil {
		return err
	}
	if _, ok := b.objs[key]; !ok {
		return types.NotFoundError("object %s not found", key)
	}
	delete(b.objs, key)
	return nil
}

func (b *MemoryBucket) Exists(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.fault(OpExists); err != nil {
		return false, err
	}
	_, ok := b.objs[key]
	return ok, nil
}

func (b *MemoryBucket) List(_ context.Context) ([]ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.fault(OpList); err != nil {
		return nil, err
	}
	infos := make([]ObjectInfo, 0, len(b.objs))
	for _, obj := range b.objs {
		infos = append(infos, obj.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (b *MemoryBucket) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.fault(OpOpen); err != nil {
		return nil, err
	}
	obj, ok := b.objs[key]
	if !ok {
		return nil, types.NotFoundError("object %s not found", key)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}
