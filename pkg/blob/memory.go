package blob

import (
	"context"
	"sync"
	"time"
)

// MemoryBucket keeps blobs in process memory. It backs the "memory" store and
// tests; nothing survives a restart.
type MemoryBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	commits map[string][]Commit
	now     func() time.Time
}

// NewMemoryBucket constructs an empty in-memory bucket.
func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{
		objects: make(map[string][]byte),
		commits: make(map[string][]Commit),
		now:     time.Now,
	}
}

func (b *MemoryBucket) Get(_ context.Context, path string) (Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return Object{}, ErrNotFound
	}
	cp := append([]byte(nil), data...)
	return Object{Data: cp, Fingerprint: Fingerprint(cp)}, nil
}

func (b *MemoryBucket) Put(_ context.Context, path string, data []byte, expected, message string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, exists := b.objects[path]
	switch {
	case !exists && expected != "":
		return "", ErrFingerprintMismatch
	case exists && Fingerprint(current) != expected:
		return "", ErrFingerprintMismatch
	}
	b.objects[path] = append([]byte(nil), data...)
	fp := Fingerprint(data)
	b.commits[path] = append([]Commit{{Message: message, Fingerprint: fp, At: b.now().UTC()}}, b.commits[path]...)
	return fp, nil
}

func (b *MemoryBucket) History(_ context.Context, path string, limit int) ([]Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	commits := b.commits[path]
	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}
	return append([]Commit(nil), commits...), nil
}
