package blob

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const historySuffix = ".log"

// FileBucket stores blobs as files under a base directory. The fingerprint
// check and the write happen under a process-local mutex; writers in other
// processes are not coordinated.
type FileBucket struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// NewFileBucket ensures the base directory exists.
func NewFileBucket(baseDir string) (*FileBucket, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &FileBucket{baseDir: baseDir, now: time.Now}, nil
}

func (b *FileBucket) Get(_ context.Context, path string) (Object, error) {
	full, err := b.resolve(path)
	if err != nil {
		return Object{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("read blob %s: %w", path, err)
	}
	return Object{Data: data, Fingerprint: Fingerprint(data)}, nil
}

func (b *FileBucket) Put(_ context.Context, path string, data []byte, expected, message string) (string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := os.ReadFile(full)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if expected != "" {
			return "", ErrFingerprintMismatch
		}
	case err != nil:
		return "", fmt.Errorf("read blob %s: %w", path, err)
	case Fingerprint(current) != expected:
		return "", ErrFingerprintMismatch
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write blob %s: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit blob %s: %w", path, err)
	}

	fp := Fingerprint(data)
	if err := b.appendHistory(full, Commit{Message: message, Fingerprint: fp, At: b.now().UTC()}); err != nil {
		return "", err
	}
	return fp, nil
}

func (b *FileBucket) History(_ context.Context, path string, limit int) ([]Commit, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full + historySuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open blob history: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var commits []Commit
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var c Commit
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			continue
		}
		commits = append([]Commit{c}, commits...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blob history: %w", err)
	}
	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}
	return commits, nil
}

func (b *FileBucket) appendHistory(full string, c Commit) error {
	line, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode blob commit: %w", err)
	}
	f, err := os.OpenFile(full+historySuffix, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open blob history: %w", err)
	}
	defer f.Close() //nolint:errcheck
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append blob history: %w", err)
	}
	return nil
}

func (b *FileBucket) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" || strings.HasSuffix(clean, historySuffix) {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(b.baseDir, clean), nil
}
