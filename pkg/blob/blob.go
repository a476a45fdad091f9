// Package blob stores whole-object blobs addressed by path, overwritten
// wholesale on each mutation with an optimistic content-fingerprint check.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no blob exists at the path.
	ErrNotFound = errors.New("blob: not found")
	// ErrFingerprintMismatch is returned by Put when the stored blob changed
	// since the caller read it.
	ErrFingerprintMismatch = errors.New("blob: fingerprint mismatch")
)

// Object is a blob together with the fingerprint of its content.
type Object struct {
	Data        []byte
	Fingerprint string
}

// Commit is one write recorded against a path.
type Commit struct {
	Message     string    `json:"message"`
	Fingerprint string    `json:"fingerprint"`
	At          time.Time `json:"at"`
}

// Bucket is the blob store contract used by the blob-backed repositories.
type Bucket interface {
	// Get returns the blob at path or ErrNotFound.
	Get(ctx context.Context, path string) (Object, error)
	// Put overwrites path when its current fingerprint equals expected. An
	// empty expected means the blob must not exist yet. The new fingerprint is
	// returned.
	Put(ctx context.Context, path string, data []byte, expected, message string) (string, error)
	// History lists the most recent commits for path, newest first.
	History(ctx context.Context, path string, limit int) ([]Commit, error)
}

// Fingerprint returns the content fingerprint used for optimistic overwrite.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
