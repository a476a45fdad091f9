package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxHistory = 200

// RedisBucket stores blobs as Redis strings. Put uses WATCH/MULTI so the
// fingerprint comparison and the overwrite are atomic on the server.
type RedisBucket struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisBucket wraps a connected Redis client.
func NewRedisBucket(client *redis.Client, prefix string) *RedisBucket {
	return &RedisBucket{client: client, prefix: prefix, now: time.Now}
}

func (b *RedisBucket) Get(ctx context.Context, path string) (Object, error) {
	data, err := b.client.Get(ctx, b.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("redis get blob %s: %w", path, err)
	}
	return Object{Data: data, Fingerprint: Fingerprint(data)}, nil
}

func (b *RedisBucket) Put(ctx context.Context, path string, data []byte, expected, message string) (string, error) {
	key := b.key(path)
	fp := Fingerprint(data)
	commit, err := json.Marshal(Commit{Message: message, Fingerprint: fp, At: b.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode blob commit: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expected != "" {
				return ErrFingerprintMismatch
			}
		case err != nil:
			return fmt.Errorf("redis get blob %s: %w", path, err)
		case Fingerprint(current) != expected:
			return ErrFingerprintMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.LPush(ctx, b.historyKey(path), commit)
			pipe.LTrim(ctx, b.historyKey(path), 0, maxHistory-1)
			return nil
		})
		return err
	}

	if err := b.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return "", ErrFingerprintMismatch
		}
		if errors.Is(err, ErrFingerprintMismatch) {
			return "", err
		}
		return "", fmt.Errorf("redis put blob %s: %w", path, err)
	}
	return fp, nil
}

func (b *RedisBucket) History(ctx context.Context, path string, limit int) ([]Commit, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := b.client.LRange(ctx, b.historyKey(path), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis blob history %s: %w", path, err)
	}
	commits := make([]Commit, 0, len(raw))
	for _, item := range raw {
		var c Commit
		if err := json.Unmarshal([]byte(item), &c); err != nil {
			continue
		}
		commits = append(commits, c)
	}
	return commits, nil
}

func (b *RedisBucket) key(path string) string {
	return b.prefix + path
}

func (b *RedisBucket) historyKey(path string) string {
	return b.prefix + path + ":log"
}
