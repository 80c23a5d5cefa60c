package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopdeck/shopdeck-backend/pkg/redis"
)

// Some payment channels truncate the account-reference field to 6-12
// characters, too short for a full signed reference. ShortCodeStore maps an
// opaque fixed-length code to the full reference for the draft's lifetime.
type ShortCodeStore struct {
	kv     redis.KVStore
	length int
	ttl    time.Duration
}

// Charset avoids characters customers confuse when keying codes by hand.
const shortCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const shortCodeMaxAttempts = 5

// NewShortCodeStore builds a store over the shared redis client.
func NewShortCodeStore(kv redis.KVStore, length int, ttl time.Duration) (*ShortCodeStore, error) {
	if kv == nil {
		return nil, errors.New("kv store is required")
	}
	if length < 6 || length > 12 {
		return nil, fmt.Errorf("short code length %d outside provider limits", length)
	}
	if ttl <= 0 {
		return nil, errors.New("short code ttl must be positive")
	}
	return &ShortCodeStore{kv: kv, length: length, ttl: ttl}, nil
}

// Create allocates a fresh code for the full reference. SetNX guards against
// the (unlikely) collision with a live code.
func (s *ShortCodeStore) Create(ctx context.Context, fullRef string) (string, error) {
	if strings.TrimSpace(fullRef) == "" {
		return "", errors.New("reference is required")
	}
	for attempt := 0; attempt < shortCodeMaxAttempts; attempt++ {
		code := randomFromAlphabet(shortCodeAlphabet, s.length)
		ok, err := s.kv.SetNX(ctx, redis.ShortCodeKey(code), fullRef, s.ttl)
		if err != nil {
			return "", fmt.Errorf("store short code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", errors.New("short code space exhausted")
}

// Resolve returns the full reference for a code, or the input unchanged when
// no alias exists (lookup-or-passthrough: callers may already hold a full
// reference).
func (s *ShortCodeStore) Resolve(ctx context.Context, code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return code, nil
	}
	full, err := s.kv.Get(ctx, redis.ShortCodeKey(trimmed))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return code, nil
		}
		return "", fmt.Errorf("resolve short code: %w", err)
	}
	return full, nil
}

func randomFromAlphabet(alphabet string, n int) string {
	raw := randomBase36(n)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = alphabet[int(raw[i])%len(alphabet)]
	}
	return string(out)
}
