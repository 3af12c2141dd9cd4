package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// ErrNoPendingQuiz means the player has nothing to answer.
var ErrNoPendingQuiz = errors.New("no pending quiz")

// Pending is a generated quiz waiting for the player's answer.
type Pending struct {
	ID        string    `json:"id"`
	Item      string    `json:"item"`
	ImageHash string    `json:"image_hash"`
	ImageName string    `json:"image_name,omitempty"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps at most one pending quiz per player; saving replaces the previous one.
type SessionStore interface {
	Save(ctx context.Context, username string, p Pending, ttl time.Duration) error
	Peek(ctx context.Context, username string) (Pending, error)
	// Consume returns and removes the pending quiz in one step.
	Consume(ctx context.Context, username string) (Pending, error)
}

const pendingKeyPrefix = "quiz:pending:"

// RedisSessionStore stores pending quizzes as JSON with a TTL.
type RedisSessionStore struct {
	rc *redis.Client
}

func NewRedisSessionStore(rc *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rc: rc}
}

func (s *RedisSessionStore) Save(ctx context.Context, username string, p Pending, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending quiz: %w", err)
	}
	return s.rc.Set(ctx, pendingKeyPrefix+username, data, ttl).Err()
}

func (s *RedisSessionStore) Peek(ctx context.Context, username string) (Pending, error) {
	raw, err := s.rc.Get(ctx, pendingKeyPrefix+username).Bytes()
	return decodePending(raw, err)
}

func (s *RedisSessionStore) Consume(ctx context.Context, username string) (Pending, error) {
	// GETDEL needs Redis >= 6.2
	raw, err := s.rc.GetDel(ctx, pendingKeyPrefix+username).Bytes()
	return decodePending(raw, err)
}

func decodePending(raw []byte, err error) (Pending, error) {
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrNoPendingQuiz
	}
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pending{}, fmt.Errorf("unmarshal pending quiz: %w", err)
	}
	return p, nil
}

type memoryEntry struct {
	p         Pending
	expiresAt time.Time
}

// MemorySessionStore is the in-process fallback when Redis is not configured.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemorySessionStore) Save(_ context.Context, username string, p Pending, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[username] = memoryEntry{p: p, expiresAt: exp}
	return nil
}

// getLocked drops the entry when it has expired.
func (s *MemorySessionStore) getLocked(username string) (Pending, bool) {
	e, ok := s.entries[username]
	if !ok {
		return Pending{}, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, username)
		return Pending{}, false
	}
	return e.p, true
}

func (s *MemorySessionStore) Peek(_ context.Context, username string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.getLocked(username)
	if !ok {
		return Pending{}, ErrNoPendingQuiz
	}
	return p, nil
}

func (s *MemorySessionStore) Consume(_ context.Context, username string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.getLocked(username)
	if !ok {
		return Pending{}, ErrNoPendingQuiz
	}
	delete(s.entries, username)
	return p, nil
}
