package intake

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/metaexpert/internal/cache"
)

// ErrSessionNotFound 表示会话不存在或已过期。
var ErrSessionNotFound = errors.New("intake: session not found")

// DefaultSessionTTL 是会话的默认空闲存活时间。
const DefaultSessionTTL = 2 * time.Hour

// janitorInterval 是内存实现清理过期会话的周期。
const janitorInterval = 5 * time.Minute

// sessionKeyPrefix 是 Redis 实现的键前缀。
const sessionKeyPrefix = "intake:session:"

// SessionStore 存取对话会话。实现必须并发安全。
type SessionStore interface {
	// Save 写入会话并重置其 TTL。
	Save(ctx context.Context, sess *Session) error
	// Load 读取会话，不存在或过期时返回 ErrSessionNotFound。
	Load(ctx context.Context, id string) (*Session, error)
	// Delete 删除会话，不存在时不报错。
	Delete(ctx context.Context, id string) error
	// Touch 刷新会话 TTL，不存在时返回 ErrSessionNotFound。
	Touch(ctx context.Context, id string) error
}

// =============================================================================
// 内存实现
// =============================================================================

type memSession struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore 是进程内的会话存储，未配置 Redis 时的缺省选择。
// 会话以 JSON 字节存储，Load 返回独立副本，与 Redis 实现语义一致。
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memSession
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore 创建内存会话存储并启动后台清理。
// ttl 非正数时使用 DefaultSessionTTL。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memSession),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Save 写入会话并重置其 TTL。
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[sess.ID] = memSession{data: data, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Load 读取会话，不存在或过期时返回 ErrSessionNotFound。
func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete 删除会话。
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Touch 刷新会话 TTL。
func (s *MemoryStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok || s.now().After(entry.expiresAt) {
		return ErrSessionNotFound
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.sessions[id] = entry
	return nil
}

// Close 停止后台清理。
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

// =============================================================================
// Redis 实现
// =============================================================================

// RedisStore 把会话存入 Redis，多实例部署时共享。
type RedisStore struct {
	cache *cache.Manager
	ttl   time.Duration
}

// NewRedisStore 基于缓存管理器创建 Redis 会话存储。
// ttl 非正数时使用 DefaultSessionTTL。
func NewRedisStore(manager *cache.Manager, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{cache: manager, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}

// Save 写入会话并重置其 TTL。
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	return s.cache.SetJSON(ctx, s.key(sess.ID), sess, s.ttl)
}

// Load 读取会话，不存在或过期时返回 ErrSessionNotFound。
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.cache.GetJSON(ctx, s.key(id), &sess)
	if cache.IsCacheMiss(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete 删除会话。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.key(id))
}

// Touch 刷新会话 TTL。
func (s *RedisStore) Touch(ctx context.Context, id string) error {
	count, err := s.cache.Exists(ctx, s.key(id))
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrSessionNotFound
	}
	return s.cache.Expire(ctx, s.key(id), s.ttl)
}
