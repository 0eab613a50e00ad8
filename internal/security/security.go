// Package security 提供 API 密钥校验和请求频率限制
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidAPIKey  = errors.New("无效的API密钥")
	ErrDisabledAPIKey = errors.New("API密钥已停用")
)

// 权限范围；write 包含 read
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// APIKey API密钥，只保存哈希
type APIKey struct {
	Name    string `json:"name"`
	Hash    string `json:"-"`
	Scope   string `json:"scope"`
	Enabled bool   `json:"enabled"`
}

// HasScope 检查密钥是否有某权限
func (k *APIKey) HasScope(scope string) bool {
	switch k.Scope {
	case ScopeWrite:
		return scope == ScopeWrite || scope == ScopeRead
	case ScopeRead:
		return scope == ScopeRead
	default:
		return false
	}
}

// APIKeyManager API密钥管理器
type APIKeyManager struct {
	keys map[string]*APIKey // hash -> APIKey
	mu   sync.RWMutex
}

// NewAPIKeyManager 创建密钥管理器，keys 为 明文密钥 -> 权限
func NewAPIKeyManager(keys map[string]string) *APIKeyManager {
	m := &APIKeyManager{keys: make(map[string]*APIKey)}
	for key, scope := range keys {
		m.Register(key, scope)
	}
	return m
}

// Register 登记密钥，名称取密钥前缀便于日志定位
func (m *APIKeyManager) Register(key, scope string) *APIKey {
	apiKey := &APIKey{
		Name:    maskKey(key),
		Hash:    HashKey(key),
		Scope:   scope,
		Enabled: true,
	}
	m.mu.Lock()
	m.keys[apiKey.Hash] = apiKey
	m.mu.Unlock()
	return apiKey
}

// Enabled 是否登记了任何密钥
func (m *APIKeyManager) Enabled() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys) > 0
}

// Validate 验证密钥
func (m *APIKeyManager) Validate(key string) (*APIKey, error) {
	m.mu.RLock()
	apiKey, exists := m.keys[HashKey(key)]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrInvalidAPIKey
	}
	if !apiKey.Enabled {
		return nil, ErrDisabledAPIKey
	}
	return apiKey, nil
}

// Revoke 停用密钥
func (m *APIKeyManager) Revoke(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if apiKey, exists := m.keys[HashKey(key)]; exists {
		apiKey.Enabled = false
	}
}

// RateLimiter 滑动窗口请求频率限制器
type RateLimiter struct {
	requests map[string][]time.Time // key -> 窗口内的请求时间
	limit    int                    // 时间窗口内最大请求数
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
}

// NewRateLimiter 创建频率限制器，不再使用时调用 Stop
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow 检查是否允许请求，允许时记录本次请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := prune(rl.requests[key], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// cleanup 定期清理过期数据
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			windowStart := rl.now().Add(-rl.window)
			for key, reqs := range rl.requests {
				if valid := prune(reqs, windowStart); len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

// prune 丢弃窗口开始之前的请求，reqs 按时间递增
func prune(reqs []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(reqs) && !reqs[i].After(windowStart) {
		i++
	}
	return reqs[i:]
}

// ExtractAPIKey 从请求中提取API密钥
func ExtractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// HashKey 密钥的 SHA-256 十六进制摘要
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
