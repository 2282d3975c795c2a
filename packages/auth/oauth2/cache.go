package oauth2

import (
	"sync"
	"time"
)

// TokenCache holds tokens by provider key. Safe for concurrent use.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]*Token)}
}

// Get returns the token stored under key, or nil.
func (c *TokenCache) Get(key string) *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[key]
}

// Valid returns the token under key if it is still usable at now.
func (c *TokenCache) Valid(key string, now time.Time) *Token {
	if t := c.Get(key); t != nil && !t.expiredAt(now) {
		return t
	}
	return nil
}

func (c *TokenCache) Set(key string, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
}

func (c *TokenCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}

func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.tokens)
}
