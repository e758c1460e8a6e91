package question

import (
	"strings"
	"sync"
)

// CredentialPool rotates generator credentials round-robin.
// Built once from configuration; only the cursor moves afterwards.
type CredentialPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewCredentialPool parses a comma-joined credential list. Blank entries are dropped,
// so an empty or whitespace-only value yields an empty (but usable) pool.
func NewCredentialPool(raw string) *CredentialPool {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return &CredentialPool{keys: keys}
}

// Next returns the credential at the cursor and advances it modulo the pool size.
func (p *CredentialPool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", ErrNoCredentials
	}
	key := p.keys[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.keys)
	return key, nil
}

// Size returns the number of usable credentials.
func (p *CredentialPool) Size() int {
	return len(p.keys)
}

// Empty reports whether the pool has no credentials.
func (p *CredentialPool) Empty() bool {
	return len(p.keys) == 0
}
