// Package imagepool caches generated image URLs so leads in the same niche
// reuse images instead of paying for a fresh generation each time.
package imagepool

import (
	"container/list"
	"strings"
	"sync"
)

const defaultCapacity = 32

// Pool is a fixed-size LRU of image URLs keyed by prompt subject.
type Pool struct {
	mu    sync.Mutex
	cap   int
	order *list.List
	items map[string]*list.Element
}

type entry struct {
	key string
	url string
}

// New creates a pool holding at most capacity entries. Non-positive capacity
// uses the default of 32.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Pool{
		cap:   capacity,
		order: list.New(),
		items: make(map[string]*list.Element, capacity),
	}
}

// Key builds a pool key from a niche and an image subject.
func Key(niche, subject string) string {
	return strings.ToLower(strings.TrimSpace(niche)) + "|" + strings.ToLower(strings.TrimSpace(subject))
}

// Get returns the cached URL for key and marks it recently used.
func (p *Pool) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.items[key]
	if !ok {
		return "", false
	}
	p.order.MoveToFront(el)
	return el.Value.(*entry).url, true
}

// Add stores a URL under key, evicting the least recently used entry when
// the pool is full.
func (p *Pool) Add(key, url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.items[key]; ok {
		el.Value.(*entry).url = url
		p.order.MoveToFront(el)
		return
	}

	if p.order.Len() >= p.cap {
		oldest := p.order.Back()
		if oldest != nil {
			p.order.Remove(oldest)
			delete(p.items, oldest.Value.(*entry).key)
		}
	}
	p.items[key] = p.order.PushFront(&entry{key: key, url: url})
}

// Len returns the number of cached entries.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}
