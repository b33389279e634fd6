// Package lru tracks when each key was last accessed, in access order, so the
// least recently used key can be found without scanning.
package lru

import (
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Recency is an ordered map of key to last access time. The order is the
// order of Touch calls, which is the same as timestamp order as long as the
// clock does not go backwards. It is not safe for concurrent use; callers
// hold their own lock.
type Recency struct {
	l *simplelru.LRU[string, time.Time]
}

func New() *Recency {
	// eviction is driven by bytes, not entries, so never let simplelru evict
	// on its own.
	l, err := simplelru.NewLRU[string, time.Time](math.MaxInt, nil)
	if err != nil {
		panic(err)
	}

	return &Recency{l: l}
}

// Touch records an access to key at t, making it the most recently used.
func (r *Recency) Touch(key string, t time.Time) {
	r.l.Add(key, t)
}

// Get returns the last access time of key without changing the order.
func (r *Recency) Get(key string) (time.Time, bool) {
	return r.l.Peek(key)
}

// Remove forgets the key. Returns true if it was present.
func (r *Recency) Remove(key string) bool {
	return r.l.Remove(key)
}

// Oldest returns the least recently used key.
func (r *Recency) Oldest() (string, time.Time, bool) {
	return r.l.GetOldest()
}

// Keys returns every key, least recently used first.
func (r *Recency) Keys() []string {
	return r.l.Keys()
}

func (r *Recency) Len() int {
	return r.l.Len()
}

// Purge forgets every key.
func (r *Recency) Purge() {
	r.l.Purge()
}
