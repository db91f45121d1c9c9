package cache

import (
	"time"

	"github.com/llm-dev-ops/policy-engine/pkg/policy"
)

// lruEntry is a doubly-linked list node, adapted from the donor's
// ResultCache.lruEntry with an expiry stamp added for TTL eviction.
type lruEntry struct {
	key      Fingerprint
	decision policy.Decision
	expires  time.Time
	prev     *lruEntry
	next     *lruEntry
}

// lruList is a bounded, TTL-aware LRU cache of Decisions keyed by
// Fingerprint. It is the storage half of Cache; fingerprint computation
// and hit/miss telemetry live one layer up.
type lruList struct {
	entries map[Fingerprint]*lruEntry
	head    *lruEntry
	tail    *lruEntry
	maxSize int
	ttl     time.Duration
}

func newLRUList(maxSize int, ttl time.Duration) *lruList {
	return &lruList{
		entries: make(map[Fingerprint]*lruEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// get returns the cached decision for key, promoting it to the head.
// Expired entries are evicted on access and reported as a miss (§4.4
// cache invariant: an expired decision must never be returned).
func (l *lruList) get(key Fingerprint, now time.Time) (policy.Decision, bool) {
	e, ok := l.entries[key]
	if !ok {
		return policy.Decision{}, false
	}
	if l.ttl > 0 && now.After(e.expires) {
		l.removeLocked(e)
		return policy.Decision{}, false
	}
	l.moveToHeadLocked(e)
	return e.decision.Clone(), true
}

// put stores decision under key, evicting the least-recently-used entry
// if the cache is at capacity. decision is cloned on the way in so a
// caller mutating their copy afterward cannot corrupt the cached value.
func (l *lruList) put(key Fingerprint, decision policy.Decision, now time.Time) {
	if e, ok := l.entries[key]; ok {
		e.decision = decision.Clone()
		e.expires = l.expiryFor(now)
		l.moveToHeadLocked(e)
		return
	}

	if l.maxSize > 0 && len(l.entries) >= l.maxSize {
		l.evictTailLocked()
	}

	e := &lruEntry{key: key, decision: decision.Clone(), expires: l.expiryFor(now)}
	l.entries[key] = e
	l.pushHeadLocked(e)
}

func (l *lruList) expiryFor(now time.Time) time.Time {
	if l.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(l.ttl)
}

func (l *lruList) clear() {
	l.entries = make(map[Fingerprint]*lruEntry, l.maxSize)
	l.head = nil
	l.tail = nil
}

func (l *lruList) size() int {
	return len(l.entries)
}

func (l *lruList) moveToHeadLocked(e *lruEntry) {
	if l.head == e {
		return
	}
	l.unlinkLocked(e)
	l.pushHeadLocked(e)
}

func (l *lruList) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

func (l *lruList) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (l *lruList) removeLocked(e *lruEntry) {
	delete(l.entries, e.key)
	l.unlinkLocked(e)
}

func (l *lruList) evictTailLocked() {
	if l.tail == nil {
		return
	}
	l.removeLocked(l.tail)
}
