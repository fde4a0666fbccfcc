package state

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
)

type treeDB interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) (bool, error)
	Remove(key []byte) ([]byte, bool, error)
}

// cache holds records read from the tree and the ones written since the
// last flush. Records are JSON encoded under key(k).
type cache[K comparable, V any] struct {
	key     func(K) string
	clone   func(V) V
	entries map[K]V
	removed map[K]struct{}
	dirty   map[K]struct{}
}

func newCache[K comparable, V any](key func(K) string, clone func(V) V) *cache[K, V] {
	return &cache[K, V]{
		key:     key,
		clone:   clone,
		entries: make(map[K]V),
		removed: make(map[K]struct{}),
		dirty:   make(map[K]struct{}),
	}
}

func identity[V any](v V) V { return v }

func (c *cache[K, V]) get(db treeDB, k K) (v V, ok bool, err error) {
	if _, gone := c.removed[k]; gone {
		return
	}
	if v, ok = c.entries[k]; ok {
		return
	}
	val, err := db.Get([]byte(c.key(k)))
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			return
		}
		err = nil
	}
	if val == nil {
		return
	}
	err = json.Unmarshal(val, &v)
	if err != nil {
		return
	}
	c.entries[k] = v
	ok = true
	return
}

func (c *cache[K, V]) set(k K, v V) {
	c.entries[k] = v
	delete(c.removed, k)
	c.dirty[k] = struct{}{}
}

func (c *cache[K, V]) remove(k K) {
	delete(c.entries, k)
	c.removed[k] = struct{}{}
	c.dirty[k] = struct{}{}
}

func (c *cache[K, V]) copy() *cache[K, V] {
	n := newCache[K, V](c.key, c.clone)
	for k, v := range c.entries {
		n.entries[k] = c.clone(v)
	}
	for k := range c.removed {
		n.removed[k] = struct{}{}
	}
	for k := range c.dirty {
		n.dirty[k] = struct{}{}
	}
	return n
}

func (c *cache[K, V]) fresh() *cache[K, V] {
	return newCache[K, V](c.key, c.clone)
}

func (c *cache[K, V]) flush(db treeDB) (err error) {
	if len(c.dirty) == 0 {
		return
	}
	keys := make([]K, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.key(keys[i]) < c.key(keys[j])
	})
	for _, k := range keys {
		key := []byte(c.key(k))
		if _, gone := c.removed[k]; gone {
			_, _, err = db.Remove(key)
			if err != nil {
				return
			}
			continue
		}
		var val []byte
		val, err = json.Marshal(c.entries[k])
		if err != nil {
			return
		}
		_, err = db.Set(key, val)
		if err != nil {
			return
		}
	}
	c.dirty = make(map[K]struct{})
	c.removed = make(map[K]struct{})
	return
}
