package runtime

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// lockTable hands out exclusive per-account locks. Keys are acquired in
// byte order so two calls over overlapping sets cannot deadlock.
type lockTable struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*lockEntry
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[solana.PublicKey]*lockEntry)}
}

func (t *lockTable) ref(key solana.PublicKey) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		t.locks[key] = e
	}
	e.refs++
	return e
}

func (t *lockTable) unref(key solana.PublicKey, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(t.locks, key)
	}
}

// acquire blocks until every key is held or ctx is done. The returned
// release func is never nil.
func (t *lockTable) acquire(ctx context.Context, keys []solana.PublicKey) (func(), error) {
	keys = sortedUnique(keys)
	held := make([]*lockEntry, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			t.unref(keys[i], held[i])
		}
		held = held[:0]
	}

	for _, k := range keys {
		e := t.ref(k)
		select {
		case e.ch <- struct{}{}:
			held = append(held, e)
		case <-ctx.Done():
			t.unref(k, e)
			release()
			return func() {}, ctx.Err()
		}
	}
	return release, nil
}

func sortedUnique(keys []solana.PublicKey) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(keys))
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
