package pipeline

import "oferta/internal/schema"

// KeyIndex holds the identity keys of a dataset. It is kept in step with
// an append-only record slice: Sync only indexes records added since the
// previous call.
type KeyIndex struct {
	keyFn             KeyFunc
	primaries         map[string]struct{}
	fallbackAll       map[string]struct{}
	fallbackNoPrimary map[string]struct{}
	covered           int
}

func NewKeyIndex(keyFn KeyFunc) *KeyIndex {
	idx := &KeyIndex{keyFn: keyFn}
	idx.Reset()
	return idx
}

func (idx *KeyIndex) Reset() {
	idx.primaries = map[string]struct{}{}
	idx.fallbackAll = map[string]struct{}{}
	idx.fallbackNoPrimary = map[string]struct{}{}
	idx.covered = 0
}

// Sync indexes records[covered:]. A shorter slice than last time means the
// dataset was cleared or replaced, and the index is rebuilt.
func (idx *KeyIndex) Sync(records []schema.Record) {
	if len(records) < idx.covered {
		idx.Reset()
	}
	for _, r := range records[idx.covered:] {
		idx.Add(idx.keyFn(r))
	}
	idx.covered = len(records)
}

func (idx *KeyIndex) Add(k IdentityKey) {
	if k.Primary != "" {
		idx.primaries[k.Primary] = struct{}{}
	}
	for _, fb := range k.Fallback {
		idx.fallbackAll[fb] = struct{}{}
		if k.Primary == "" {
			idx.fallbackNoPrimary[fb] = struct{}{}
		}
	}
}

// Contains reports whether a record with key k is already indexed.
func (idx *KeyIndex) Contains(k IdentityKey) bool {
	if k.Primary != "" {
		if _, ok := idx.primaries[k.Primary]; ok {
			return true
		}
		return anyIn(k.Fallback, idx.fallbackNoPrimary)
	}
	return anyIn(k.Fallback, idx.fallbackAll)
}

func (idx *KeyIndex) Len() int { return idx.covered }

func anyIn(keys []string, set map[string]struct{}) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}
