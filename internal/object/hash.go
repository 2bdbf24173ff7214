package object

import (
	"fmt"
	"strings"
)

// HashKey identifies a hashable value. It is comparable, so it can be used
// directly as a Go map key, and equal values always produce equal keys.
type HashKey struct {
	Type ObjectType
	Int  int64
	Str  string
}

// Hashable is implemented by the values allowed as hash keys.
type Hashable interface {
	Object
	HashKey() HashKey
}

func (i *Integer) HashKey() HashKey { return HashKey{Type: i.Type(), Int: i.Value} }

func (b *Boolean) HashKey() HashKey {
	var v int64
	if b.Value {
		v = 1
	}
	return HashKey{Type: b.Type(), Int: v}
}

func (s *String) HashKey() HashKey { return HashKey{Type: s.Type(), Str: s.Value} }

type HashPair struct {
	Key   Object
	Value Object
}

// Hash maps hashable keys to values. Keys remembers first-insertion order
// so Inspect output is stable.
type Hash struct {
	Pairs map[HashKey]HashPair
	Keys  []HashKey
}

func NewHash(size int) *Hash {
	return &Hash{
		Pairs: make(map[HashKey]HashPair, size),
		Keys:  make([]HashKey, 0, size),
	}
}

// Set stores value under key. A repeated key overwrites the earlier value
// but keeps its original position.
func (h *Hash) Set(key Hashable, value Object) {
	hk := key.HashKey()
	if _, exists := h.Pairs[hk]; !exists {
		h.Keys = append(h.Keys, hk)
	}
	h.Pairs[hk] = HashPair{Key: key, Value: value}
}

// Get returns the value for key and whether it was present.
func (h *Hash) Get(key Hashable) (Object, bool) {
	pair, ok := h.Pairs[key.HashKey()]
	if !ok {
		return nil, false
	}
	return pair.Value, true
}

func (h *Hash) Len() int { return len(h.Keys) }

func (h *Hash) Type() ObjectType { return HASH_OBJ }
func (h *Hash) object()          {}
func (h *Hash) Inspect() string {
	pairs := make([]string, 0, len(h.Keys))
	for _, hk := range h.Keys {
		pair := h.Pairs[hk]
		pairs = append(pairs, fmt.Sprintf("%s: %s", inspectKey(pair.Key), pair.Value.Inspect()))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func inspectKey(key Object) string {
	if s, ok := key.(*String); ok {
		return fmt.Sprintf("%q", s.Value)
	}
	return key.Inspect()
}
