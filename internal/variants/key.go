package variants

import (
	"net/url"
	"sort"
	"strings"
)

const (
	generatedIDPrefix = "new:"
	manualIDPrefix    = "manual:"
)

// Key identifies an option combination independently of pair order. Keys are
// comparable and can be used as map keys.
type Key struct {
	n     int
	pairs [MaxOptions]Pair
}

// NewKey builds the key for a set of pairs. Empty values are ignored. It fails
// when more than MaxOptions pairs remain or one option name appears twice.
func NewKey(pairs []Pair) (Key, error) {
	clean := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		name := strings.TrimSpace(p.Name)
		value := strings.TrimSpace(p.Value)
		if name == "" || value == "" {
			continue
		}
		clean = append(clean, Pair{Name: name, Value: value})
	}
	if len(clean) > MaxOptions {
		return Key{}, ErrTooManyOptions
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Name < clean[j].Name })
	var k Key
	for i, p := range clean {
		if i > 0 && clean[i-1].Name == p.Name {
			return Key{}, ErrDuplicateOption
		}
		k.pairs[i] = p
	}
	k.n = len(clean)
	return k, nil
}

// Len is the number of pairs in the key
func (k Key) Len() int { return k.n }

// IsZero reports whether the key holds no pairs
func (k Key) IsZero() bool { return k.n == 0 }

// Pairs returns the key's pairs sorted by option name
func (k Key) Pairs() []Pair {
	return append([]Pair(nil), k.pairs[:k.n]...)
}

// Value returns the value bound to an option name
func (k Key) Value(name string) (string, bool) {
	for _, p := range k.pairs[:k.n] {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// String renders the key with every name and value escaped, so two different
// keys never render the same.
func (k Key) String() string {
	parts := make([]string, k.n)
	for i, p := range k.pairs[:k.n] {
		parts[i] = url.QueryEscape(p.Name) + "=" + url.QueryEscape(p.Value)
	}
	return strings.Join(parts, "&")
}

// ID is the synthesized identifier of a not yet persisted variant
func (k Key) ID() string {
	return generatedIDPrefix + k.String()
}

func (k Key) manualID() string {
	return manualIDPrefix + k.String()
}

// ParseID recovers the key encoded in a synthesized id
func ParseID(id string) (Key, bool) {
	var rest string
	switch {
	case strings.HasPrefix(id, generatedIDPrefix):
		rest = strings.TrimPrefix(id, generatedIDPrefix)
	case strings.HasPrefix(id, manualIDPrefix):
		rest = strings.TrimPrefix(id, manualIDPrefix)
	default:
		return Key{}, false
	}
	if rest == "" {
		return Key{}, false
	}
	var pairs []Pair
	for _, part := range strings.Split(rest, "&") {
		rawName, rawValue, ok := strings.Cut(part, "=")
		if !ok {
			return Key{}, false
		}
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return Key{}, false
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Key{}, false
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}
	k, err := NewKey(pairs)
	if err != nil || k.IsZero() {
		return Key{}, false
	}
	return k, true
}

// IsSynthesizedID reports whether id was produced by Key.ID or for a manually
// added variant, as opposed to an id assigned by the database.
func IsSynthesizedID(id string) bool {
	return strings.HasPrefix(id, generatedIDPrefix) || strings.HasPrefix(id, manualIDPrefix)
}

// KeySet is a set of combination keys
type KeySet map[Key]struct{}

// NewKeySet builds a set from keys
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k
func (s KeySet) Add(k Key) { s[k] = struct{}{} }

// Remove deletes k
func (s KeySet) Remove(k Key) { delete(s, k) }

// Has reports whether k is in the set
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Clone returns a copy of the set
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
