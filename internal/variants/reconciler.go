package variants

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Variant is one sellable combination of option values
type Variant struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	SKU       string          `json:"sku"`
	Inventory int             `json:"inventory"`
	Options   []Pair          `json:"options"`
	IsDeleted bool            `json:"is_deleted"`
	Manual    bool            `json:"manual,omitempty"`
}

// Key returns the variant's combination key
func (v Variant) Key() (Key, error) {
	return NewKey(v.Options)
}

// Persisted reports whether the variant carries a database id
func (v Variant) Persisted() bool {
	return v.ID != "" && !IsSynthesizedID(v.ID)
}

// newVariant builds a default variant for a generated combination
func newVariant(c Combination) Variant {
	return Variant{
		ID:      c.Key.ID(),
		Title:   c.Title,
		Price:   decimal.Zero,
		Options: append([]Pair(nil), c.Pairs...),
	}
}

// Reconcile merges the combinations implied by options with the current
// variants. Live variants whose combination is still generated are kept as
// they are, combinations in deleted are skipped, and new combinations get
// default values. Variants flagged IsDeleted count as deleted. Manual variants
// follow the generated ones as long as every pair still names a current option
// value; everything else that is no longer producible is dropped.
func Reconcile(options []Option, current []Variant, deleted KeySet) []Variant {
	skip := deleted.Clone()

	live := make(map[Key]int, len(current))
	for i, v := range current {
		key, err := v.Key()
		if err != nil || key.IsZero() {
			continue
		}
		if v.IsDeleted {
			skip.Add(key)
			continue
		}
		if _, ok := live[key]; !ok {
			live[key] = i
		}
	}

	combos := Generate(options)
	out := make([]Variant, 0, len(combos))
	used := make(map[int]struct{}, len(current))
	for _, c := range combos {
		if i, ok := live[c.Key]; ok {
			out = append(out, current[i])
			used[i] = struct{}{}
			continue
		}
		if skip.Has(c.Key) {
			continue
		}
		out = append(out, newVariant(c))
	}

	opts := Normalize(options)
	for i, v := range current {
		if !v.Manual || v.IsDeleted {
			continue
		}
		if _, ok := used[i]; ok {
			continue
		}
		key, err := v.Key()
		if err != nil || key.IsZero() || live[key] != i {
			continue
		}
		if !pairsAvailable(opts, v.Options) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// MarkManual returns a copy of list with Manual set on every variant whose
// combination covers fewer options than options has. Such variants can only
// have been added by hand.
func MarkManual(options []Option, list []Variant) []Variant {
	out := append([]Variant(nil), list...)
	width := len(Normalize(options))
	for i, v := range out {
		if key, err := v.Key(); err == nil && !key.IsZero() && key.Len() < width {
			out[i].Manual = true
		}
	}
	return out
}

// pairsAvailable reports whether every non-empty pair references an option
// in opts and one of its values.
func pairsAvailable(opts []Option, pairs []Pair) bool {
	for _, p := range pairs {
		value := strings.TrimSpace(p.Value)
		if value == "" {
			continue
		}
		i := findOption(opts, strings.TrimSpace(p.Name))
		if i < 0 || !opts[i].HasValue(value) {
			return false
		}
	}
	return true
}

// ValidateVariants checks that no two live variants share a combination
func ValidateVariants(variants []Variant) error {
	seen := make(KeySet, len(variants))
	for _, v := range variants {
		if v.IsDeleted {
			continue
		}
		key, err := v.Key()
		if err != nil {
			return err
		}
		if key.IsZero() {
			return ErrEmptyCombination
		}
		if seen.Has(key) {
			return ErrDuplicateCombination
		}
		seen.Add(key)
		if v.Price.IsNegative() {
			return ErrNegativePrice
		}
		if v.Inventory < 0 {
			return ErrNegativeInventory
		}
	}
	return nil
}

// CheckVariantOptions reports ErrUnknownValue when a live variant names an
// option or value that options do not have.
func CheckVariantOptions(options []Option, variants []Variant) error {
	opts := Normalize(options)
	for _, v := range variants {
		if v.IsDeleted {
			continue
		}
		if !pairsAvailable(opts, v.Options) {
			return ErrUnknownValue
		}
	}
	return nil
}
