package variants

import (
	"strings"

	"github.com/shopspring/decimal"
)

// VariantPatch holds the editable fields of a variant; nil fields are left alone
type VariantPatch struct {
	Title     *string          `json:"title,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	SKU       *string          `json:"sku,omitempty"`
	Inventory *int             `json:"inventory,omitempty"`
}

// Editor is the variant-manager form state of one product. Every option change
// regenerates the variant list; deletions are remembered by combination so a
// later regeneration does not bring them back. Failed operations leave the
// state untouched.
type Editor struct {
	options    []Option
	variants   []Variant
	deleted    KeySet
	deletedIDs []string
}

// NewEditor starts from the product's saved options and variants
func NewEditor(options []Option, variants []Variant) *Editor {
	e := &Editor{
		options:  cloneOptions(options),
		variants: MarkManual(options, variants),
		deleted:  KeySet{},
	}
	for _, v := range variants {
		if !v.IsDeleted {
			continue
		}
		if key, err := v.Key(); err == nil && !key.IsZero() {
			e.deleted.Add(key)
		}
		if v.Persisted() {
			e.deletedIDs = append(e.deletedIDs, v.ID)
		}
	}
	e.regenerate()
	return e
}

// Options returns a copy of the current options
func (e *Editor) Options() []Option { return cloneOptions(e.options) }

// Variants returns a copy of the live variants
func (e *Editor) Variants() []Variant { return append([]Variant(nil), e.variants...) }

// Deleted returns a copy of the deleted combination set
func (e *Editor) Deleted() KeySet { return e.deleted.Clone() }

// DeletedIDs lists database ids of variants the user removed
func (e *Editor) DeletedIDs() []string { return append([]string(nil), e.deletedIDs...) }

// Unused reports option values no live variant references
func (e *Editor) Unused() UnusedValues { return DetectUnused(e.options, e.variants) }

// SetOptions replaces the option list
func (e *Editor) SetOptions(options []Option) error {
	if err := ValidateOptions(options); err != nil {
		return err
	}
	e.options = cloneOptions(options)
	e.regenerate()
	return nil
}

// AddOption appends a new option
func (e *Editor) AddOption(name string, values ...string) error {
	name = strings.TrimSpace(name)
	next := append(cloneOptions(e.options), Option{Name: name, Values: values})
	return e.SetOptions(next)
}

// RemoveOption drops an option by name
func (e *Editor) RemoveOption(name string) error {
	i := findOption(e.options, strings.TrimSpace(name))
	if i < 0 {
		return ErrUnknownOption
	}
	next := cloneOptions(e.options)
	next = append(next[:i], next[i+1:]...)
	return e.SetOptions(next)
}

// MoveOption moves the option at index from to index to
func (e *Editor) MoveOption(from, to int) error {
	if from < 0 || from >= len(e.options) || to < 0 || to >= len(e.options) {
		return ErrUnknownOption
	}
	next := cloneOptions(e.options)
	opt := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]Option{opt}, next[to:]...)...)
	return e.SetOptions(next)
}

// AddValue appends a value to an option
func (e *Editor) AddValue(option, value string) error {
	i := findOption(e.options, strings.TrimSpace(option))
	if i < 0 {
		return ErrUnknownOption
	}
	value = strings.TrimSpace(value)
	if e.options[i].HasValue(value) {
		return ErrDuplicateValue
	}
	next := cloneOptions(e.options)
	next[i].Values = append(next[i].Values, value)
	return e.SetOptions(next)
}

// RemoveValue removes a value from an option. The last remaining value of an
// option cannot be removed; remove the option instead.
func (e *Editor) RemoveValue(option, value string) error {
	i := findOption(e.options, strings.TrimSpace(option))
	if i < 0 {
		return ErrUnknownOption
	}
	value = strings.TrimSpace(value)
	if !e.options[i].HasValue(value) {
		return ErrUnknownValue
	}
	if len(e.options[i].NonEmptyValues()) == 1 {
		return ErrLastValue
	}
	next := cloneOptions(e.options)
	values := next[i].Values[:0]
	for _, v := range next[i].Values {
		if strings.TrimSpace(v) != value {
			values = append(values, v)
		}
	}
	next[i].Values = values
	return e.SetOptions(next)
}

// StripUnused removes every unused value from the options and regenerates
func (e *Editor) StripUnused() {
	unused := e.Unused()
	if unused.Empty() {
		return
	}
	e.options = unused.Strip(e.options)
	e.regenerate()
}

// DeleteVariant removes a live variant and remembers its combination
func (e *Editor) DeleteVariant(id string) error {
	i := e.indexOf(id)
	if i < 0 {
		return ErrVariantNotFound
	}
	v := e.variants[i]
	if key, err := v.Key(); err == nil && !key.IsZero() {
		e.deleted.Add(key)
	}
	if v.Persisted() {
		e.deletedIDs = append(e.deletedIDs, v.ID)
	}
	e.variants = append(e.variants[:i:i], e.variants[i+1:]...)
	return nil
}

// AddVariant adds a variant for a combination of current option values. The
// combination may leave options out. It is rejected when a live variant
// already has the same combination.
func (e *Editor) AddVariant(pairs []Pair) (Variant, error) {
	opts := Normalize(e.options)
	for _, p := range pairs {
		name := strings.TrimSpace(p.Name)
		value := strings.TrimSpace(p.Value)
		if value == "" {
			continue
		}
		j := findOption(opts, name)
		if j < 0 {
			return Variant{}, ErrUnknownOption
		}
		if !opts[j].HasValue(value) {
			return Variant{}, ErrUnknownValue
		}
	}
	key, err := NewKey(pairs)
	if err != nil {
		return Variant{}, err
	}
	if key.IsZero() {
		return Variant{}, ErrEmptyCombination
	}
	for _, v := range e.variants {
		if k, err := v.Key(); err == nil && k == key {
			return Variant{}, ErrDuplicateCombination
		}
	}

	ordered := orderPairs(opts, key.Pairs())
	v := Variant{
		ID:      key.manualID(),
		Title:   Title(ordered),
		Price:   decimal.Zero,
		Options: ordered,
		Manual:  true,
	}
	e.deleted.Remove(key)
	e.variants = append(e.variants, v)
	return v, nil
}

// UpdateVariant applies a patch to a live variant
func (e *Editor) UpdateVariant(id string, patch VariantPatch) (Variant, error) {
	i := e.indexOf(id)
	if i < 0 {
		return Variant{}, ErrVariantNotFound
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return Variant{}, ErrNegativePrice
	}
	if patch.Inventory != nil && *patch.Inventory < 0 {
		return Variant{}, ErrNegativeInventory
	}
	v := e.variants[i]
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.Price != nil {
		v.Price = *patch.Price
	}
	if patch.SKU != nil {
		v.SKU = strings.TrimSpace(*patch.SKU)
	}
	if patch.Inventory != nil {
		v.Inventory = *patch.Inventory
	}
	e.variants[i] = v
	return v, nil
}

func (e *Editor) indexOf(id string) int {
	for i, v := range e.variants {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) regenerate() {
	e.variants = Reconcile(e.options, e.variants, e.deleted)
}
