// Package variants expands product options into variant combinations and keeps
// user edits to those variants stable across option changes.
package variants

import (
	"errors"
	"strings"
)

// MaxOptions is the maximum number of options a product may define
const MaxOptions = 3

// TitleSeparator joins option values into a variant title
const TitleSeparator = " / "

var (
	ErrTooManyOptions       = errors.New("a product can have at most 3 options")
	ErrDuplicateOption      = errors.New("option names must be unique")
	ErrEmptyOptionName      = errors.New("option name is required")
	ErrUnknownOption        = errors.New("option does not exist")
	ErrUnknownValue         = errors.New("option value does not exist")
	ErrLastValue            = errors.New("an option must keep at least one value")
	ErrDuplicateValue       = errors.New("option value already exists")
	ErrEmptyCombination     = errors.New("variant must reference at least one option value")
	ErrDuplicateCombination = errors.New("a variant with this combination already exists")
	ErrVariantNotFound      = errors.New("variant not found")
	ErrNegativePrice        = errors.New("price must not be negative")
	ErrNegativeInventory    = errors.New("inventory must not be negative")
)

// Option is a named list of values, e.g. Size: [S, M, L]
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Pair binds one option name to one of its values
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NonEmptyValues returns the option's values without placeholders or repeats,
// keeping first-seen order.
func (o Option) NonEmptyValues() []string {
	values := make([]string, 0, len(o.Values))
	seen := make(map[string]struct{}, len(o.Values))
	for _, v := range o.Values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// HasValue reports whether value is one of the option's non-empty values
func (o Option) HasValue(value string) bool {
	for _, v := range o.NonEmptyValues() {
		if v == value {
			return true
		}
	}
	return false
}

// Normalize returns the options that take part in generation: names trimmed,
// placeholder and repeated values removed, options without values or with a
// name already used by an earlier option dropped. At most MaxOptions are kept.
func Normalize(options []Option) []Option {
	out := make([]Option, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		values := opt.NonEmptyValues()
		if len(values) == 0 {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Option{Name: name, Values: values})
		if len(out) == MaxOptions {
			break
		}
	}
	return out
}

// ValidateOptions checks the hard invariants of an option list: at most
// MaxOptions entries, every entry named, names unique.
func ValidateOptions(options []Option) error {
	if len(options) > MaxOptions {
		return ErrTooManyOptions
	}
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			return ErrEmptyOptionName
		}
		if _, ok := seen[name]; ok {
			return ErrDuplicateOption
		}
		seen[name] = struct{}{}
	}
	return nil
}

func cloneOptions(options []Option) []Option {
	out := make([]Option, len(options))
	for i, opt := range options {
		out[i] = Option{Name: opt.Name, Values: append([]string(nil), opt.Values...)}
	}
	return out
}

func findOption(options []Option, name string) int {
	for i, opt := range options {
		if strings.TrimSpace(opt.Name) == name {
			return i
		}
	}
	return -1
}
