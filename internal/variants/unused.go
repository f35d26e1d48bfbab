package variants

import "strings"

// UnusedOption lists values of one option that no live variant references
type UnusedOption struct {
	Option string   `json:"option"`
	Values []string `json:"values"`
}

// UnusedValues is the detector output in option order
type UnusedValues []UnusedOption

// Empty reports whether no option has unused values
func (u UnusedValues) Empty() bool { return len(u) == 0 }

// For returns the unused values of the named option
func (u UnusedValues) For(option string) []string {
	for _, o := range u {
		if o.Option == option {
			return o.Values
		}
	}
	return nil
}

// Strip removes the unused values from options. Options left without values
// are dropped.
func (u UnusedValues) Strip(options []Option) []Option {
	out := make([]Option, 0, len(options))
	for _, opt := range options {
		drop := make(map[string]struct{})
		for _, v := range u.For(strings.TrimSpace(opt.Name)) {
			drop[v] = struct{}{}
		}
		values := make([]string, 0, len(opt.Values))
		for _, v := range opt.Values {
			if _, ok := drop[strings.TrimSpace(v)]; ok {
				continue
			}
			values = append(values, v)
		}
		if len(drop) > 0 && len(Option{Values: values}.NonEmptyValues()) == 0 {
			continue
		}
		out = append(out, Option{Name: opt.Name, Values: values})
	}
	return out
}

// DetectUnused returns, per option, the non-empty values that appear in no
// live variant. With no live variants there is nothing to report.
func DetectUnused(options []Option, variants []Variant) UnusedValues {
	used := make(map[Pair]struct{})
	live := 0
	for _, v := range variants {
		if v.IsDeleted {
			continue
		}
		live++
		for _, p := range v.Options {
			used[Pair{Name: strings.TrimSpace(p.Name), Value: strings.TrimSpace(p.Value)}] = struct{}{}
		}
	}
	if live == 0 {
		return nil
	}

	var out UnusedValues
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		var unused []string
		for _, value := range opt.NonEmptyValues() {
			if _, ok := used[Pair{Name: name, Value: value}]; !ok {
				unused = append(unused, value)
			}
		}
		if len(unused) > 0 {
			out = append(out, UnusedOption{Option: name, Values: unused})
		}
	}
	return out
}
