package variants

import "strings"

// Combination is one concrete choice of a value per option
type Combination struct {
	Pairs []Pair `json:"options"`
	Key   Key    `json:"-"`
	Title string `json:"title"`
}

// Generate returns every combination of one value per option, in option order
// then value order. Options are normalized first; when none has a value the
// result is empty.
func Generate(options []Option) []Combination {
	opts := Normalize(options)
	if len(opts) == 0 {
		return nil
	}

	combos := [][]Pair{{}}
	for _, opt := range opts {
		next := make([][]Pair, 0, len(combos)*len(opt.Values))
		for _, prefix := range combos {
			for _, value := range opt.Values {
				pairs := make([]Pair, len(prefix), len(prefix)+1)
				copy(pairs, prefix)
				next = append(next, append(pairs, Pair{Name: opt.Name, Value: value}))
			}
		}
		combos = next
	}

	out := make([]Combination, 0, len(combos))
	for _, pairs := range combos {
		// Normalize guarantees unique names and at most MaxOptions entries
		key, err := NewKey(pairs)
		if err != nil || key.IsZero() {
			continue
		}
		out = append(out, Combination{Pairs: pairs, Key: key, Title: Title(pairs)})
	}
	return out
}

// CountCombinations is the number of combinations Generate would return
func CountCombinations(options []Option) int {
	opts := Normalize(options)
	if len(opts) == 0 {
		return 0
	}
	n := 1
	for _, opt := range opts {
		n *= len(opt.Values)
	}
	return n
}

// Title joins the pair values, e.g. "S / Red"
func Title(pairs []Pair) string {
	values := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if v := strings.TrimSpace(p.Value); v != "" {
			values = append(values, v)
		}
	}
	return strings.Join(values, TitleSeparator)
}

// orderPairs returns pairs sorted by the position of their option in options.
// Pairs naming an unknown option keep their relative order at the end.
func orderPairs(options []Option, pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	used := make([]bool, len(pairs))
	for _, opt := range options {
		for i, p := range pairs {
			if !used[i] && strings.TrimSpace(p.Name) == opt.Name {
				out = append(out, Pair{Name: opt.Name, Value: strings.TrimSpace(p.Value)})
				used[i] = true
			}
		}
	}
	for i, p := range pairs {
		if !used[i] {
			out = append(out, p)
		}
	}
	return out
}
