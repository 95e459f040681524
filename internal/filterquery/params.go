package filterquery

import "strconv"

// paramList owns the positional parameters of one statement. add returns the
// placeholder for the value it appended, so emitted text and the param slice
// always agree on numbering.
type paramList struct {
	values []any
}

func (p *paramList) add(v any) string {
	p.values = append(p.values, v)
	return "$" + strconv.Itoa(len(p.values))
}

// addEach appends every value and returns their placeholders in order.
func (p *paramList) addEach(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, p.add(v))
	}
	return out
}

func (p *paramList) snapshot() []any {
	if len(p.values) == 0 {
		return []any{}
	}
	out := make([]any, len(p.values))
	copy(out, p.values)
	return out
}
