package models

// Row is one record of tabular input. Field order is preserved so the
// output can be written in the same column order as the input.
type Row struct {
	fields []string
	values map[string]string
}

// NewRow builds a Row from a header and the matching record values.
// Missing trailing values are stored as empty strings.
func NewRow(fields []string, values []string) *Row {
	r := &Row{
		fields: make([]string, len(fields)),
		values: make(map[string]string, len(fields)+1),
	}
	copy(r.fields, fields)
	for i, name := range fields {
		if i < len(values) {
			r.values[name] = values[i]
		} else {
			r.values[name] = ""
		}
	}
	return r
}

// Fields returns a copy of the row's field names in order.
func (r *Row) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the value for name and whether the field exists.
func (r *Row) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Values returns the row's values in field order.
func (r *Row) Values() []string {
	out := make([]string, len(r.fields))
	for i, name := range r.fields {
		out[i] = r.values[name]
	}
	return out
}

// Append sets name to value and moves name to the end of the field order.
// An existing field with the same name is overwritten.
func (r *Row) Append(name, value string) {
	r.fields = AppendField(r.fields, name)
	r.values[name] = value
}

// AppendField returns fields with name placed last, removing any earlier
// occurrence. The input slice is not modified.
func AppendField(fields []string, name string) []string {
	out := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if f != name {
			out = append(out, f)
		}
	}
	return append(out, name)
}
