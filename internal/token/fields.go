package token

// Fields is an insertion-ordered set of key/value pairs. Setting an existing
// key replaces its value in place.
type Fields struct {
	keys   []string
	values map[string]string
}

func NewFields(pairs ...string) Fields {
	var f Fields
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Set(pairs[i], pairs[i+1])
	}
	return f
}

func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f Fields) Get(key string) string {
	return f.values[key]
}

func (f Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (f Fields) Keys() []string {
	return append([]string(nil), f.keys...)
}

func (f Fields) Len() int {
	return len(f.keys)
}

// Map returns an unordered copy, for templates and JSON.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(f.keys))
	for _, k := range f.keys {
		m[k] = f.values[k]
	}
	return m
}

func (f Fields) clone() Fields {
	c := Fields{
		keys:   append([]string(nil), f.keys...),
		values: make(map[string]string, len(f.values)),
	}
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}
