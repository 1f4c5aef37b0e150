package entity

// RawRecord is the loosely-typed JSON object returned by the field extractor.
// Any key may be absent and any value may have an unexpected type; accessors report presence
// instead of assuming it.
type RawRecord map[string]any

// Lookup returns the value stored under key and whether it was present and non-null.
func (r RawRecord) Lookup(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present with a non-null value.
func (r RawRecord) Has(key string) bool {
	_, ok := r.Lookup(key)
	return ok
}
