package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// PtrOr dereferences an optional value, falling back to a default when the pointer is nil.
// glTF documents model most optional fields as pointers, so this shows up all over the
// document-to-resource mapping.
//
// Parameters:
//   - p: the optional value
//   - def: the default to use when p is nil
//
// Returns:
//   - T: *p when p is non-nil, def otherwise
func PtrOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
