package model

// Ptr returns a pointer to v. Optional settings use pointers so that an
// explicit zero differs from an unset value.
func Ptr[T any](v T) *T { return &v }
