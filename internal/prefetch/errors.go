package prefetch

// notModalPageError signals a prefetched page without a usable modal payload.
type notModalPageError struct{ url string }

func (e notModalPageError) Error() string { return "not a modal page: " + e.url }

// ErrNotModalPage constructs a notModalPageError.
func ErrNotModalPage(url string) error { return notModalPageError{url: url} }

// IsNotModalPage reports whether err indicates a non-modal prefetch result.
func IsNotModalPage(err error) bool {
	_, ok := err.(notModalPageError)
	return ok
}
